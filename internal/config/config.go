package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OIDC      OIDCConfig
	Websocket WebsocketConfig
	Kafka     KafkaConfig
}

var (
	instance *Config
	once     sync.Once
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URI renders the postgres DSN.
func (c DatabaseConfig) URI() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	URI string
}

type OIDCConfig struct {
	IssuerURL      string
	JWKSURL        string
	KeyFetchLimit  int
	KeyFetchWindow time.Duration
}

type WebsocketConfig struct {
	// RequireMembershipOnJoin turns on join-time course membership checks.
	RequireMembershipOnJoin bool
	SendTimeout             time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

func LoadConfig() (*Config, error) {
	once.Do(func() {
		viper.SetDefault("CHAT_HOST", "")
		viper.SetDefault("CHAT_PORT", "8080")
		viper.SetDefault("CHAT_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("CHAT_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("CHAT_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("POSTGRES_HOST", "localhost")
		viper.SetDefault("POSTGRES_PORT", "5432")
		viper.SetDefault("POSTGRES_USER", "postgres")
		viper.SetDefault("POSTGRES_PASSWORD", "password")
		viper.SetDefault("POSTGRES_DB", "postgres")
		viper.SetDefault("POSTGRES_SSLMODE", "disable")
		viper.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
		viper.SetDefault("OIDC_ISSUER_URL", "http://localhost:8081/realms/courses")
		viper.SetDefault("OIDC_JWKS_URL", "")
		viper.SetDefault("OIDC_KEY_FETCH_LIMIT", 10)
		viper.SetDefault("OIDC_KEY_FETCH_WINDOW", time.Minute)
		viper.SetDefault("WS_REQUIRE_MEMBERSHIP_ON_JOIN", false)
		viper.SetDefault("WS_SEND_TIMEOUT", 5*time.Second)
		viper.SetDefault("KAFKA_ENABLED", false)
		viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
		viper.SetDefault("KAFKA_TOPIC", "course-chat-events")
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Host:         viper.GetString("CHAT_HOST"),
				Port:         viper.GetString("CHAT_PORT"),
				ReadTimeout:  viper.GetDuration("CHAT_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("CHAT_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("CHAT_IDLE_TIMEOUT"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("POSTGRES_HOST"),
				Port:     viper.GetString("POSTGRES_PORT"),
				User:     viper.GetString("POSTGRES_USER"),
				Password: viper.GetString("POSTGRES_PASSWORD"),
				DBName:   viper.GetString("POSTGRES_DB"),
				SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
			},
			Redis: RedisConfig{
				URI: viper.GetString("REDIS_URL"),
			},
			OIDC: OIDCConfig{
				IssuerURL:      viper.GetString("OIDC_ISSUER_URL"),
				JWKSURL:        viper.GetString("OIDC_JWKS_URL"),
				KeyFetchLimit:  viper.GetInt("OIDC_KEY_FETCH_LIMIT"),
				KeyFetchWindow: viper.GetDuration("OIDC_KEY_FETCH_WINDOW"),
			},
			Websocket: WebsocketConfig{
				RequireMembershipOnJoin: viper.GetBool("WS_REQUIRE_MEMBERSHIP_ON_JOIN"),
				SendTimeout:             viper.GetDuration("WS_SEND_TIMEOUT"),
			},
			Kafka: KafkaConfig{
				Enabled: viper.GetBool("KAFKA_ENABLED"),
				Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
				Topic:   viper.GetString("KAFKA_TOPIC"),
			},
		}
	})
	return instance, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
