package main

// @title           Course Chat Service API
// @version         1.0
// @description     Realtime channel, thread and message API for courses
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-chat-service/internal/adapters/kafka"
	"course-chat-service/internal/api/routes"
	"course-chat-service/internal/auth"
	"course-chat-service/internal/config"
	"course-chat-service/internal/database"
	"course-chat-service/internal/repositories/postgres"
	"course-chat-service/internal/services"
	"course-chat-service/internal/websocket"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("starting course chat server")

	redisClient, err := database.NewRedisConnection(cfg.Redis.URI)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := database.NewPostgresConnection(cfg.Database.URI())
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	// Repositories
	channelRepo := postgres.NewChannelRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	threadRepo := postgres.NewThreadRepository(db)
	courseRepo := postgres.NewCourseRepository(db)
	memberRepo := postgres.NewCourseMemberRepository(db)

	// Token verifier: one instance shared by the REST middleware and the
	// websocket handshake.
	verifierOpts := []auth.VerifierOption{
		auth.WithFetchLimit(cfg.OIDC.KeyFetchLimit, cfg.OIDC.KeyFetchWindow),
	}
	if cfg.OIDC.JWKSURL != "" {
		verifierOpts = append(verifierOpts, auth.WithJWKSURL(cfg.OIDC.JWKSURL))
	}
	verifier := auth.NewVerifier(cfg.OIDC.IssuerURL, logger, verifierOpts...)

	// Optional domain-event producer
	var publisher services.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer producer.Close()
		publisher = producer
	}

	// Services
	redisService := services.NewRedisService(redisClient)
	messageService := services.NewMessageService(messageRepo, threadRepo, channelRepo, memberRepo, publisher, logger)
	channelService := services.NewChannelService(channelRepo, threadRepo, courseRepo, memberRepo, logger)

	// Realtime
	hub := websocket.NewHub(redisService, logger)
	go hub.Run()

	gateway, err := websocket.NewGateway(hub, messageService, channelService, websocket.GatewayConfig{
		RequireMembershipOnJoin: cfg.Websocket.RequireMembershipOnJoin,
		SendTimeout:             cfg.Websocket.SendTimeout,
	}, logger)
	if err != nil {
		slog.Error("failed to build gateway", "error", err)
		os.Exit(1)
	}

	router := routes.NewRouter(hub, gateway, verifier, channelService, messageService, redisService)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Stop()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}
