package main

import (
	"log"

	"course-chat-service/internal/config"
	"course-chat-service/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database.URI())
	if err != nil {
		log.Fatal("failed to connect to postgres: ", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed: ", err)
	}

	log.Println("migration complete")
}
