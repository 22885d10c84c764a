// Command migrate creates or updates the gradebook's relational schema.
// Run it once before pointing grading workers at a fresh store.
package main

import (
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/edulabs-io/gradebook-api/internal/config"
	"github.com/edulabs-io/gradebook-api/internal/database"
	"github.com/edulabs-io/gradebook-api/internal/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("course", cfg.CourseID).Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Str("url", cfg.DatabaseURL).Msg("failed to open store")
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate schema")
	}

	logger.Info().Str("url", cfg.DatabaseURL).Msg("gradebook schema is up to date")
}
