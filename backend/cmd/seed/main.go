package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"media-contacts/backend/internal/entity"
	"media-contacts/backend/internal/graph"
	"media-contacts/backend/internal/relationship"
	"media-contacts/backend/pkg/config"
	"media-contacts/backend/pkg/logger"
)

func main() {
	file := flag.String("file", "fixtures/sample.yaml", "Fixture file to load")
	workers := flag.Int("workers", 4, "Concurrent writes per phase")
	constraints := flag.Bool("constraints", true, "Ensure uid constraints before seeding")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...", zap.String("file", *file))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal("Failed to open fixture file", zap.Error(err))
	}
	fixtures, err := LoadFixtures(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to load fixtures", zap.Error(err))
	}

	// Connect to Neo4j
	ctx := context.Background()
	gateway, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword,
		graph.WithDatabase(cfg.Neo4jDatabase),
	)
	if err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}
	defer gateway.Close(context.Background())

	if *constraints {
		log.Info("Creating constraints...")
		if err := entity.EnsureConstraints(ctx, gateway); err != nil {
			log.Fatal("Failed to create constraints", zap.Error(err))
		}
	}

	registry := entity.NewRegistry(gateway,
		entity.WithTagValidator(entity.NewTagValidator(cfg.TagAllowDigits)),
	)
	seeder := NewSeeder(registry, relationship.NewManager(gateway), *workers, log)

	summary, err := seeder.Seed(ctx, fixtures)
	if err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}

	log.Info("Seeding completed successfully",
		zap.Int("entities", summary.Entities),
		zap.Int("relationships", summary.Relationships),
	)
}
