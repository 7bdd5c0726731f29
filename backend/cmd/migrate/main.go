package main

import (
	"context"
	"flag"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"media-contacts/backend/internal/entity"
	"media-contacts/backend/internal/graph"
	"media-contacts/backend/pkg/config"
	"media-contacts/backend/pkg/logger"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print the statements without running them")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting Neo4j schema migration...")

	if *dryRun {
		for _, kind := range entity.Kinds() {
			fmt.Println(entity.ConstraintStatement(kind) + ";")
		}
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
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

	created, err := migrate(ctx, gateway, log)
	if err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	log.Info("Migration completed successfully!", zap.Strings("created", created))
}

// migrate ensures the uid constraints and returns the ones that were missing
func migrate(ctx context.Context, exec graph.Executor, log *zap.Logger) ([]string, error) {
	before, err := constraintNames(ctx, exec)
	if err != nil {
		return nil, err
	}

	if err := entity.EnsureConstraints(ctx, exec); err != nil {
		return nil, err
	}

	var created []string
	for _, kind := range entity.Kinds() {
		name := entity.ConstraintName(kind)
		if slices.Contains(before, name) {
			log.Info("Constraint already present", zap.String("name", name))
			continue
		}
		created = append(created, name)
	}
	return created, nil
}

func constraintNames(ctx context.Context, exec graph.Executor) ([]string, error) {
	records, err := exec.ExecuteRead(ctx, "SHOW CONSTRAINTS YIELD name RETURN name", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list constraints: %w", err)
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.String("name"))
	}
	return names, nil
}
