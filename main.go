package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"factorlens/domain/core"
	"factorlens/internal"
	"factorlens/internal/batch"
	"factorlens/internal/config"
	"factorlens/internal/container"
	apperrors "factorlens/internal/errors"
	"factorlens/internal/migration"
	"factorlens/ui"
)

// initDatabase connects to PostgreSQL and runs schema migrations.
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Database.URL == "" {
		return nil, apperrors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, apperrors.Wrap(err, "database migration failed")
	}

	return db, nil
}

// scheduledEntities reads the fixed entity roster for the recurring
// discovery and validation cycles. Entities outside the roster are still
// served on demand over the API.
func scheduledEntities() []core.EntityID {
	raw := os.Getenv("SCHEDULED_ENTITIES")
	if raw == "" {
		return nil
	}
	var out []core.EntityID
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, core.EntityID(trimmed))
		}
	}
	return out
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	c, err := container.New(appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create container: %v", err)
	}
	if err := c.InitWithDatabase(db); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer c.Close()

	if entities := scheduledEntities(); len(entities) > 0 {
		c.Scheduler.Start(context.Background(), []batch.Cycle{
			{
				Name:     "discovery",
				Interval: appConfig.Batch.DiscoveryInterval,
				Run: func(ctx context.Context) {
					summary := c.Analysis.RunDiscoveryCycle(ctx, entities)
					logger.Info("discovery cycle: ok=%d failed=%d elapsed=%s",
						summary.Succeeded, summary.Failed, summary.Elapsed)
				},
			},
			{
				Name:     "validation",
				Interval: appConfig.Batch.ValidationInterval,
				Run: func(ctx context.Context) {
					summary := c.Analysis.RunValidationCycle(ctx, entities)
					logger.Info("validation cycle: ok=%d failed=%d elapsed=%s",
						summary.Succeeded, summary.Failed, summary.Elapsed)
				},
			},
		})
		defer c.Scheduler.Stop()
	}

	server := ui.NewServer(c.Analysis, c.ReportWriter, appConfig.Server.GinMode, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(appConfig.Server.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Fatalf("Server stopped: %v", err)
	case sig := <-sigCh:
		logger.Info("received %s, shutting down", sig)
	}
}
