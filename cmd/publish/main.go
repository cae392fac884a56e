// Command publish runs one publication attempt for a stored release.
// It is the operator tool for retrying FAILED releases and for draining
// releases that were accepted but never processed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/depositry/backend/internal/application/publication"
	"github.com/depositry/backend/internal/infrastructure/cache"
	"github.com/depositry/backend/internal/infrastructure/config"
	"github.com/depositry/backend/internal/infrastructure/logger"
	"github.com/depositry/backend/internal/infrastructure/metadata"
	"github.com/depositry/backend/internal/infrastructure/persistence"
	"github.com/depositry/backend/internal/infrastructure/records"
	"github.com/depositry/backend/internal/infrastructure/storage"
	"github.com/depositry/backend/internal/infrastructure/vcs"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		printUsage()
		os.Exit(1)
	}

	releaseID, err := uuid.Parse(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid release ID %q: %v\n", args[0], err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if err := run(cfg, log, releaseID); err != nil {
		log.Fatal("Publication failed", zap.String("release_id", releaseID.String()), zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, releaseID uuid.UUID) error {
	ctx := context.Background()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	objectStorage, err := storage.NewS3Storage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	vcsClient := vcs.NewClient(&cfg.VCS, vcs.WithLogger(log))
	metadataProvider := metadata.NewProvider(vcsClient, metadata.WithLogger(log))

	recordOpts := []records.ServiceOption{records.WithBaseURL(cfg.App.BaseURL)}
	if cfg.DOI.Enabled {
		recordOpts = append(recordOpts, records.WithDOIPrefix(cfg.DOI.Prefix))
	}

	releaseRepo := persistence.NewGormReleaseRepository(db.DB)
	uow := persistence.NewGormPublicationScope(db.DB, objectStorage, recordOpts...)

	publisher := publication.NewPublisher(releaseRepo, metadataProvider, vcsClient, uow, log)

	if cfg.Lock.Enabled {
		lock, err := cache.NewRedisReleaseLock(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect release lock: %w", err)
		}
		defer func() {
			if err := lock.Close(); err != nil {
				log.Error("Error closing release lock", zap.Error(err))
			}
		}()
		publisher.SetReleaseLock(lock, cfg.Lock.TTL)
	} else {
		publisher.SetReleaseLock(cache.NewInMemoryReleaseLock(), cfg.Lock.TTL)
	}

	rel, err := releaseRepo.FindByID(ctx, releaseID)
	if err != nil {
		return fmt.Errorf("load release: %w", err)
	}

	record, err := publisher.ProcessRelease(ctx, rel)
	if err != nil {
		return err
	}

	log.Info("Release published",
		zap.String("release_id", rel.ID.String()),
		zap.String("record_id", record.PersistentID),
	)
	return nil
}

func printUsage() {
	fmt.Println("Depositry Release Publisher")
	fmt.Println()
	fmt.Println("Usage: publish [flags] <release-id>")
	fmt.Println()
	fmt.Println("Runs one publication attempt for the stored release with the given ID.")
	fmt.Println("The release must be in RECEIVED or FAILED state.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -log-level string   Log level (debug, info, warn, error) (default \"info\")")
	fmt.Println()
	fmt.Println("Configuration is read from config.toml and DEPOSITRY_* environment variables.")
}
