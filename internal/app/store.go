package app

import (
	"context"
	"fmt"

	"volumetracker/config"
	"volumetracker/pkg/storage"
	"volumetracker/pkg/storage/filestore"
	"volumetracker/pkg/storage/mongo"
	"volumetracker/pkg/storage/postgres"
	"volumetracker/pkg/storage/sqlite"

	"go.uber.org/zap"
)

// OpenStore returns the storage backend selected by cfg.Storage.Driver.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "file", "":
		s, err := filestore.New(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		logger.Info("using file store", zap.String("dir", cfg.Storage.DataDir))
		return s, nil

	case "sqlite":
		s, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("using sqlite store", zap.String("path", cfg.Storage.Path))
		return s, nil

	case "postgres":
		client, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, cfg.Postgres.CreateDB)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if !client.IsHealthy(ctx) {
			_ = client.Close()
			return nil, fmt.Errorf("open postgres store: database not reachable")
		}
		logger.Info("using postgres store", zap.String("dbname", cfg.Postgres.DBName))
		return client, nil

	case "mongo":
		s, err := mongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		logger.Info("using mongo store",
			zap.String("database", cfg.Mongo.Database),
			zap.String("collection", cfg.Mongo.Collection),
		)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
