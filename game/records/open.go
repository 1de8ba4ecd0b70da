package records

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/minesweeper/internal/settings"
)

// Open builds the store selected by cfg.Driver
func Open(ctx context.Context, cfg settings.RecordsConfig, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("records")

	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.File, log)
	case "mysql":
		db, err := OpenMySQL(cfg.MySQL, log)
		if err != nil {
			return nil, err
		}
		store, err := NewGormStore(db, log)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, err
		}
		return store, nil
	case "mongo", "mongodb":
		client, err := OpenMongo(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
		store, err := NewMongoStore(ctx, client, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown records driver %q", cfg.Driver)
	}
}
