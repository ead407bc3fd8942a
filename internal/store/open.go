package store

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/pricebot/core/config"
	"github.com/m3rciful/pricebot/core/logger"
)

// Open returns the store selected by cfg.Driver. db must be set for the postgres driver.
func Open(cfg coreconfig.StorageConfig, db *sqlx.DB) (RecordStore, error) {
	switch cfg.Driver {
	case coreconfig.StoragePostgres:
		if db == nil {
			return nil, errors.New("store: postgres driver selected without a database connection")
		}
		logger.Store.Info("store opened",
			slog.String("event", "store.open"),
			slog.String("storage", cfg.Driver),
		)
		return NewPostgresStore(db), nil
	case coreconfig.StorageFile, "":
		path := cfg.Path
		if path == "" {
			path = coreconfig.DefaultStoragePath
		}
		s, err := NewFileStore(path)
		if err != nil {
			return nil, err
		}
		logger.Store.Info("store opened",
			slog.String("event", "store.open"),
			slog.String("storage", coreconfig.StorageFile),
			slog.String("path", path),
		)
		return s, nil
	}
	return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
}
