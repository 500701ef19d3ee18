package database

import (
	"context"
	"fmt"

	"github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
)

// Open builds the Store Client selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.StoreConfig) (domain.Store, error) {
	switch cfg.Driver {
	case "badger":
		return NewBadger(cfg)
	case "mysql":
		return NewMySQL(ctx, cfg)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
