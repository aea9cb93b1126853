package app

import (
	"context"
	"fmt"

	"ticketing/config"
	"ticketing/internal/api"
	"ticketing/internal/store"
	"ticketing/internal/util"

	"go.uber.org/zap"
)

// Store is every repository a service may need.
type Store interface {
	store.TicketRepository
	store.OrderRepository
	store.UserRepository
}

// OpenStore opens the configured entity store and applies schema to it. The
// returned checker backs the readiness endpoint; close releases the store.
func OpenStore(cfg *config.Config, schema string) (Store, api.Checker, func(), error) {
	logger := util.GetLogger()

	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), func(context.Context) error { return nil }, func() {}, nil
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Migrate(context.Background(), schema); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("Database connected")

	return db, db.Ping, func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}, nil
}
