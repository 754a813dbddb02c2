package cli

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"taskforest/app/config"
	"taskforest/app/lock"
	"taskforest/app/services"
	"taskforest/app/store"
	"taskforest/app/store/memstore"
	"taskforest/app/store/neo4jstore"
)

// deps are the long-lived collaborators of the task service.
type deps struct {
	store   store.Store
	locker  lock.Locker
	service *services.TaskService
	closers []func(context.Context) error
}

func (d *deps) Close(ctx context.Context) error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildDeps opens the configured store and lock.
func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (*deps, error) {
	d := &deps{}

	switch strings.ToLower(cfg.StoreBackend) {
	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		d.store = memstore.New()
	case config.BackendNeo4j:
		driver, err := config.InitNeo4j(ctx, cfg)
		if err != nil {
			return nil, err
		}
		st := neo4jstore.New(driver, cfg.Neo4jDatabase)
		d.closers = append(d.closers, st.Close)
		if err := st.EnsureSchema(ctx); err != nil {
			d.Close(ctx)
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		d.store = st
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.RedisAddr != "" {
		client, err := config.InitRedis(ctx, cfg)
		if err != nil {
			d.Close(ctx)
			return nil, err
		}
		d.closers = append(d.closers, func(context.Context) error { return client.Close() })
		d.locker = lock.NewRedisLocker(client, "taskforest:lock:", cfg.LockTTL, logger)
		logger.Info("using redis lock", zap.String("addr", cfg.RedisAddr))
	} else {
		d.locker = lock.NewKeyedMutex()
	}

	d.service = services.NewTaskService(d.store, d.locker, logger)
	return d, nil
}
