package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"club-auth/internal/config"
	"club-auth/internal/db"
	"club-auth/internal/logger"
	"club-auth/internal/redis"
	"club-auth/internal/session"
	"club-auth/internal/store"
)

// Infra holds the external connections and the stores built on them.
// DB and Redis are nil when the matching in-memory driver is selected.
type Infra struct {
	DB    *db.DB
	Redis *redis.Client

	Records  store.RecordStore
	Sessions session.Store

	closers []func() error
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		conn, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		infra.DB = conn
		infra.Records = store.NewPostgres(conn, store.WithCredentialTTL(cfg.CredentialTTL))
		infra.closers = append(infra.closers, conn.Close)
		logger.Info("database ready", nil)
	default:
		infra.Records = store.NewMemory(store.WithCredentialTTL(cfg.CredentialTTL))
		logger.Warn("using in-memory record store", nil)
	}

	switch cfg.SessionDriver {
	case config.SessionDriverRedis:
		client, err := redis.New(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		infra.Redis = client
		infra.Sessions = session.NewRedisStore(client.Client)
		infra.closers = append(infra.closers, client.Close)
		logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})
	default:
		mem := session.NewMemoryStore()
		infra.Sessions = mem
		infra.closers = append(infra.closers, func() error {
			mem.Close()
			return nil
		})
		logger.Warn("using in-memory session store", nil)
	}

	return infra, nil
}

// Check reports whether the configured backends are reachable. In-memory
// drivers are always healthy.
func (i *Infra) Check(ctx context.Context) error {
	var errs []error
	if i.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := i.DB.PingContext(pingCtx); err != nil {
			errs = append(errs, fmt.Errorf("db: ping: %w", err))
		}
		cancel()
	}
	if i.Redis != nil {
		if err := i.Redis.Check(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases connections in reverse order of creation.
func (i *Infra) Close() error {
	var errs []error
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return errors.Join(errs...)
}
