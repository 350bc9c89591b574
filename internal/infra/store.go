package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/abank/internal/config"
	"github.com/congo-pay/abank/internal/kvstore"
)

// Backends holds the document store and the connections behind it. DB and
// Cache are nil when not configured.
type Backends struct {
	Store kvstore.Store
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Open connects the backends selected by cfg. Redis is also opened when
// REDIS_URL is set for a non-redis store, for idempotency and rate limiting.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (Backends, error) {
	var b Backends

	if cfg.RedisURL != "" {
		cache, err := NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			return Backends{}, err
		}
		b.Cache = cache
	}

	switch cfg.StoreDriver {
	case "postgres":
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			b.Close(logger)
			return Backends{}, err
		}
		b.DB = db
		pg := kvstore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			b.Close(logger)
			return Backends{}, fmt.Errorf("ensure schema: %w", err)
		}
		b.Store = pg
	case "redis":
		b.Store = kvstore.NewRedis(b.Cache, cfg.RedisPrefix)
	default:
		b.Store = kvstore.NewMemory()
	}

	if cfg.StoreCache && cfg.StoreDriver != "memory" {
		b.Store = kvstore.NewCached(b.Store)
	}

	logger.Info("store opened",
		slog.String("driver", cfg.StoreDriver),
		slog.Bool("cache", cfg.StoreCache),
		slog.Bool("redis", b.Cache != nil),
	)
	return b, nil
}

// Close releases every open connection.
func (b Backends) Close(logger *slog.Logger) {
	if b.DB != nil {
		b.DB.Close()
	}
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil {
			logger.Warn("close redis", slog.Any("error", err))
		}
	}
}
