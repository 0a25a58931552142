package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"ctfplatform/internal/common/cache"
	"ctfplatform/internal/common/db"
	"ctfplatform/internal/common/mq"
	"ctfplatform/internal/realtime"
	"ctfplatform/internal/schema"
	"ctfplatform/pkg/utils/logger"

	"go.uber.org/zap"
)

// Resources are the opened backends. Cache is nil when no Redis address is
// configured.
type Resources struct {
	DB      db.Database
	Cache   *cache.RedisCache
	Channel realtime.Channel
	Emitter *realtime.Emitter

	closers []func() error
}

// Open connects to every configured backend. On error everything opened so
// far is closed again.
func Open(ctx context.Context, cfg *Config) (*Resources, error) {
	res := &Resources{}
	ok := false
	defer func() {
		if !ok {
			res.Close()
		}
	}()

	database, err := OpenDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	res.DB = database
	res.closers = append(res.closers, database.Close)

	if *cfg.Database.AutoMigrate {
		if err := schema.Apply(ctx, database); err != nil {
			return nil, err
		}
	}

	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("init redis failed: %w", err)
		}
		res.Cache = redisCache
		res.closers = append(res.closers, redisCache.Close)
	}

	channel, err := OpenChannel(cfg.Realtime, res.Cache)
	if err != nil {
		return nil, err
	}
	res.Channel = channel
	res.closers = append(res.closers, channel.Close)

	res.Emitter = realtime.NewEmitter(channel, realtime.EmitterConfig{
		Channel:        cfg.Realtime.Channel,
		QueueSize:      cfg.Realtime.QueueSize,
		PublishTimeout: cfg.Realtime.PublishTimeout,
	})
	// the emitter drains before the channel closes
	res.closers = append(res.closers, func() error {
		res.Emitter.Close()
		return nil
	})

	logger.Info(ctx, "resources opened",
		zap.String("database", cfg.Database.Driver),
		zap.Bool("cache", res.Cache != nil),
		zap.String("realtime", cfg.Realtime.Driver),
	)
	ok = true
	return res, nil
}

// TaskCache returns the cache as the repository interface, keeping a nil
// *RedisCache from turning into a non-nil interface.
func (r *Resources) TaskCache() cache.Cache {
	if r.Cache == nil {
		return nil
	}
	return r.Cache
}

// Close releases resources in reverse order of opening.
func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// OpenDatabase opens the configured SQL database.
func OpenDatabase(cfg DatabaseConfig) (db.Database, error) {
	switch cfg.Driver {
	case DriverMySQL:
		mysqlCfg := cfg.MySQL
		database, err := db.NewMySQLWithConfig(&mysqlCfg)
		if err != nil {
			return nil, fmt.Errorf("init mysql failed: %w", err)
		}
		return database, nil
	case DriverSQLite:
		database, err := db.NewSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init sqlite failed: %w", err)
		}
		return database, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenChannel builds the realtime transport.
func OpenChannel(cfg RealtimeConfig, redisCache *cache.RedisCache) (realtime.Channel, error) {
	switch cfg.Driver {
	case RealtimeRedis:
		if redisCache == nil {
			return nil, fmt.Errorf("redis realtime driver needs a redis connection")
		}
		channel, err := realtime.NewRedisChannel(redisCache.Client())
		if err != nil {
			return nil, err
		}
		return channel, nil
	case RealtimeKafka:
		queue, err := mq.NewKafkaQueue(cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("init kafka failed: %w", err)
		}
		return realtime.NewQueueChannel(queue, cfg.ConsumerGroup), nil
	case RealtimeMemory:
		return realtime.NewMemoryChannel(), nil
	default:
		return nil, fmt.Errorf("unsupported realtime driver %q", cfg.Driver)
	}
}
