// Package bootstrap loads the shared configuration and opens the
// resources both binaries need: database, cache and realtime transport.
package bootstrap

import (
	"fmt"
	"os"
	"strings"
	"time"

	"ctfplatform/internal/common/cache"
	"ctfplatform/internal/common/db"
	"ctfplatform/internal/common/mq"
	"ctfplatform/pkg/utils/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	RealtimeRedis  = "redis"
	RealtimeKafka  = "kafka"
	RealtimeMemory = "memory"

	defaultSQLitePath   = "data/ctfplatform.db"
	defaultJWTIssuer    = "ctfplatform"
	defaultTokenTTL     = 12 * time.Hour
	defaultTaskCacheTTL = 10 * time.Minute
	defaultTaskEmptyTTL = time.Minute
)

// Environment overrides for secrets and deployment specific values.
const (
	EnvDatabaseDSN    = "CTF_DATABASE_DSN"
	EnvRedisAddr      = "CTF_REDIS_ADDR"
	EnvJWTSecret      = "CTF_JWT_SECRET"
	EnvRealtimeDriver = "CTF_REALTIME_DRIVER"
)

// DatabaseConfig selects the SQL driver.
type DatabaseConfig struct {
	Driver string         `yaml:"driver"`
	MySQL  db.MySQLConfig `yaml:"mysql"`
	SQLite SQLiteConfig   `yaml:"sqlite"`
	// AutoMigrate creates missing tables on startup.
	AutoMigrate *bool `yaml:"autoMigrate"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RealtimeConfig selects the event transport.
type RealtimeConfig struct {
	Driver         string         `yaml:"driver"`
	Channel        string         `yaml:"channel"`
	QueueSize      int            `yaml:"queueSize"`
	PublishTimeout time.Duration  `yaml:"publishTimeout"`
	ConsumerGroup  string         `yaml:"consumerGroup"`
	Kafka          mq.KafkaConfig `yaml:"kafka"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

// CacheConfig tunes the task read cache.
type CacheConfig struct {
	TaskTTL      time.Duration `yaml:"taskTTL"`
	TaskEmptyTTL time.Duration `yaml:"taskEmptyTTL"`
}

// Config is shared by the platform service and the admin CLI.
type Config struct {
	Logger   logger.Config     `yaml:"logger"`
	Database DatabaseConfig    `yaml:"database"`
	Redis    cache.RedisConfig `yaml:"redis"`
	Realtime RealtimeConfig    `yaml:"realtime"`
	Auth     AuthConfig        `yaml:"auth"`
	Cache    CacheConfig       `yaml:"cache"`
}

// LoadYAML reads path into out.
func LoadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s failed: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvDatabaseDSN); ok && v != "" {
		if strings.ToLower(c.Database.Driver) == DriverSQLite {
			c.Database.SQLite.Path = v
		} else {
			c.Database.MySQL.DSN = v
		}
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Redis.Addr = v
	}
	if v, ok := lookup(EnvJWTSecret); ok && v != "" {
		c.Auth.JWTSecret = v
	}
	if v, ok := lookup(EnvRealtimeDriver); ok && v != "" {
		c.Realtime.Driver = v
	}
}

// ApplyDefaults fills unset values and validates the result.
func (c *Config) ApplyDefaults() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.AutoMigrate == nil {
		value := true
		c.Database.AutoMigrate = &value
	}
	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.MySQL.DSN == "" {
			return fmt.Errorf("database dsn is required")
		}
		applyMySQLDefaults(&c.Database.MySQL)
	case DriverSQLite:
		if c.Database.SQLite.Path == "" {
			c.Database.SQLite.Path = defaultSQLitePath
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Redis.Addr != "" {
		applyRedisDefaults(&c.Redis)
	}

	c.Realtime.Driver = strings.ToLower(strings.TrimSpace(c.Realtime.Driver))
	if c.Realtime.Driver == "" {
		if c.Redis.Addr != "" {
			c.Realtime.Driver = RealtimeRedis
		} else {
			c.Realtime.Driver = RealtimeMemory
		}
	}
	switch c.Realtime.Driver {
	case RealtimeRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis realtime driver")
		}
	case RealtimeKafka:
		if len(c.Realtime.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required for the kafka realtime driver")
		}
	case RealtimeMemory:
	default:
		return fmt.Errorf("unsupported realtime driver %q", c.Realtime.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = defaultJWTIssuer
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = defaultTokenTTL
	}
	if c.Cache.TaskTTL <= 0 {
		c.Cache.TaskTTL = defaultTaskCacheTTL
	}
	if c.Cache.TaskEmptyTTL <= 0 {
		c.Cache.TaskEmptyTTL = defaultTaskEmptyTTL
	}
	return nil
}

func applyMySQLDefaults(cfg *db.MySQLConfig) {
	defaults := db.DefaultMySQLConfig()
	if cfg.MaxOpenConnections == 0 {
		cfg.MaxOpenConnections = defaults.MaxOpenConnections
	}
	if cfg.MaxIdleConnections == 0 {
		cfg.MaxIdleConnections = defaults.MaxIdleConnections
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
}
