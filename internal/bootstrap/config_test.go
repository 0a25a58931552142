package bootstrap_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ctfplatform/internal/bootstrap"
	"ctfplatform/internal/testutil"
)

func lookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestApplyDefaults_SQLiteMemory(t *testing.T) {
	cfg := bootstrap.Config{}
	cfg.Auth.JWTSecret = "s"
	testutil.AssertNoError(t, cfg.ApplyDefaults())

	testutil.AssertEqual(t, cfg.Database.Driver, bootstrap.DriverSQLite)
	testutil.AssertEqual(t, cfg.Database.SQLite.Path, "data/ctfplatform.db")
	testutil.AssertTrue(t, *cfg.Database.AutoMigrate, "auto migrate defaults on")
	testutil.AssertEqual(t, cfg.Realtime.Driver, bootstrap.RealtimeMemory)
	testutil.AssertEqual(t, cfg.Auth.Issuer, "ctfplatform")
	testutil.AssertEqual(t, cfg.Auth.TokenTTL, 12*time.Hour)
	testutil.AssertEqual(t, cfg.Cache.TaskTTL, 10*time.Minute)
	testutil.AssertEqual(t, cfg.Cache.TaskEmptyTTL, time.Minute)
}

func TestApplyDefaults_RedisSelectsRedisRealtime(t *testing.T) {
	cfg := bootstrap.Config{}
	cfg.Auth.JWTSecret = "s"
	cfg.Redis.Addr = "localhost:6379"
	testutil.AssertNoError(t, cfg.ApplyDefaults())
	testutil.AssertEqual(t, cfg.Realtime.Driver, bootstrap.RealtimeRedis)
	testutil.AssertTrue(t, cfg.Redis.PoolSize > 0, "redis defaults applied")
}

func TestApplyDefaults_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*bootstrap.Config)
	}{
		{"missing secret", func(c *bootstrap.Config) { c.Auth.JWTSecret = "" }},
		{"mysql without dsn", func(c *bootstrap.Config) { c.Database.Driver = "mysql" }},
		{"unknown driver", func(c *bootstrap.Config) { c.Database.Driver = "oracle" }},
		{"redis realtime without redis", func(c *bootstrap.Config) { c.Realtime.Driver = "redis" }},
		{"kafka without brokers", func(c *bootstrap.Config) { c.Realtime.Driver = "kafka" }},
		{"unknown realtime", func(c *bootstrap.Config) { c.Realtime.Driver = "carrier-pigeon" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := bootstrap.Config{}
			cfg.Auth.JWTSecret = "s"
			tc.mutate(&cfg)
			testutil.AssertTrue(t, cfg.ApplyDefaults() != nil, "config should be rejected")
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := bootstrap.Config{}
	cfg.Database.Driver = "mysql"
	cfg.ApplyEnv(lookup(map[string]string{
		bootstrap.EnvDatabaseDSN:    "user:pass@tcp(db:3306)/ctf",
		bootstrap.EnvRedisAddr:      "redis:6379",
		bootstrap.EnvJWTSecret:      "from-env",
		bootstrap.EnvRealtimeDriver: "kafka",
	}))
	testutil.AssertEqual(t, cfg.Database.MySQL.DSN, "user:pass@tcp(db:3306)/ctf")
	testutil.AssertEqual(t, cfg.Redis.Addr, "redis:6379")
	testutil.AssertEqual(t, cfg.Auth.JWTSecret, "from-env")
	testutil.AssertEqual(t, cfg.Realtime.Driver, "kafka")

	lite := bootstrap.Config{}
	lite.Database.Driver = "sqlite"
	lite.ApplyEnv(lookup(map[string]string{bootstrap.EnvDatabaseDSN: "/tmp/x.db"}))
	testutil.AssertEqual(t, lite.Database.SQLite.Path, "/tmp/x.db")
	testutil.AssertEqual(t, lite.Database.MySQL.DSN, "")
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logger:
  level: debug
database:
  driver: sqlite
  sqlite:
    path: ctf.db
  autoMigrate: false
redis:
  addr: localhost:6379
realtime:
  channel: events
  queueSize: 16
auth:
  jwtSecret: yaml-secret
  tokenTTL: 1h
cache:
  taskTTL: 30s
`
	testutil.AssertNoError(t, os.WriteFile(path, []byte(content), 0o600))

	var cfg bootstrap.Config
	testutil.AssertNoError(t, bootstrap.LoadYAML(path, &cfg))
	testutil.AssertEqual(t, cfg.Logger.Level, "debug")
	testutil.AssertEqual(t, cfg.Database.SQLite.Path, "ctf.db")
	testutil.AssertFalse(t, *cfg.Database.AutoMigrate, "autoMigrate read from yaml")
	testutil.AssertEqual(t, cfg.Redis.Addr, "localhost:6379")
	testutil.AssertEqual(t, cfg.Realtime.Channel, "events")
	testutil.AssertEqual(t, cfg.Realtime.QueueSize, 16)
	testutil.AssertEqual(t, cfg.Auth.JWTSecret, "yaml-secret")
	testutil.AssertEqual(t, cfg.Auth.TokenTTL, time.Hour)
	testutil.AssertEqual(t, cfg.Cache.TaskTTL, 30*time.Second)

	testutil.AssertTrue(t, bootstrap.LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"), &cfg) != nil, "missing file is an error")
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	testutil.AssertNoError(t, os.WriteFile(path, []byte("CTF_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("CTF_TEST_DOTENV") })

	testutil.AssertNoError(t, bootstrap.LoadDotEnv(filepath.Join(t.TempDir(), "absent"), path))
	testutil.AssertEqual(t, os.Getenv("CTF_TEST_DOTENV"), "loaded")
}
