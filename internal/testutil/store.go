package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"ctfplatform/internal/common/cache"
	"ctfplatform/internal/common/db"
	"ctfplatform/internal/schema"

	"github.com/alicebob/miniredis/v2"
)

// NewSQLite opens a file database under t.TempDir with the schema applied.
func NewSQLite(t *testing.T) *db.SQLite {
	t.Helper()
	database, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	if err := schema.Apply(context.Background(), database); err != nil {
		t.Fatalf("apply schema failed: %v", err)
	}
	return database
}

// NewRedis starts a miniredis server and a cache connected to it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *cache.RedisCache) {
	t.Helper()
	server := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCache(server.Addr())
	if err != nil {
		t.Fatalf("connect miniredis failed: %v", err)
	}
	t.Cleanup(func() {
		_ = redisCache.Close()
	})
	return server, redisCache
}
