// Package storage holds the durable key-value slots the cart state is
// written to. Every write replaces the whole value under its key.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error) // ErrNotFound when absent
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Backend      string
	DBPath       string
	SQLiteDriver string // "sqlite" (modernc, pure Go) or "sqlite3" (mattn, cgo)
	RedisAddr    string
	RedisDB      int
}

func Open(ctx context.Context, cfg Config) (Slot, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return OpenSQLite(ctx, cfg.SQLiteDriver, cfg.DBPath)
	case BackendRedis:
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
