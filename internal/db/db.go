// Package db declares the storage facade the shard repository runs on.
package db

import (
	"context"
	"time"
)

// Store combines every capability a facetd node needs from its database.
type Store interface {
	Pinger
	HashStore
	KeyStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one key and its fields for a pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore reads and writes hashes. Multi variants pipeline one command
// per key and fail on the first bad reply.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// KeyStore covers plain string keys, counters and keyspace walks.
type KeyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	// Unlink removes keys without blocking the server and returns how many existed.
	Unlink(ctx context.Context, keys ...string) (int64, error)
	// ScanEach calls fn with every page of keys matching pattern. A key may
	// be reported more than once; fn errors stop the walk.
	ScanEach(ctx context.Context, pattern string, fn func(keys []string) error) error
}
