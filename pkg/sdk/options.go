package facetd

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	shards      []int
	totalShards int
	keyPrefix   string
	segmentSize int
	parallelism int
	maxTopN     int
	singleDim   string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithShards sets the shard ids this client hosts and the cluster-wide shard
// count. Default: shard 0 of 1.
func WithShards(ids []int, total int) Option {
	return optionFunc(func(c *clientConfig) {
		c.shards = ids
		c.totalShards = total
	})
}

// WithKeyPrefix namespaces every stored key. Default: "facetd:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithSegmentSize sets how many documents one segment holds. Segments are
// scanned in parallel. Default: 4096.
func WithSegmentSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.segmentSize = n
	})
}

// WithSingleDimension stores new shards in the compact single-dimension
// layout. Every ingested document must then be tagged under dim only.
func WithSingleDimension(dim string) Option {
	return optionFunc(func(c *clientConfig) {
		c.singleDim = dim
	})
}

// WithParallelism caps concurrent segment scans per shard.
// Default: GOMAXPROCS.
func WithParallelism(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.parallelism = n
	})
}

// WithMaxTopN rejects queries asking for more than n children per facet.
func WithMaxTopN(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTopN = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
