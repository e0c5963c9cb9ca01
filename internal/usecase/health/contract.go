package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ShardCounter reports how many hosted shards hold documents.
type ShardCounter interface {
	ShardIDs() []int
	LoadedShards() int
}
