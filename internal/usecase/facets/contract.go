package facets

import (
	"context"

	"github.com/kailas-cloud/facetd/internal/index"
)

// ShardStore persists shards and hydrates them into memory.
type ShardStore interface {
	Load(ctx context.Context, id int) (*index.Shard, error)
	Append(
		ctx context.Context, id int, tax *index.Taxonomy, newFrom int,
		docs []index.Document, schema index.Schema,
	) ([]int, error)
	Drop(ctx context.Context, id int) error
}
