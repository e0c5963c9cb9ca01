package facetd

import (
	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	"github.com/kailas-cloud/facetd/internal/index"
)

// Query collects facet requests and an optional document restriction.
type Query struct {
	counts []facet.CountSpec
	stats  []facet.StatSpec
	docs   []int
	hasIDs bool
}

// NewQuery starts an empty query over every document.
func NewQuery() *Query { return &Query{} }

// SpecOption tunes one count or stat request.
type SpecOption func(*specConfig)

type specConfig struct {
	dim         string
	path        []string
	topN        int
	shardFacets int
	percentiles []float64
	accuracy    float64
}

// Under drills into a hierarchical dimension: children of dim/path...
func Under(path ...string) SpecOption {
	return func(c *specConfig) { c.path = path }
}

// By groups a stat by the children of dim. Without it the stat is global.
func By(dim string) SpecOption {
	return func(c *specConfig) { c.dim = dim }
}

// Top caps the number of returned children. Default: 10.
func Top(n int) SpecOption {
	return func(c *specConfig) { c.topN = n }
}

// ShardTop sets how many children each shard returns; larger budgets
// tighten error bounds. Use Unlimited for exact results. Default: Top.
func ShardTop(n int) SpecOption {
	return func(c *specConfig) { c.shardFacets = n }
}

// Percentiles requests quantiles (0..100) from a sketch. Implies the
// default accuracy unless Accuracy is also given.
func Percentiles(ps ...float64) SpecOption {
	return func(c *specConfig) { c.percentiles = ps }
}

// Accuracy sets the relative accuracy of the quantile sketch.
func Accuracy(a float64) SpecOption {
	return func(c *specConfig) { c.accuracy = a }
}

func applySpec(opts []SpecOption) specConfig {
	var c specConfig
	for _, o := range opts {
		o(&c)
	}
	return c
}

// Count requests the top children of dim by document count.
func (q *Query) Count(dim string, opts ...SpecOption) *Query {
	c := applySpec(opts)
	q.counts = append(q.counts, facet.CountSpec{
		Dim:         dim,
		Path:        c.path,
		TopN:        c.topN,
		ShardFacets: c.shardFacets,
	})
	return q
}

// Stat requests aggregates of a numeric field stored as src.
func (q *Query) Stat(field string, src Source, opts ...SpecOption) *Query {
	c := applySpec(opts)
	if len(c.percentiles) > 0 && c.accuracy == 0 {
		c.accuracy = facet.DefaultAccuracy
	}
	q.stats = append(q.stats, facet.StatSpec{
		Field:       field,
		Source:      stat.Source(src),
		Dim:         c.dim,
		Path:        c.path,
		TopN:        c.topN,
		ShardFacets: c.shardFacets,
		Percentiles: c.percentiles,
		Accuracy:    c.accuracy,
	})
	return q
}

// Docs restricts the query to the given doc ids. On Facets ids apply to
// every hosted shard; on ShardFacets to that shard only.
func (q *Query) Docs(ids ...int) *Query {
	q.docs = append(q.docs, ids...)
	q.hasIDs = true
	return q
}

func (q *Query) request() (facet.Request, error) {
	return facet.NewRequest(q.counts, q.stats)
}

func (q *Query) matcher() index.Matcher {
	if !q.hasIDs {
		return index.MatchAll{}
	}
	return index.MatchDocs(q.docs...)
}
