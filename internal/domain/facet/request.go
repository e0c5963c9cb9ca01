// Package facet defines facet requests, per-shard partial results and
// combined results. Everything here is keyed by label strings; shard-local
// ordinals never appear.
package facet

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/facetd/internal/domain"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
)

// Request parameter limits.
const (
	// Unlimited disables the per-shard budget: a shard returns every child.
	Unlimited       = -1
	DefaultTopN     = 10
	MaxTopN         = 10000
	MaxSpecs        = 64
	MaxPathDepth    = 32
	DefaultAccuracy = 0.01
)

// CountSpec asks for the top children of (Dim, Path...) by document count.
// TopN caps the combined result; ShardFacets is the per-shard budget.
type CountSpec struct {
	Dim         string   `json:"dim"`
	Path        []string `json:"path,omitempty"`
	TopN        int      `json:"top_n"`
	ShardFacets int      `json:"shard_facets"`
}

// StatSpec asks for aggregates of one numeric field, globally (Dim == "") or
// per child of (Dim, Path...).
type StatSpec struct {
	Field       string      `json:"field"`
	Source      stat.Source `json:"source"`
	Dim         string      `json:"dim,omitempty"`
	Path        []string    `json:"path,omitempty"`
	TopN        int         `json:"top_n"`
	ShardFacets int         `json:"shard_facets"`
	Percentiles []float64   `json:"percentiles,omitempty"`
	Accuracy    float64     `json:"accuracy,omitempty"`
}

// Global reports whether the spec aggregates the whole shard.
func (s StatSpec) Global() bool { return s.Dim == "" }

// Request is a validated set of facet specs for one query.
type Request struct {
	counts []CountSpec
	stats  []StatSpec
}

// NewRequest validates and normalizes facet specs. Defaults: TopN=10 and
// ShardFacets=TopN. Requesting different sketch accuracies or sources for
// one numeric field is rejected.
func NewRequest(counts []CountSpec, stats []StatSpec) (Request, error) {
	if len(counts)+len(stats) == 0 {
		return Request{}, fmt.Errorf("%w: at least one facet spec is required", domain.ErrInvalidRequest)
	}
	if len(counts)+len(stats) > MaxSpecs {
		return Request{}, fmt.Errorf("%w: too many facet specs (max %d)", domain.ErrInvalidRequest, MaxSpecs)
	}

	req := Request{
		counts: make([]CountSpec, len(counts)),
		stats:  make([]StatSpec, len(stats)),
	}
	for i, c := range counts {
		if c.Dim == "" {
			return Request{}, fmt.Errorf("%w: counts[%d]: dim is required", domain.ErrInvalidRequest, i)
		}
		if len(c.Path) > MaxPathDepth {
			return Request{}, fmt.Errorf("%w: counts[%d]: path too deep", domain.ErrInvalidRequest, i)
		}
		topN, shardFacets, err := normalizeLimits(c.TopN, c.ShardFacets)
		if err != nil {
			return Request{}, fmt.Errorf("%w: counts[%d]: %w", domain.ErrInvalidRequest, i, err)
		}
		c.Path = slices.Clone(c.Path)
		c.TopN, c.ShardFacets = topN, shardFacets
		req.counts[i] = c
	}

	type fieldConf struct {
		source   stat.Source
		accuracy float64
	}
	fields := make(map[string]fieldConf)
	for i, s := range stats {
		if s.Field == "" {
			return Request{}, fmt.Errorf("%w: stats[%d]: field is required", domain.ErrInvalidRequest, i)
		}
		if !s.Source.IsValid() {
			return Request{}, fmt.Errorf("%w: stats[%d]: invalid source %q", domain.ErrInvalidRequest, i, s.Source)
		}
		if s.Dim == "" && len(s.Path) > 0 {
			return Request{}, fmt.Errorf("%w: stats[%d]: path without dim", domain.ErrInvalidRequest, i)
		}
		if len(s.Path) > MaxPathDepth {
			return Request{}, fmt.Errorf("%w: stats[%d]: path too deep", domain.ErrInvalidRequest, i)
		}
		if s.Accuracy < 0 {
			s.Accuracy = 0
		}
		if s.Accuracy >= stat.MaxAccuracy {
			return Request{}, fmt.Errorf("%w: stats[%d]: accuracy %g must be below %g",
				domain.ErrInvalidRequest, i, s.Accuracy, stat.MaxAccuracy)
		}
		if len(s.Percentiles) > 0 && s.Accuracy == 0 {
			return Request{}, fmt.Errorf("%w: stats[%d]: percentiles need a positive accuracy",
				domain.ErrInvalidRequest, i)
		}
		for _, p := range s.Percentiles {
			if p < 0 || p > 100 {
				return Request{}, fmt.Errorf("%w: stats[%d]: percentile %g out of [0, 100]",
					domain.ErrInvalidRequest, i, p)
			}
		}
		if prev, ok := fields[s.Field]; ok {
			if prev.accuracy != s.Accuracy {
				return Request{}, fmt.Errorf("%w: field %q requested with %g and %g",
					domain.ErrConflictingPrecision, s.Field, prev.accuracy, s.Accuracy)
			}
			if prev.source != s.Source {
				return Request{}, fmt.Errorf("%w: field %q requested as %s and %s",
					domain.ErrInvalidRequest, s.Field, prev.source, s.Source)
			}
		}
		fields[s.Field] = fieldConf{source: s.Source, accuracy: s.Accuracy}

		topN, shardFacets, err := normalizeLimits(s.TopN, s.ShardFacets)
		if err != nil {
			return Request{}, fmt.Errorf("%w: stats[%d]: %w", domain.ErrInvalidRequest, i, err)
		}
		s.Path = slices.Clone(s.Path)
		s.Percentiles = slices.Clone(s.Percentiles)
		s.TopN, s.ShardFacets = topN, shardFacets
		req.stats[i] = s
	}
	return req, nil
}

func normalizeLimits(topN, shardFacets int) (int, int, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if topN > MaxTopN {
		return 0, 0, fmt.Errorf("top_n %d exceeds %d", topN, MaxTopN)
	}
	switch {
	case shardFacets == 0:
		shardFacets = topN
	case shardFacets == Unlimited:
	case shardFacets < 0:
		return 0, 0, fmt.Errorf("shard_facets must be positive or %d", Unlimited)
	case shardFacets < topN:
		return 0, 0, fmt.Errorf("shard_facets %d below top_n %d", shardFacets, topN)
	}
	return topN, shardFacets, nil
}

// Counts returns the count specs in request order.
func (r *Request) Counts() []CountSpec { return r.counts }

// Stats returns the stat specs in request order.
func (r *Request) Stats() []StatSpec { return r.stats }

// Fields returns each distinct numeric field with its source and accuracy.
func (r *Request) Fields() []FieldSpec {
	var out []FieldSpec
	seen := make(map[string]bool)
	for _, s := range r.stats {
		if seen[s.Field] {
			continue
		}
		seen[s.Field] = true
		out = append(out, FieldSpec{Name: s.Field, Source: s.Source, Accuracy: s.Accuracy})
	}
	return out
}

// FieldSpec is the per-field configuration shared by all stat specs of a field.
type FieldSpec struct {
	Name     string
	Source   stat.Source
	Accuracy float64
}
