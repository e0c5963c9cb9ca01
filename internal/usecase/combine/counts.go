// Package combine merges per-shard facet partials into one global answer
// with a worst-case error bound for every label.
package combine

import (
	"cmp"
	"context"
	"slices"

	"github.com/kailas-cloud/facetd/internal/domain/facet"
)

// cancelCheckInterval is how many labels are merged between context checks.
const cancelCheckInterval = 256

// Options carries the request limits a partial set was produced with.
type Options struct {
	// Limit caps the combined entries (max facets or top N).
	Limit int
	// ShardFacets is the per-shard budget, facet.Unlimited when none.
	ShardFacets int
	// TotalShards is the number of shards queried; zero means len(parts).
	TotalShards int
	// Percentiles are answered from merged sketches.
	Percentiles []float64
}

func (o Options) limit(n int) int {
	if o.Limit <= 0 || o.Limit > n {
		return n
	}
	return o.Limit
}

// complete reports whether a shard returned everything it had: either the
// budget was unlimited or the shard sent fewer entries than allowed.
func (o Options) complete(entries int) bool {
	return o.ShardFacets == facet.Unlimited || entries < o.ShardFacets
}

type countGroup struct {
	label    string
	count    int64
	maxError int64
	reported []bool
}

// Counts merges count partials. Every returned entry's true global count
// lies in [Count, Count+MaxError].
func Counts(ctx context.Context, opts Options, parts []facet.CountPartial) (facet.CountResult, error) {
	if len(parts) == 0 {
		return facet.CountResult{Entries: []facet.CountEntry{}}, nil
	}
	out := facet.CountResult{Dim: parts[0].Dim, Path: parts[0].Path}
	if allUnknown(parts, func(p facet.CountPartial) bool { return p.Unknown }) {
		out.Entries = []facet.CountEntry{}
		out.Error = "dimension not found"
		return out, nil
	}
	if len(parts) == 1 {
		return singleCount(opts, parts[0]), nil
	}

	byLabel := make(map[string]*countGroup)
	var groups []*countGroup
	minForShard := make([]int64, len(parts))
	for i := range parts {
		p := &parts[i]
		minForShard[i] = p.MinCount()
		out.Total += p.Total
		out.ChildCount = max(out.ChildCount, p.ChildCount)
		for _, e := range p.Entries {
			g, ok := byLabel[e.Label]
			if !ok {
				g = &countGroup{label: e.Label, reported: make([]bool, len(parts))}
				byLabel[e.Label] = g
				groups = append(groups, g)
			}
			g.count += e.Count
			g.reported[i] = true
		}
	}
	out.ChildCount = max(out.ChildCount, len(groups))

	slices.SortFunc(groups, func(a, b *countGroup) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.label, b.label)
	})

	for n, g := range groups {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return facet.CountResult{}, err
			}
		}
		for i := range parts {
			if !g.reported[i] && !opts.complete(len(parts[i].Entries)) {
				g.maxError += minForShard[i]
			}
		}
	}

	keep := opts.limit(len(groups))
	out.Entries = make([]facet.CountEntry, keep)
	for i, g := range groups[:keep] {
		out.Entries[i] = facet.CountEntry{Label: g.label, Count: g.count, MaxError: g.maxError}
	}
	if keep > 0 && keep < len(groups) {
		floor := groups[keep-1].count
		var bound int64
		for _, g := range groups[keep:] {
			bound = max(bound, g.count+g.maxError)
		}
		if bound > floor {
			out.PossibleMissing = true
			out.MaxValuePossibleMissing = bound
		}
	}
	return out, nil
}

func singleCount(opts Options, p facet.CountPartial) facet.CountResult {
	keep := opts.limit(len(p.Entries))
	out := facet.CountResult{
		Dim:        p.Dim,
		Path:       p.Path,
		Entries:    make([]facet.CountEntry, keep),
		ChildCount: p.ChildCount,
		Total:      p.Total,
	}
	for i, e := range p.Entries[:keep] {
		out.Entries[i] = facet.CountEntry{Label: e.Label, Count: e.Count}
	}
	return out
}

func allUnknown[T any](parts []T, unknown func(T) bool) bool {
	for _, p := range parts {
		if !unknown(p) {
			return false
		}
	}
	return true
}
