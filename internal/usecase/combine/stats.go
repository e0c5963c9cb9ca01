package combine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
)

type statGroup struct {
	label    string
	acc      *stat.Accumulator
	shards   int
	maxError float64
	reported []bool
}

// Stats merges stat partials of one spec. Sketches from shards built with
// different accuracies are rejected with domain.ErrAccuracyMismatch.
func Stats(ctx context.Context, opts Options, parts []facet.StatPartial) (facet.StatResult, error) {
	if len(parts) == 0 {
		return facet.StatResult{}, nil
	}
	out := facet.StatResult{Field: parts[0].Field, Dim: parts[0].Dim, Path: parts[0].Path}
	if allUnknown(parts, func(p facet.StatPartial) bool { return p.Unknown }) {
		if out.Dim == "" {
			out.Error = "field not found"
		} else {
			out.Error = "dimension not found"
		}
		return out, nil
	}

	if out.Dim == "" {
		global, err := mergeGlobal(parts)
		if err != nil {
			return facet.StatResult{}, err
		}
		if global != nil {
			v, err := facet.NewStatValue(global, opts.Percentiles)
			if err != nil {
				return facet.StatResult{}, err
			}
			out.Global = &v
		}
		return out, nil
	}

	groups, err := groupStats(ctx, parts)
	if err != nil {
		return facet.StatResult{}, err
	}
	for i := range parts {
		out.ChildCount = max(out.ChildCount, parts[i].ChildCount)
	}
	out.ChildCount = max(out.ChildCount, len(groups))

	slices.SortFunc(groups, func(a, b *statGroup) int {
		if c := cmp.Compare(b.acc.Sum(), a.acc.Sum()); c != 0 {
			return c
		}
		return cmp.Compare(a.label, b.label)
	})

	total := cmp.Or(opts.TotalShards, len(parts))
	single := len(parts) == 1
	if !single {
		minSum := make([]float64, len(parts))
		for i := range parts {
			minSum[i] = parts[i].MinSum()
		}
		for _, g := range groups {
			for i := range parts {
				if !g.reported[i] && !opts.complete(len(parts[i].Entries)) {
					g.maxError += minSum[i]
				}
			}
		}
	}

	keep := opts.limit(len(groups))
	out.Entries = make([]facet.StatEntry, keep)
	for i, g := range groups[:keep] {
		v, err := facet.NewStatValue(g.acc, opts.Percentiles)
		if err != nil {
			return facet.StatResult{}, fmt.Errorf("label %q: %w", g.label, err)
		}
		out.Entries[i] = facet.StatEntry{
			Label:    g.label,
			Value:    v,
			HasError: !single && opts.ShardFacets != facet.Unlimited && g.shards < total,
			MaxError: g.maxError,
		}
	}
	if !single && keep > 0 && keep < len(groups) {
		floor := groups[keep-1].acc.Sum()
		var bound float64
		for _, g := range groups[keep:] {
			bound = max(bound, g.acc.Sum()+g.maxError)
		}
		if bound > floor {
			out.PossibleMissing = true
			out.MaxValuePossibleMissing = bound
		}
	}
	return out, nil
}

func mergeGlobal(parts []facet.StatPartial) (*stat.Accumulator, error) {
	var merged *stat.Accumulator
	for i := range parts {
		if parts[i].Global == nil {
			continue
		}
		acc, err := stat.FromSnapshot(*parts[i].Global)
		if err != nil {
			return nil, fmt.Errorf("shard partial %d: %w", i, err)
		}
		if merged == nil {
			merged = acc
			continue
		}
		if err := merged.Merge(acc); err != nil {
			return nil, fmt.Errorf("shard partial %d: %w", i, err)
		}
	}
	return merged, nil
}

func groupStats(ctx context.Context, parts []facet.StatPartial) ([]*statGroup, error) {
	byLabel := make(map[string]*statGroup)
	var groups []*statGroup
	n := 0
	for i := range parts {
		for _, e := range parts[i].Entries {
			if n%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			n++

			acc, err := stat.FromSnapshot(e.Stat)
			if err != nil {
				return nil, fmt.Errorf("label %q: %w", e.Label, err)
			}
			g, ok := byLabel[e.Label]
			if !ok {
				g = &statGroup{label: e.Label, acc: acc, reported: make([]bool, len(parts))}
				byLabel[e.Label] = g
				groups = append(groups, g)
			} else if err := g.acc.Merge(acc); err != nil {
				return nil, fmt.Errorf("label %q: %w", e.Label, err)
			}
			if !g.reported[i] {
				g.reported[i] = true
				g.shards++
			}
		}
	}
	return groups, nil
}
