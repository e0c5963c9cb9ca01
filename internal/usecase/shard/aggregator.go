package shard

import (
	"cmp"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	"github.com/kailas-cloud/facetd/internal/domain/topn"
	"github.com/kailas-cloud/facetd/internal/index"
)

// Aggregator computes one request's partials over a shard.
type Aggregator struct {
	shard       *index.Shard
	req         facet.Request
	plan        *plan
	parallelism int
}

// NewAggregator resolves req against the shard's directory. Segments are
// scanned with at most parallelism goroutines.
func NewAggregator(s *index.Shard, req facet.Request, parallelism int) *Aggregator {
	return &Aggregator{
		shard:       s,
		req:         req,
		plan:        newPlan(s, &req),
		parallelism: max(parallelism, 1),
	}
}

// Collect scans every segment for the documents m selects and reduces the
// per-segment tallies into one Result.
func (a *Aggregator) Collect(ctx context.Context, m index.Matcher) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := a.shard.Directory()
	segments := a.shard.Segments()
	tallies := make([]*tally, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for i, seg := range segments {
		g.Go(func() error {
			t, err := newTally(a.plan, dir.Size())
			if err != nil {
				return err
			}
			if err := t.scan(gctx, a.plan, seg, m); err != nil {
				return fmt.Errorf("segment %d: %w", i, err)
			}
			tallies[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total, err := newTally(a.plan, dir.Size())
	if err != nil {
		return nil, err
	}
	for _, t := range tallies {
		if err := total.merge(t); err != nil {
			return nil, fmt.Errorf("reduce: %w", err)
		}
	}
	return &Result{dir: dir, plan: a.plan, tally: total}, nil
}

// Run collects and renders every partial of the request.
func (a *Aggregator) Run(ctx context.Context, m index.Matcher) (facet.ShardResponse, error) {
	res, err := a.Collect(ctx, m)
	if err != nil {
		return facet.ShardResponse{}, err
	}

	resp := facet.ShardResponse{
		Shard:       a.shard.ID(),
		Counts:      make([]facet.CountPartial, 0, len(a.req.Counts())),
		Stats:       make([]facet.StatPartial, 0, len(a.req.Stats())),
		MatchedDocs: res.tally.matched,
		CorruptDocs: res.tally.corrupt,
	}
	for _, c := range a.req.Counts() {
		resp.Counts = append(resp.Counts, res.TopChildren(c))
	}
	for _, s := range a.req.Stats() {
		var p facet.StatPartial
		if s.Global() {
			p = res.GlobalStat(s.Field)
		} else {
			p = res.TopStatChildren(s)
		}
		resp.Stats = append(resp.Stats, p)
	}
	return resp, nil
}

// Result is the reduced aggregate of one shard.
type Result struct {
	dir   index.Directory
	plan  *plan
	tally *tally
}

// MatchedDocs returns the number of documents scanned.
func (r *Result) MatchedDocs() int64 { return r.tally.matched }

// CorruptDocs returns the number of documents whose ordinal buffer was
// unreadable.
func (r *Result) CorruptDocs() int64 { return r.tally.corrupt }

// Count returns the tally of one ordinal.
func (r *Result) Count(ord ordinal.Local) int64 {
	if ord < 0 || int(ord) >= len(r.tally.counts) {
		return 0
	}
	return r.tally.counts[ord]
}

type ordCount struct {
	ord   ordinal.Local
	count int64
}

// TopChildren selects the children of spec's path with the highest counts,
// ties broken by ascending ordinal.
func (r *Result) TopChildren(spec facet.CountSpec) facet.CountPartial {
	out := facet.CountPartial{Dim: spec.Dim, Path: spec.Path, Entries: []facet.LabelCount{}}
	parent, ok := r.dir.Ordinal(append([]string{spec.Dim}, spec.Path...)...)
	if !ok || r.tally.counts == nil {
		out.Unknown = true
		return out
	}
	out.Total = r.Count(parent)

	h := topn.New(r.budget(parent, spec.ShardFacets), func(a, b ordCount) bool {
		if a.count != b.count {
			return a.count > b.count
		}
		return a.ord < b.ord
	})
	for child := range r.dir.Children(parent) {
		n := r.Count(child)
		if n == 0 {
			continue
		}
		out.ChildCount++
		h.Offer(ordCount{ord: child, count: n})
	}
	for _, e := range h.Drain() {
		label, _ := r.dir.Label(e.ord)
		out.Entries = append(out.Entries, facet.LabelCount{Label: label, Count: e.count})
	}
	return out
}

// TopStatChildren selects the children of spec's path with the highest
// sums, ties broken by ascending ordinal. Children no matching document
// touched have no accumulator and are skipped.
func (r *Result) TopStatChildren(spec facet.StatSpec) facet.StatPartial {
	out := facet.StatPartial{Field: spec.Field, Dim: spec.Dim, Path: spec.Path, Entries: []facet.LabelStat{}}
	ft := r.field(spec.Field)
	parent, ok := r.dir.Ordinal(append([]string{spec.Dim}, spec.Path...)...)
	if !ok || ft == nil {
		out.Unknown = true
		return out
	}

	h := topn.New(r.budget(parent, spec.ShardFacets), func(a, b *stat.Accumulator) bool {
		return a.Compare(b) < 0
	})
	for child := range r.dir.Children(parent) {
		acc, ok := ft.perOrd[child]
		if !ok {
			continue
		}
		out.ChildCount++
		h.Offer(acc)
	}
	for _, acc := range h.Drain() {
		label, _ := r.dir.Label(acc.Ordinal())
		out.Entries = append(out.Entries, facet.LabelStat{Label: label, Stat: acc.Snapshot()})
	}
	return out
}

// GlobalStat returns the shard-wide aggregate of a field.
func (r *Result) GlobalStat(field string) facet.StatPartial {
	out := facet.StatPartial{Field: field}
	ft := r.field(field)
	if ft == nil || ft.global == nil {
		out.Unknown = true
		return out
	}
	snap := ft.global.Snapshot()
	out.Global = &snap
	return out
}

func (r *Result) field(name string) *fieldTally {
	for i := range r.plan.fields {
		if r.plan.fields[i].spec.Name == name {
			return &r.tally.fields[i]
		}
	}
	return nil
}

// budget converts a shard facet budget to a heap capacity.
func (r *Result) budget(parent ordinal.Local, shardFacets int) int {
	if shardFacets == facet.Unlimited {
		n := 0
		for range r.dir.Children(parent) {
			n++
		}
		return n
	}
	return cmp.Or(shardFacets, facet.DefaultTopN)
}
