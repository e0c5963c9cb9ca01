// Package shard computes facet partials over one shard's matching documents.
package shard

import (
	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	"github.com/kailas-cloud/facetd/internal/index"
)

// plan is a request resolved against one shard's directory.
type plan struct {
	// decode lists every dimension whose block must be read.
	decode []ordinal.Local
	// reader decodes the shard's ordinal layout for the decode dimensions.
	reader ordinal.Reader
	// counted marks dimensions feeding count tallies.
	counted map[ordinal.Local]bool
	fields  []fieldPlan
}

type fieldPlan struct {
	spec   facet.FieldSpec
	global bool
	// dims marks dimensions feeding per-ordinal accumulators.
	dims map[ordinal.Local]bool
}

func newPlan(s *index.Shard, req *facet.Request) *plan {
	dir := s.Directory()
	p := &plan{counted: make(map[ordinal.Local]bool)}
	decode := make(map[ordinal.Local]bool)

	for _, c := range req.Counts() {
		if dim, ok := dir.Ordinal(c.Dim); ok {
			p.counted[dim] = true
			decode[dim] = true
		}
	}

	byField := make(map[string]int)
	for _, f := range req.Fields() {
		byField[f.Name] = len(p.fields)
		p.fields = append(p.fields, fieldPlan{spec: f, dims: make(map[ordinal.Local]bool)})
	}
	for _, s := range req.Stats() {
		fp := &p.fields[byField[s.Field]]
		if s.Global() {
			fp.global = true
			continue
		}
		if dim, ok := dir.Ordinal(s.Dim); ok {
			fp.dims[dim] = true
			decode[dim] = true
		}
	}

	for dim := range decode {
		p.decode = append(p.decode, dim)
	}
	p.reader = ordinal.NewReader(p.decode)
	if name, ok := s.SingleDimension(); ok {
		// Only the shard's own dimension can be in decode.
		p.reader = ordinal.NewReader(nil)
		if dim, ok := dir.Ordinal(name); ok && decode[dim] {
			p.reader = ordinal.NewSingleReader(dim)
		}
	}
	return p
}

func (f *fieldPlan) newAccumulator(ord ordinal.Local) (*stat.Accumulator, error) {
	return stat.New(f.spec.Source, ord, f.spec.Accuracy)
}
