package shard

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	"github.com/kailas-cloud/facetd/internal/index"
)

// cancelCheckInterval is how many documents are scanned between context checks.
const cancelCheckInterval = 1024

// tally holds the aggregates of one segment scan. Tallies are private to
// their goroutine and merged once after all segments finish.
type tally struct {
	dirSize int
	counts  []int64
	fields  []fieldTally
	matched int64
	corrupt int64
}

type fieldTally struct {
	global *stat.Accumulator
	perOrd map[ordinal.Local]*stat.Accumulator
}

type tagged struct {
	dim, ord ordinal.Local
}

func newTally(p *plan, dirSize int) (*tally, error) {
	t := &tally{dirSize: dirSize, fields: make([]fieldTally, len(p.fields))}
	if len(p.counted) > 0 {
		t.counts = make([]int64, dirSize)
	}
	for i := range p.fields {
		fp := &p.fields[i]
		ft := fieldTally{perOrd: make(map[ordinal.Local]*stat.Accumulator)}
		if fp.global {
			acc, err := fp.newAccumulator(ordinal.Invalid)
			if err != nil {
				return nil, fmt.Errorf("global %q: %w", fp.spec.Name, err)
			}
			ft.global = acc
		}
		t.fields[i] = ft
	}
	return t, nil
}

// scan aggregates the matching documents of one segment. Storage read
// errors abort the scan; corrupt ordinal buffers are counted and the
// document contributes no ordinals.
func (t *tally) scan(ctx context.Context, p *plan, seg index.Segment, m index.Matcher) error {
	sources := make([]index.NumericValues, len(p.fields))
	for i := range p.fields {
		vals, err := seg.Numeric(p.fields[i].spec.Name)
		switch {
		case errors.Is(err, index.ErrNoField):
		case err != nil:
			return fmt.Errorf("open numeric %q: %w", p.fields[i].spec.Name, err)
		default:
			sources[i] = vals
		}
	}

	var scratch []tagged
	outOfRange := false
	collect := func(dim, ord ordinal.Local) {
		if ord < 0 || int(ord) >= t.dirSize {
			outOfRange = true
			return
		}
		scratch = append(scratch, tagged{dim: dim, ord: ord})
	}

	it := m.Match(seg)
	for doc, ok := it.Next(); ok; doc, ok = it.Next() {
		if t.matched%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		t.matched++

		scratch = scratch[:0]
		if len(p.decode) > 0 {
			buf, err := seg.Ordinals(doc)
			if err != nil {
				return fmt.Errorf("read ordinals of doc %d: %w", doc, err)
			}
			outOfRange = false
			err = p.reader.Read(buf, collect)
			if err != nil && !errors.Is(err, ordinal.ErrCorrupt) {
				return fmt.Errorf("decode ordinals of doc %d: %w", doc, err)
			}
			if err != nil || outOfRange {
				t.corrupt++
				scratch = scratch[:0]
			}
		}

		if t.counts != nil {
			for _, e := range scratch {
				if p.counted[e.dim] {
					t.counts[e.ord]++
				}
			}
		}

		for i := range p.fields {
			if err := t.addValues(&p.fields[i], &t.fields[i], sources[i], doc, scratch); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *tally) addValues(fp *fieldPlan, ft *fieldTally, src index.NumericValues, doc int, tags []tagged) error {
	var vals []int64
	has := false
	if src != nil {
		var err error
		has, err = src.Advance(doc)
		if err != nil {
			return fmt.Errorf("read %q of doc %d: %w", fp.spec.Name, doc, err)
		}
		if has {
			vals = src.Values()
		}
	}

	if ft.global != nil {
		addAll(ft.global, vals, has)
	}
	for _, e := range tags {
		if !fp.dims[e.dim] {
			continue
		}
		acc, ok := ft.perOrd[e.ord]
		if !ok {
			var err error
			acc, err = fp.newAccumulator(e.ord)
			if err != nil {
				return fmt.Errorf("accumulator %q: %w", fp.spec.Name, err)
			}
			ft.perOrd[e.ord] = acc
		}
		addAll(acc, vals, has)
	}
	return nil
}

func addAll(acc *stat.Accumulator, vals []int64, has bool) {
	for _, v := range vals {
		acc.AddRaw(v)
	}
	acc.NewDoc(has)
}

// merge folds other into t.
func (t *tally) merge(other *tally) error {
	for i, c := range other.counts {
		t.counts[i] += c
	}
	t.matched += other.matched
	t.corrupt += other.corrupt
	for i := range t.fields {
		dst, src := &t.fields[i], &other.fields[i]
		if dst.global != nil {
			if err := dst.global.Merge(src.global); err != nil {
				return err
			}
		}
		for ord, acc := range src.perOrd {
			cur, ok := dst.perOrd[ord]
			if !ok {
				dst.perOrd[ord] = acc
				continue
			}
			if err := cur.Merge(acc); err != nil {
				return err
			}
		}
	}
	return nil
}
