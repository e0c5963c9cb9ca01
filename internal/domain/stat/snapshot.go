package stat

import (
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/DataDog/sketches-go/ddsketch/store"

	"github.com/kailas-cloud/facetd/internal/domain"
	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
)

// Snapshot is the portable form of an Accumulator. It carries no ordinal.
// Min and Max are only meaningful when ValueCount > 0.
type Snapshot struct {
	Kind        Kind    `json:"kind"`
	IntSum      int64   `json:"int_sum,omitempty"`
	IntMin      int64   `json:"int_min,omitempty"`
	IntMax      int64   `json:"int_max,omitempty"`
	RealSum     float64 `json:"real_sum,omitempty"`
	RealMin     float64 `json:"real_min,omitempty"`
	RealMax     float64 `json:"real_max,omitempty"`
	DocCount    int64   `json:"doc_count"`
	AllDocCount int64   `json:"all_doc_count"`
	ValueCount  int64   `json:"value_count"`
	Dropped     int64   `json:"dropped,omitempty"`
	Accuracy    float64 `json:"accuracy,omitempty"`
	Sketch      []byte  `json:"sketch,omitempty"`
}

// Sum returns the snapshot sum in the real domain.
func (s Snapshot) Sum() float64 {
	if s.Kind == Int {
		return float64(s.IntSum)
	}
	return s.RealSum
}

// Snapshot captures the accumulator state, encoding the sketch with its
// index mapping so the receiver can verify accuracy.
func (a *Accumulator) Snapshot() Snapshot {
	s := Snapshot{
		Kind:        a.Kind(),
		DocCount:    a.docCount,
		AllDocCount: a.allDocCount,
		ValueCount:  a.valueCount,
		Dropped:     a.dropped,
		Accuracy:    a.accuracy,
	}
	if a.Kind() == Int {
		s.IntSum = a.isum
	} else {
		s.RealSum = a.rsum
	}
	if a.valueCount > 0 {
		s.IntMin, s.IntMax = a.imin, a.imax
		s.RealMin, s.RealMax = a.rmin, a.rmax
		if a.Kind() == Int {
			s.RealMin, s.RealMax = 0, 0
		} else {
			s.IntMin, s.IntMax = 0, 0
		}
	}
	if a.sketch != nil && !a.sketch.IsEmpty() {
		var buf []byte
		a.sketch.Encode(&buf, false)
		s.Sketch = buf
	}
	return s
}

// FromSnapshot rebuilds an accumulator from its portable form.
func FromSnapshot(s Snapshot) (*Accumulator, error) {
	src := Int64
	switch s.Kind {
	case Int:
	case Real:
		src = Float64
	default:
		return nil, fmt.Errorf("%w: snapshot kind %d", domain.ErrInvalidRequest, s.Kind)
	}

	a := &Accumulator{
		source:      src,
		ord:         ordinal.Invalid,
		isum:        s.IntSum,
		imin:        math.MaxInt64,
		imax:        math.MinInt64,
		rsum:        s.RealSum,
		rmin:        math.Inf(1),
		rmax:        math.Inf(-1),
		docCount:    s.DocCount,
		allDocCount: s.AllDocCount,
		valueCount:  s.ValueCount,
		dropped:     s.Dropped,
	}
	if s.ValueCount > 0 {
		if s.Kind == Int {
			a.imin, a.imax = s.IntMin, s.IntMax
		} else {
			a.rmin, a.rmax = s.RealMin, s.RealMax
		}
	}

	if s.Accuracy <= 0 {
		if len(s.Sketch) > 0 {
			return nil, fmt.Errorf("%w: sketch present without accuracy", domain.ErrAccuracyMismatch)
		}
		return a, nil
	}
	a.accuracy = s.Accuracy
	if len(s.Sketch) == 0 {
		sk, err := newSketch(s.Accuracy)
		if err != nil {
			return nil, err
		}
		a.sketch = sk
		return a, nil
	}

	sk, err := ddsketch.DecodeDDSketch(s.Sketch, store.DefaultProvider, nil)
	if err != nil {
		return nil, fmt.Errorf("decode sketch: %w", err)
	}
	if got := sk.RelativeAccuracy(); math.Abs(got-s.Accuracy) > 1e-9 {
		return nil, fmt.Errorf("%w: declared %g, encoded %g", domain.ErrAccuracyMismatch, s.Accuracy, got)
	}
	a.sketch = sk
	return a, nil
}
