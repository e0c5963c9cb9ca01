package stat

import (
	"cmp"
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/kailas-cloud/facetd/internal/domain"
	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
)

// MaxAccuracy bounds the relative accuracy a sketch may be built with.
const MaxAccuracy = 0.5

// Accumulator aggregates one numeric field for one scope: the whole shard
// (ordinal.Invalid) or a single facet ordinal. It is either integer-valued or
// real-valued, decided by its Source.
type Accumulator struct {
	source   Source
	ord      ordinal.Local
	accuracy float64

	isum, imin, imax int64
	rsum, rmin, rmax float64

	docCount    int64
	allDocCount int64
	valueCount  int64

	sketch  *ddsketch.DDSketch
	dropped int64
}

// New creates an empty accumulator. accuracy <= 0 disables the quantile sketch.
func New(src Source, ord ordinal.Local, accuracy float64) (*Accumulator, error) {
	if !src.IsValid() {
		return nil, fmt.Errorf("%w: unknown source %q", domain.ErrInvalidRequest, src)
	}
	a := &Accumulator{
		source: src,
		ord:    ord,
		imin:   math.MaxInt64,
		imax:   math.MinInt64,
		rmin:   math.Inf(1),
		rmax:   math.Inf(-1),
	}
	if accuracy > 0 {
		sk, err := newSketch(accuracy)
		if err != nil {
			return nil, err
		}
		a.accuracy = accuracy
		a.sketch = sk
	}
	return a, nil
}

func newSketch(accuracy float64) (*ddsketch.DDSketch, error) {
	if accuracy >= MaxAccuracy {
		return nil, fmt.Errorf("%w: sketch accuracy %g must be below %g",
			domain.ErrInvalidRequest, accuracy, MaxAccuracy)
	}
	sk, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		return nil, fmt.Errorf("create sketch: %w", err)
	}
	return sk, nil
}

// Kind returns the numeric domain.
func (a *Accumulator) Kind() Kind { return a.source.Kind() }

// Source returns the storage encoding this accumulator decodes.
func (a *Accumulator) Source() Source { return a.source }

// Ordinal returns the scope ordinal (ordinal.Invalid for global scope).
func (a *Accumulator) Ordinal() ordinal.Local { return a.ord }

// Accuracy returns the sketch relative accuracy (0 when disabled).
func (a *Accumulator) Accuracy() float64 { return a.accuracy }

// AddRaw decodes one stored doc-value word and accumulates it.
func (a *Accumulator) AddRaw(raw int64) {
	switch a.source {
	case Float32:
		a.addReal(float64(SortableToFloat32(int32(raw))))
	case Float64:
		a.addReal(SortableToFloat64(raw))
	default:
		a.addInt(raw)
	}
}

// AddInt accumulates an integer value, converting it for real accumulators.
func (a *Accumulator) AddInt(v int64) {
	if a.Kind() == Real {
		a.addReal(float64(v))
		return
	}
	a.addInt(v)
}

// AddReal accumulates a real value, truncating it for integer accumulators.
func (a *Accumulator) AddReal(v float64) {
	if a.Kind() == Int {
		a.addInt(int64(v))
		return
	}
	a.addReal(v)
}

func (a *Accumulator) addInt(v int64) {
	a.isum += v
	a.imin = min(a.imin, v)
	a.imax = max(a.imax, v)
	a.valueCount++
	a.observe(float64(v))
}

func (a *Accumulator) addReal(v float64) {
	a.rsum += v
	a.rmin = math.Min(a.rmin, v)
	a.rmax = math.Max(a.rmax, v)
	a.valueCount++
	a.observe(v)
}

// observe feeds the sketch. Values the sketch cannot index (NaN, beyond its
// range) are counted as dropped instead of failing the scan.
func (a *Accumulator) observe(v float64) {
	if a.sketch == nil {
		return
	}
	if err := a.sketch.Add(v); err != nil {
		a.dropped++
	}
}

// NewDoc records one document in scope; hasValue reports whether it had at
// least one value for the field.
func (a *Accumulator) NewDoc(hasValue bool) {
	a.allDocCount++
	if hasValue {
		a.docCount++
	}
}

// Merge folds other into a. Both must share kind and sketch accuracy.
func (a *Accumulator) Merge(other *Accumulator) error {
	if a.Kind() != other.Kind() {
		return fmt.Errorf("%w: %s and %s", domain.ErrKindMismatch, a.Kind(), other.Kind())
	}
	if a.accuracy != other.accuracy {
		return fmt.Errorf("%w: %g and %g", domain.ErrAccuracyMismatch, a.accuracy, other.accuracy)
	}
	if a.sketch != nil {
		if err := a.sketch.MergeWith(other.sketch); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrAccuracyMismatch, err)
		}
	}

	a.isum += other.isum
	a.imin = min(a.imin, other.imin)
	a.imax = max(a.imax, other.imax)
	a.rsum += other.rsum
	a.rmin = math.Min(a.rmin, other.rmin)
	a.rmax = math.Max(a.rmax, other.rmax)
	a.docCount += other.docCount
	a.allDocCount += other.allDocCount
	a.valueCount += other.valueCount
	a.dropped += other.dropped
	return nil
}

// Compare orders accumulators by sum descending, then by ordinal ascending.
// A negative result means a ranks before other.
func (a *Accumulator) Compare(other *Accumulator) int {
	var c int
	if a.Kind() == Int && other.Kind() == Int {
		c = cmp.Compare(other.isum, a.isum)
	} else {
		c = cmp.Compare(other.Sum(), a.Sum())
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(a.ord, other.ord)
}

// Sum returns the sum of all values.
func (a *Accumulator) Sum() float64 {
	if a.Kind() == Int {
		return float64(a.isum)
	}
	return a.rsum
}

// IntSum returns the exact integer sum (zero for real accumulators).
func (a *Accumulator) IntSum() int64 { return a.isum }

// Min returns the smallest value, or 0 when no value was seen.
func (a *Accumulator) Min() float64 {
	if a.valueCount == 0 {
		return 0
	}
	if a.Kind() == Int {
		return float64(a.imin)
	}
	return a.rmin
}

// Max returns the largest value, or 0 when no value was seen.
func (a *Accumulator) Max() float64 {
	if a.valueCount == 0 {
		return 0
	}
	if a.Kind() == Int {
		return float64(a.imax)
	}
	return a.rmax
}

// Mean returns Sum / ValueCount, or 0 when no value was seen.
func (a *Accumulator) Mean() float64 {
	if a.valueCount == 0 {
		return 0
	}
	return a.Sum() / float64(a.valueCount)
}

// DocCount returns the number of documents with at least one value.
func (a *Accumulator) DocCount() int64 { return a.docCount }

// AllDocCount returns the number of documents in scope.
func (a *Accumulator) AllDocCount() int64 { return a.allDocCount }

// ValueCount returns the number of values accumulated.
func (a *Accumulator) ValueCount() int64 { return a.valueCount }

// Dropped returns how many values the sketch rejected.
func (a *Accumulator) Dropped() int64 { return a.dropped }

// Percentiles answers percentile queries (0..100) against the sketch.
// It returns nil when the sketch holds no values.
func (a *Accumulator) Percentiles(ps []float64) ([]float64, error) {
	if a.sketch == nil {
		return nil, domain.ErrSketchDisabled
	}
	if a.sketch.IsEmpty() {
		return nil, nil
	}
	out := make([]float64, len(ps))
	for i, p := range ps {
		v, err := a.sketch.GetValueAtQuantile(p / 100)
		if err != nil {
			return nil, fmt.Errorf("percentile %g: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}
