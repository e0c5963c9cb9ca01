// Package stat implements per-field numeric accumulators: sum, min, max,
// counts and an optional mergeable quantile sketch.
package stat

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/facetd/internal/domain"
)

// Kind is the numeric domain an accumulator works in.
type Kind uint8

// Accumulator kinds.
const (
	Int Kind = iota + 1
	Real
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Real:
		return "real"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind name.
func (k Kind) MarshalText() ([]byte, error) {
	if k != Int && k != Real {
		return nil, fmt.Errorf("invalid stat kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "int":
		*k = Int
	case "real":
		*k = Real
	default:
		return fmt.Errorf("invalid stat kind %q", b)
	}
	return nil
}

// Source is the storage encoding of a numeric doc-value field. All sources
// arrive as int64 words; float sources are sortable-encoded.
type Source string

// Source encodings.
const (
	// Int32 covers 32-bit integers and booleans stored as 0/1.
	Int32   Source = "int32"
	Int64   Source = "int64"
	Float32 Source = "float32"
	Float64 Source = "float64"
)

// IsValid checks if the source is one of the supported encodings.
func (s Source) IsValid() bool {
	return s == Int32 || s == Int64 || s == Float32 || s == Float64
}

// Kind returns the accumulator kind values of this source decode to.
func (s Source) Kind() Kind {
	if s == Float32 || s == Float64 {
		return Real
	}
	return Int
}

// Float64ToSortable encodes v so that signed integer order matches float order.
func Float64ToSortable(v float64) int64 {
	bits := int64(math.Float64bits(v))
	return bits ^ ((bits >> 63) & math.MaxInt64)
}

// SortableToFloat64 reverses Float64ToSortable.
func SortableToFloat64(raw int64) float64 {
	return math.Float64frombits(uint64(raw ^ ((raw >> 63) & math.MaxInt64)))
}

// Float32ToSortable encodes v so that signed integer order matches float order.
func Float32ToSortable(v float32) int32 {
	bits := int32(math.Float32bits(v))
	return bits ^ ((bits >> 31) & math.MaxInt32)
}

// SortableToFloat32 reverses Float32ToSortable.
func SortableToFloat32(raw int32) float32 {
	return math.Float32frombits(uint32(raw ^ ((raw >> 31) & math.MaxInt32)))
}

// Encode converts a domain value into the stored int64 word for this source.
// Values the source cannot hold exactly are rejected: non-finite values,
// floats beyond float32 range, fractions and out-of-range integers.
func (s Source) Encode(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %g is not finite", domain.ErrInvalidRequest, v)
	}
	switch s {
	case Float32:
		if math.Abs(v) > math.MaxFloat32 {
			return 0, fmt.Errorf("%w: %g overflows float32", domain.ErrInvalidRequest, v)
		}
		return int64(Float32ToSortable(float32(v))), nil
	case Float64:
		return Float64ToSortable(v), nil
	case Int32:
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %g is not a 32-bit integer", domain.ErrInvalidRequest, v)
		}
		return int64(v), nil
	case Int64:
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %g is not a 64-bit integer", domain.ErrInvalidRequest, v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: unknown source %q", domain.ErrInvalidRequest, s)
	}
}
