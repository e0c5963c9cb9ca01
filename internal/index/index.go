// Package index declares the storage-side contracts the aggregator reads
// from, with in-memory implementations hydrated from the shard store.
package index

import (
	"errors"
	"iter"

	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
)

// ErrNoField is returned by Segment.Numeric for a field the segment never indexed.
var ErrNoField = errors.New("numeric field not indexed")

// Segment is one immutable slice of a shard. Document ids are global to the
// shard; the segment owns [Base(), Base()+MaxDoc()).
type Segment interface {
	Base() int
	MaxDoc() int
	// Ordinals returns the document's ordinal buffer, nil when untagged.
	Ordinals(doc int) ([]byte, error)
	// Numeric opens a forward-only value source for a field.
	Numeric(field string) (NumericValues, error)
}

// NumericValues iterates per-document raw values in ascending doc order.
type NumericValues interface {
	// Advance positions on doc and reports whether it has values.
	Advance(doc int) (bool, error)
	// Values returns the raw values of the current document.
	Values() []int64
}

// DocIterator yields matching document ids in ascending order.
type DocIterator interface {
	Next() (int, bool)
}

// Matcher selects the documents of a segment that match a query.
type Matcher interface {
	Match(seg Segment) DocIterator
}

// Directory maps label paths to shard-local ordinals and back.
type Directory interface {
	// Ordinal resolves a path whose first element is the dimension.
	Ordinal(path ...string) (ordinal.Local, bool)
	// Label returns the last path component of ord.
	Label(ord ordinal.Local) (string, bool)
	Children(ord ordinal.Local) iter.Seq[ordinal.Local]
	Size() int
}
