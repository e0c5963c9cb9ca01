package index

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
)

// Document is the stored form of one document: its ordinal buffer and raw
// numeric values per field.
type Document struct {
	Ordinals []byte
	Numeric  map[string][]int64
}

// ErrOutsideDimension is reported for a tag outside the only dimension of a
// single-dimension document.
var ErrOutsideDimension = errors.New("tag outside the single dimension")

// DocumentBuilder tags a document with label paths against a taxonomy and
// produces its ordinal buffer. Every node of a tagged path, the dimension
// included, is encoded under the dimension's block.
type DocumentBuilder struct {
	tax     *Taxonomy
	dims    map[ordinal.Local][]ordinal.Local
	numeric map[string][]int64
	single  string
	err     error
}

// NewDocument starts a document against tax.
func NewDocument(tax *Taxonomy) *DocumentBuilder {
	return &DocumentBuilder{
		tax:     tax,
		dims:    make(map[ordinal.Local][]ordinal.Local),
		numeric: make(map[string][]int64),
	}
}

// Single switches the builder to the single-dimension layout. Only paths
// under dim may then be tagged; others are skipped and reported by Err.
func (b *DocumentBuilder) Single(dim string) *DocumentBuilder {
	b.single = dim
	return b
}

// Tag adds a label path, dimension first.
func (b *DocumentBuilder) Tag(path ...string) *DocumentBuilder {
	if len(path) == 0 {
		return b
	}
	if b.single != "" && path[0] != b.single {
		if b.err == nil {
			b.err = fmt.Errorf("%w: %q is not %q", ErrOutsideDimension, path[0], b.single)
		}
		return b
	}
	dim := b.tax.Add(path[0])
	for i := range path {
		ord := b.tax.Add(path[:i+1]...)
		if !slices.Contains(b.dims[dim], ord) {
			b.dims[dim] = append(b.dims[dim], ord)
		}
	}
	return b
}

// Value appends raw values for a numeric field.
func (b *DocumentBuilder) Value(field string, raws ...int64) *DocumentBuilder {
	b.numeric[field] = append(b.numeric[field], raws...)
	return b
}

// Err returns the first tag the builder had to skip.
func (b *DocumentBuilder) Err() error { return b.err }

// Build returns the stored document.
func (b *DocumentBuilder) Build() Document {
	doc := Document{Numeric: b.numeric}
	if b.single != "" {
		if dim, ok := b.tax.Ordinal(b.single); ok {
			doc.Ordinals = ordinal.EncodeSingle(b.dims[dim])
		}
		return doc
	}
	if len(b.dims) > 0 {
		enc := ordinal.NewBuilder()
		for dim, ords := range b.dims {
			enc.Add(dim, ords...)
		}
		doc.Ordinals = enc.Bytes()
	}
	return doc
}

// MemorySegment holds documents in memory.
type MemorySegment struct {
	base int
	docs []Document
}

// NewMemorySegment builds a segment whose first document id is base.
func NewMemorySegment(base int, docs ...Document) *MemorySegment {
	return &MemorySegment{base: base, docs: docs}
}

// Append adds a document and returns its id.
func (s *MemorySegment) Append(doc Document) int {
	s.docs = append(s.docs, doc)
	return s.base + len(s.docs) - 1
}

// Base implements Segment.
func (s *MemorySegment) Base() int { return s.base }

// MaxDoc implements Segment.
func (s *MemorySegment) MaxDoc() int { return len(s.docs) }

// Document returns the stored document by id.
func (s *MemorySegment) Document(doc int) (Document, bool) {
	i := doc - s.base
	if i < 0 || i >= len(s.docs) {
		return Document{}, false
	}
	return s.docs[i], true
}

// Ordinals implements Segment.
func (s *MemorySegment) Ordinals(doc int) ([]byte, error) {
	d, ok := s.Document(doc)
	if !ok {
		return nil, fmt.Errorf("doc %d outside segment [%d, %d)", doc, s.base, s.base+len(s.docs))
	}
	return d.Ordinals, nil
}

// Numeric implements Segment.
func (s *MemorySegment) Numeric(field string) (NumericValues, error) {
	for _, d := range s.docs {
		if _, ok := d.Numeric[field]; ok {
			return &memoryValues{seg: s, field: field, doc: -1}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoField, field)
}

type memoryValues struct {
	seg   *MemorySegment
	field string
	doc   int
	cur   []int64
}

func (v *memoryValues) Advance(doc int) (bool, error) {
	if doc <= v.doc {
		return false, fmt.Errorf("numeric %q: doc %d not after %d", v.field, doc, v.doc)
	}
	d, ok := v.seg.Document(doc)
	if !ok {
		return false, fmt.Errorf("numeric %q: doc %d outside segment", v.field, doc)
	}
	v.doc = doc
	v.cur = d.Numeric[v.field]
	return len(v.cur) > 0, nil
}

func (v *memoryValues) Values() []int64 { return v.cur }
