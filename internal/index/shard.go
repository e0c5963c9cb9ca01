package index

import (
	"maps"

	"github.com/kailas-cloud/facetd/internal/domain/stat"
)

// Shard is one independently indexed partition: its label directory and
// segments. A Shard is immutable once built; reloads swap the whole value.
type Shard struct {
	id        int
	taxonomy  *Taxonomy
	segments  []Segment
	fields    map[string]stat.Source
	singleDim string
}

// Schema is a shard's stored metadata.
type Schema struct {
	// Fields maps numeric fields to their storage encoding.
	Fields map[string]stat.Source
	// SingleDimension names the only dimension of a shard whose ordinal
	// buffers use the single-dimension layout. Empty selects the
	// multi-dimension layout.
	SingleDimension string
}

// NewShard assembles a shard.
func NewShard(id int, tax *Taxonomy, segments ...Segment) *Shard {
	return &Shard{id: id, taxonomy: tax, segments: segments}
}

// ID returns the shard index.
func (s *Shard) ID() int { return s.id }

// Directory returns the shard's label directory.
func (s *Shard) Directory() Directory { return s.taxonomy }

// Taxonomy returns the concrete taxonomy.
func (s *Shard) Taxonomy() *Taxonomy { return s.taxonomy }

// Segments returns the shard's segments.
func (s *Shard) Segments() []Segment { return s.segments }

// WithFields returns a copy of s that records the source encoding of each
// stored numeric field.
func (s *Shard) WithFields(fields map[string]stat.Source) *Shard {
	c := *s
	c.fields = maps.Clone(fields)
	return &c
}

// WithSchema returns a copy of s carrying schema.
func (s *Shard) WithSchema(schema Schema) *Shard {
	c := s.WithFields(schema.Fields)
	c.singleDim = schema.SingleDimension
	return c
}

// SingleDimension returns the only dimension of a shard stored in the
// single-dimension layout.
func (s *Shard) SingleDimension() (string, bool) {
	return s.singleDim, s.singleDim != ""
}

// FieldSource returns the stored encoding of a numeric field.
func (s *Shard) FieldSource(name string) (stat.Source, bool) {
	src, ok := s.fields[name]
	return src, ok
}

// MaxDoc returns the total number of documents across segments.
func (s *Shard) MaxDoc() int {
	n := 0
	for _, seg := range s.segments {
		n += seg.MaxDoc()
	}
	return n
}
