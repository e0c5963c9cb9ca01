package index

import (
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
)

func TestDocumentBuilder_EncodesAncestors(t *testing.T) {
	tax := NewTaxonomy()
	doc := NewDocument(tax).
		Tag("date", "2024", "10").
		Tag("date", "2024", "11").
		Tag("brand", "acme").
		Value("price", 5, 7).
		Build()

	date, _ := tax.Ordinal("date")
	brand, _ := tax.Ordinal("brand")

	got := map[ordinal.Local][]ordinal.Local{}
	err := ordinal.NewReader([]ordinal.Local{date, brand}).Read(doc.Ordinals, func(dim, ord ordinal.Local) {
		got[dim] = append(got[dim], ord)
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	// date, 2024, 10, 11: the shared ancestor is encoded once.
	if len(got[date]) != 4 {
		t.Errorf("date ordinals = %v, want 4", got[date])
	}
	if len(got[brand]) != 2 {
		t.Errorf("brand ordinals = %v, want 2", got[brand])
	}
	if !slices.Equal(doc.Numeric["price"], []int64{5, 7}) {
		t.Errorf("price = %v", doc.Numeric["price"])
	}
}

func TestDocumentBuilder_Untagged(t *testing.T) {
	doc := NewDocument(NewTaxonomy()).Value("price", 1).Build()
	if doc.Ordinals != nil {
		t.Errorf("Ordinals = %v, want nil", doc.Ordinals)
	}
}

func TestMemorySegment_Numeric(t *testing.T) {
	seg := NewMemorySegment(10,
		Document{Numeric: map[string][]int64{"price": {1}}},
		Document{},
		Document{Numeric: map[string][]int64{"price": {2, 3}}},
	)

	vals, err := seg.Numeric("price")
	if err != nil {
		t.Fatalf("Numeric: %v", err)
	}
	want := []struct {
		doc int
		has bool
		n   int
	}{{10, true, 1}, {11, false, 0}, {12, true, 2}}
	for _, w := range want {
		has, err := vals.Advance(w.doc)
		if err != nil {
			t.Fatalf("Advance(%d): %v", w.doc, err)
		}
		if has != w.has || len(vals.Values()) != w.n {
			t.Errorf("Advance(%d) = (%v, %d values), want (%v, %d)", w.doc, has, len(vals.Values()), w.has, w.n)
		}
	}
	if _, err := vals.Advance(11); err == nil {
		t.Error("expected error advancing backwards")
	}
	if _, err := seg.Numeric("qty"); !errors.Is(err, ErrNoField) {
		t.Errorf("expected ErrNoField, got %v", err)
	}
	if _, err := seg.Ordinals(3); err == nil {
		t.Error("expected error for doc outside segment")
	}
}

func collect(it DocIterator) []int {
	var out []int
	for doc, ok := it.Next(); ok; doc, ok = it.Next() {
		out = append(out, doc)
	}
	return out
}

func TestMatchers(t *testing.T) {
	seg := NewMemorySegment(4, Document{}, Document{}, Document{})

	if got := collect(MatchAll{}.Match(seg)); !slices.Equal(got, []int{4, 5, 6}) {
		t.Errorf("MatchAll = %v", got)
	}
	if got := collect(MatchDocs(9, 6, 1, 4, 6).Match(seg)); !slices.Equal(got, []int{4, 6}) {
		t.Errorf("MatchDocs = %v, want [4 6]", got)
	}
}

func TestShard_MaxDoc(t *testing.T) {
	s := NewShard(3, NewTaxonomy(),
		NewMemorySegment(0, Document{}, Document{}),
		NewMemorySegment(2, Document{}),
	)
	if s.ID() != 3 || s.MaxDoc() != 3 || len(s.Segments()) != 2 {
		t.Errorf("shard = id %d, maxDoc %d, segments %d", s.ID(), s.MaxDoc(), len(s.Segments()))
	}
}

func TestDocumentBuilder_SingleDimension(t *testing.T) {
	tax := NewTaxonomy()
	b := NewDocument(tax).Single("date").
		Tag("date", "2024", "10").
		Tag("brand", "acme")
	doc := b.Build()

	if !errors.Is(b.Err(), ErrOutsideDimension) {
		t.Errorf("Err() = %v, want ErrOutsideDimension", b.Err())
	}
	if _, ok := tax.Ordinal("brand"); ok {
		t.Error("skipped tag should not reach the taxonomy")
	}

	date, _ := tax.Ordinal("date")
	var got []ordinal.Local
	err := ordinal.NewSingleReader(date).Read(doc.Ordinals, func(_, ord ordinal.Local) {
		got = append(got, ord)
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	year, _ := tax.Ordinal("date", "2024")
	month, _ := tax.Ordinal("date", "2024", "10")
	if want := []ordinal.Local{date, year, month}; !slices.Equal(got, want) {
		t.Errorf("ordinals = %v, want %v", got, want)
	}
}

func TestShard_WithFields(t *testing.T) {
	s := NewShard(0, NewTaxonomy())
	fields := map[string]stat.Source{"price": stat.Float64}
	withFields := s.WithFields(fields)
	fields["qty"] = stat.Int32

	if _, ok := s.FieldSource("price"); ok {
		t.Error("original shard should have no fields")
	}
	if src, ok := withFields.FieldSource("price"); !ok || src != stat.Float64 {
		t.Errorf("FieldSource(price) = (%q, %v)", src, ok)
	}
	if _, ok := withFields.FieldSource("qty"); ok {
		t.Error("fields map was not copied")
	}
}
