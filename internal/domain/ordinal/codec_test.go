package ordinal

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

type decoded map[Local][]Local

func readAll(t *testing.T, r Reader, buf []byte) (decoded, []Local) {
	t.Helper()
	out := make(decoded)
	var order []Local
	err := r.Read(buf, func(dim, ord Local) {
		if len(order) == 0 || order[len(order)-1] != dim {
			order = append(order, dim)
		}
		out[dim] = append(out[dim], ord)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out, order
}

func TestRoundTrip_AllDimensions(t *testing.T) {
	want := decoded{
		9: {40, 41},
		2: {10},
		5: {20, 21, 22},
	}
	b := NewBuilder()
	for d, ords := range want {
		b.Add(d, ords...)
	}

	got, order := readAll(t, NewReader([]Local{9, 2, 5}), b.Bytes())
	if !slices.Equal(order, []Local{2, 5, 9}) {
		t.Errorf("dimension order = %v, want [2 5 9]", order)
	}
	for d, ords := range want {
		if !slices.Equal(got[d], ords) {
			t.Errorf("dim %d: got %v, want %v", d, got[d], ords)
		}
	}
}

func TestRead_SubsetSkipsUnrequestedBlocks(t *testing.T) {
	buf := NewBuilder().Add(1, 100).Add(3, 300, 301).Add(7, 700).Bytes()

	got, _ := readAll(t, NewReader([]Local{3, 8}), buf)
	if len(got) != 1 {
		t.Fatalf("expected one dimension, got %v", got)
	}
	if !slices.Equal(got[3], []Local{300, 301}) {
		t.Errorf("dim 3: got %v", got[3])
	}
}

func TestRead_RequestedDimensionMissing(t *testing.T) {
	buf := NewBuilder().Add(4, 1).Bytes()

	got, _ := readAll(t, NewReader([]Local{2, 6}), buf)
	if len(got) != 0 {
		t.Errorf("expected no ordinals, got %v", got)
	}
}

func TestRead_EmptyBuffer(t *testing.T) {
	calls := 0
	err := NewReader([]Local{1}).Read(nil, func(Local, Local) { calls++ })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected 0 callbacks, got %d", calls)
	}
}

func TestRead_EmptyDimensionsIsNoop(t *testing.T) {
	r := NewReader(nil)
	if _, ok := r.(noopReader); !ok {
		t.Fatalf("expected noopReader, got %T", r)
	}

	calls := 0
	// Garbage input must not be inspected at all.
	if err := r.Read([]byte{1, 2, 3}, func(Local, Local) { calls++ }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected 0 callbacks, got %d", calls)
	}
}

func TestRead_DuplicateRequestedDimensions(t *testing.T) {
	buf := NewBuilder().Add(2, 5).Bytes()
	got, _ := readAll(t, NewReader([]Local{2, 2}), buf)
	if !slices.Equal(got[2], []Local{5}) {
		t.Errorf("got %v, want [5]", got[2])
	}
}

func TestRead_Corrupt(t *testing.T) {
	valid := NewBuilder().Add(1, 10, 11).Add(2, 20).Bytes()
	outOfOrder := append(NewBuilder().Add(5, 1).Bytes(), NewBuilder().Add(3, 1).Bytes()...)

	tests := []struct {
		name string
		buf  []byte
	}{
		{"truncated header", valid[:6]},
		{"truncated ordinals", valid[:12]},
		{"negative count", []byte{1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}},
		{"out of order", outOfOrder},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := NewReader([]Local{1, 2, 3, 5, 9}).Read(tc.buf, func(Local, Local) {})
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestSingleReader(t *testing.T) {
	buf := EncodeSingle([]Local{3, 4, 5})

	got, _ := readAll(t, NewSingleReader(7), buf)
	if !slices.Equal(got[7], []Local{3, 4, 5}) {
		t.Errorf("got %v", got[7])
	}

	if _, order := readAll(t, NewSingleReader(7), nil); len(order) != 0 {
		t.Errorf("expected no callbacks for empty buffer")
	}

	err := NewSingleReader(7).Read(buf[:9], func(Local, Local) {})
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestLocal_NotSerializable(t *testing.T) {
	_, err := json.Marshal(map[string]Local{"a": 1})
	if err == nil {
		t.Fatal("expected marshal error")
	}
	if !errors.Is(err, ErrNotPortable) {
		t.Errorf("expected ErrNotPortable in chain, got %v", err)
	}
}
