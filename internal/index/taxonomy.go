package index

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
)

// ErrBadOrdinal is returned when hydrating a taxonomy out of order.
var ErrBadOrdinal = errors.New("taxonomy ordinal out of sequence")

// PathSeparator joins path components in taxonomy keys.
const PathSeparator = "\x1f"

// Taxonomy is an in-memory label directory. Ordinals are dense and assigned
// in insertion order; the root is ordinal 0 and every dimension is a child
// of the root. A Taxonomy is built once and then only read; it is not safe
// for concurrent Add and lookups.
type Taxonomy struct {
	parents  []ordinal.Local
	labels   []string
	children [][]ordinal.Local
	byPath   map[string]ordinal.Local
}

// NewTaxonomy returns a taxonomy holding only the root.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{
		parents:  []ordinal.Local{ordinal.Invalid},
		labels:   []string{""},
		children: [][]ordinal.Local{nil},
		byPath:   map[string]ordinal.Local{"": ordinal.Root},
	}
}

// Add returns the ordinal of path, creating it and its ancestors if needed.
func (t *Taxonomy) Add(path ...string) ordinal.Local {
	parent := ordinal.Root
	for i := range path {
		key := strings.Join(path[:i+1], PathSeparator)
		ord, ok := t.byPath[key]
		if !ok {
			ord = t.append(parent, path[i], key)
		}
		parent = ord
	}
	return parent
}

// Insert places path at exactly ord. Ordinals must arrive densely in
// ascending order with the parent already present.
func (t *Taxonomy) Insert(ord ordinal.Local, path []string) error {
	if int(ord) != len(t.labels) {
		return fmt.Errorf("%w: got %d, want %d", ErrBadOrdinal, ord, len(t.labels))
	}
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path for %d", ErrBadOrdinal, ord)
	}
	key := strings.Join(path, PathSeparator)
	if _, dup := t.byPath[key]; dup {
		return fmt.Errorf("%w: duplicate path %q", ErrBadOrdinal, key)
	}
	parent, ok := t.byPath[strings.Join(path[:len(path)-1], PathSeparator)]
	if !ok {
		return fmt.Errorf("%w: missing parent of %q", ErrBadOrdinal, key)
	}
	t.append(parent, path[len(path)-1], key)
	return nil
}

func (t *Taxonomy) append(parent ordinal.Local, label, key string) ordinal.Local {
	ord := ordinal.Local(len(t.labels))
	t.parents = append(t.parents, parent)
	t.labels = append(t.labels, label)
	t.children = append(t.children, nil)
	t.children[parent] = append(t.children[parent], ord)
	t.byPath[key] = ord
	return ord
}

// Ordinal implements Directory.
func (t *Taxonomy) Ordinal(path ...string) (ordinal.Local, bool) {
	if len(path) == 0 {
		return ordinal.Invalid, false
	}
	ord, ok := t.byPath[strings.Join(path, PathSeparator)]
	if !ok {
		return ordinal.Invalid, false
	}
	return ord, true
}

// Label implements Directory.
func (t *Taxonomy) Label(ord ordinal.Local) (string, bool) {
	if !t.has(ord) {
		return "", false
	}
	return t.labels[ord], true
}

// Children implements Directory.
func (t *Taxonomy) Children(ord ordinal.Local) iter.Seq[ordinal.Local] {
	return func(yield func(ordinal.Local) bool) {
		if !t.has(ord) {
			return
		}
		for _, c := range t.children[ord] {
			if !yield(c) {
				return
			}
		}
	}
}

// Size implements Directory.
func (t *Taxonomy) Size() int { return len(t.labels) }

// Path returns the full path of ord, dimension first.
func (t *Taxonomy) Path(ord ordinal.Local) []string {
	if !t.has(ord) || ord == ordinal.Root {
		return nil
	}
	var path []string
	for o := ord; o != ordinal.Root; o = t.parents[o] {
		path = append(path, t.labels[o])
	}
	slices.Reverse(path)
	return path
}

func (t *Taxonomy) has(ord ordinal.Local) bool {
	return ord >= 0 && int(ord) < len(t.labels)
}

// Clone returns an independent copy that can be extended without affecting
// readers of t.
func (t *Taxonomy) Clone() *Taxonomy {
	c := &Taxonomy{
		parents:  slices.Clone(t.parents),
		labels:   slices.Clone(t.labels),
		children: make([][]ordinal.Local, len(t.children)),
		byPath:   make(map[string]ordinal.Local, len(t.byPath)),
	}
	for i, ch := range t.children {
		c.children[i] = slices.Clone(ch)
	}
	for k, v := range t.byPath {
		c.byPath[k] = v
	}
	return c
}
