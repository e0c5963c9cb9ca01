package ordinal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

const wordSize = 4

// ErrCorrupt signals a short or malformed ordinal buffer.
var ErrCorrupt = errors.New("ordinal: corrupt buffer")

// Reader decodes a document's ordinal buffer, calling fn once per ordinal of
// every requested dimension found in the buffer. Dimensions are visited in
// ascending order.
type Reader interface {
	Read(buf []byte, fn func(dim, ord Local)) error
}

// NewReader returns a Reader for the given dimensions. An empty dimension
// list yields a reader that never touches the buffer.
func NewReader(dims []Local) Reader {
	if len(dims) == 0 {
		return noopReader{}
	}
	sorted := slices.Clone(dims)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return &multiReader{dims: sorted}
}

// NewSingleReader returns a Reader for buffers written in single-dimension
// layout (count followed by ordinals, no dimension prefix).
func NewSingleReader(dim Local) Reader {
	return singleReader{dim: dim}
}

type noopReader struct{}

func (noopReader) Read([]byte, func(dim, ord Local)) error { return nil }

type multiReader struct {
	dims []Local
}

// Read merge-scans the buffer blocks against the requested dimensions, both
// ascending, skipping unrequested blocks without decoding their ordinals.
func (r *multiReader) Read(buf []byte, fn func(dim, ord Local)) error {
	pos, i := 0, 0
	prev := Invalid
	for i < len(r.dims) && pos < len(buf) {
		if len(buf)-pos < 2*wordSize {
			return fmt.Errorf("%w: truncated block header at offset %d", ErrCorrupt, pos)
		}
		dim := Local(readWord(buf, pos))
		n := int(readWord(buf, pos+wordSize))
		pos += 2 * wordSize
		if dim <= prev {
			return fmt.Errorf("%w: dimension %d out of order", ErrCorrupt, dim)
		}
		if n < 0 || (len(buf)-pos)/wordSize < n {
			return fmt.Errorf("%w: dimension %d declares %d ordinals", ErrCorrupt, dim, n)
		}
		prev = dim

		for i < len(r.dims) && r.dims[i] < dim {
			i++
		}
		if i < len(r.dims) && r.dims[i] == dim {
			for k := 0; k < n; k++ {
				fn(dim, Local(readWord(buf, pos+k*wordSize)))
			}
			i++
		}
		pos += n * wordSize
	}
	return nil
}

type singleReader struct {
	dim Local
}

func (r singleReader) Read(buf []byte, fn func(dim, ord Local)) error {
	if len(buf) == 0 {
		return nil
	}
	if len(buf) < wordSize {
		return fmt.Errorf("%w: truncated count", ErrCorrupt)
	}
	n := int(readWord(buf, 0))
	if n < 0 || (len(buf)-wordSize)/wordSize < n {
		return fmt.Errorf("%w: declares %d ordinals", ErrCorrupt, n)
	}
	for k := 0; k < n; k++ {
		fn(r.dim, Local(readWord(buf, wordSize+k*wordSize)))
	}
	return nil
}

func readWord(buf []byte, pos int) int32 {
	return int32(binary.LittleEndian.Uint32(buf[pos:]))
}

// Builder accumulates a document's ordinals per dimension and encodes them in
// the multi-dimension layout.
type Builder struct {
	blocks map[Local][]Local
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{blocks: make(map[Local][]Local)}
}

// Add appends ordinals under dim.
func (b *Builder) Add(dim Local, ords ...Local) *Builder {
	b.blocks[dim] = append(b.blocks[dim], ords...)
	return b
}

// Bytes encodes the blocks ascending by dimension. Dimensions with no
// ordinals are omitted.
func (b *Builder) Bytes() []byte {
	dims := make([]Local, 0, len(b.blocks))
	size := 0
	for d, ords := range b.blocks {
		if len(ords) == 0 {
			continue
		}
		dims = append(dims, d)
		size += (2 + len(ords)) * wordSize
	}
	slices.Sort(dims)

	buf := make([]byte, 0, size)
	for _, d := range dims {
		ords := b.blocks[d]
		buf = appendWord(buf, int32(d))
		buf = appendWord(buf, int32(len(ords)))
		for _, o := range ords {
			buf = appendWord(buf, int32(o))
		}
	}
	return buf
}

// EncodeSingle encodes ordinals in the single-dimension layout.
func EncodeSingle(ords []Local) []byte {
	if len(ords) == 0 {
		return nil
	}
	buf := make([]byte, 0, (1+len(ords))*wordSize)
	buf = appendWord(buf, int32(len(ords)))
	for _, o := range ords {
		buf = appendWord(buf, int32(o))
	}
	return buf
}

func appendWord(buf []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(buf, uint32(v))
}
