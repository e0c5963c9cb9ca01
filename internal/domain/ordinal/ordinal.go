// Package ordinal holds shard-local facet ordinals and the per-document
// ordinal buffer codec.
package ordinal

import (
	"errors"
	"strconv"
)

// Local is a dense facet label id assigned by one shard's label directory.
// It is meaningless outside that shard: it refuses text/JSON encoding so it
// cannot leak into partial results or wire payloads.
type Local int32

// Invalid marks a missing ordinal (global scope, unknown label).
const Invalid Local = -1

// Root is the ordinal of the taxonomy root.
const Root Local = 0

// ErrNotPortable is returned when a Local is about to be serialized.
var ErrNotPortable = errors.New("ordinal: local ordinals must not leave the shard")

// Valid reports whether o refers to a label.
func (o Local) Valid() bool { return o >= 0 }

func (o Local) String() string { return "ord(" + strconv.Itoa(int(o)) + ")" }

// MarshalText always fails; cross-shard logic keys by label string.
func (o Local) MarshalText() ([]byte, error) { return nil, ErrNotPortable }

// UnmarshalText always fails; see MarshalText.
func (o *Local) UnmarshalText([]byte) error { return ErrNotPortable }
