package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed facet request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrConflictingPrecision signals two sketch accuracies requested for one numeric field.
	ErrConflictingPrecision = errors.New("conflicting sketch precision")
	// ErrAccuracyMismatch signals sketches built with different relative accuracies.
	ErrAccuracyMismatch = errors.New("sketch accuracy mismatch")
	// ErrKindMismatch signals a merge of integer and real accumulators.
	ErrKindMismatch = errors.New("stat kind mismatch")
	// ErrSketchDisabled signals a percentile query against an accumulator without a sketch.
	ErrSketchDisabled = errors.New("quantile sketch disabled")
	// ErrUnknownShard signals a shard id this node does not host.
	ErrUnknownShard = errors.New("unknown shard")
	// ErrShardFailed signals that a shard could not produce its partial result.
	ErrShardFailed = errors.New("shard failed")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// ShardError wraps ErrShardFailed with the failing shard and its cause.
type ShardError struct {
	Shard int
	Err   error
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("%s: shard %d: %v", ErrShardFailed.Error(), e.Shard, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *ShardError) Unwrap() []error { return []error{ErrShardFailed, e.Err} }

// NewShardError creates a shard failure error.
func NewShardError(shard int, err error) error {
	return &ShardError{Shard: shard, Err: err}
}
