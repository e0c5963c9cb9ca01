package facetd

import "github.com/kailas-cloud/facetd/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest       = domain.ErrInvalidRequest
	ErrConflictingPrecision = domain.ErrConflictingPrecision
	ErrAccuracyMismatch     = domain.ErrAccuracyMismatch
	ErrUnknownShard         = domain.ErrUnknownShard
	ErrShardFailed          = domain.ErrShardFailed
)
