package chi

import (
	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	"github.com/kailas-cloud/facetd/internal/index"
	facetsuc "github.com/kailas-cloud/facetd/internal/usecase/facets"
)

// ErrorCode is a machine-readable error classifier.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeShardNotFound    ErrorCode = "shard_not_found"
	ErrorCodeNotFound         ErrorCode = "not_found"
	ErrorCodeShardFailed      ErrorCode = "shard_failed"
	ErrorCodeNotImplemented   ErrorCode = "not_implemented"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Shard   *int      `json:"shard,omitempty"`
}

// MatchSpec restricts aggregation to explicit doc ids. Omitted means every
// document. Ids are shard-local on shard routes and global on node routes.
type MatchSpec struct {
	DocIDs []int `json:"doc_ids"`
}

func (m *MatchSpec) matcher() index.Matcher {
	if m == nil {
		return index.MatchAll{}
	}
	return index.MatchDocs(m.DocIDs...)
}

// FacetsRequest is the body of the facet routes.
type FacetsRequest struct {
	Match  *MatchSpec        `json:"match,omitempty"`
	Counts []facet.CountSpec `json:"counts,omitempty"`
	Stats  []facet.StatSpec  `json:"stats,omitempty"`
}

// CombineRequest carries shard responses gathered by a caller for merging.
type CombineRequest struct {
	Counts      []facet.CountSpec     `json:"counts,omitempty"`
	Stats       []facet.StatSpec      `json:"stats,omitempty"`
	TotalShards int                   `json:"total_shards,omitempty"`
	Responses   []facet.ShardResponse `json:"responses"`
}

// IngestRequest appends documents to one shard.
type IngestRequest struct {
	Documents []facetsuc.Document    `json:"documents"`
	Fields    map[string]stat.Source `json:"fields,omitempty"`
}

// IngestResponse lists the doc ids assigned to ingested documents.
type IngestResponse struct {
	Shard int   `json:"shard"`
	IDs   []int `json:"ids"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Checks       map[string]string `json:"checks"`
	Shards       int               `json:"shards"`
	LoadedShards int               `json:"loaded_shards"`
	Version      string            `json:"version"`
}
