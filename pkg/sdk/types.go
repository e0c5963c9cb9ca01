package facetd

import (
	"encoding/json"

	"github.com/kailas-cloud/facetd/internal/domain/facet"
)

// Unlimited as a shard budget makes every shard return all of its children,
// so combined counts carry no error.
const Unlimited = facet.Unlimited

// Source is the storage encoding of a numeric field.
type Source string

// Source constants.
const (
	SourceInt32   Source = "int32"
	SourceInt64   Source = "int64"
	SourceFloat32 Source = "float32"
	SourceFloat64 Source = "float64"
)

// Document is a document to ingest. Each tag is a label path, dimension
// first: {"category", "shoes", "running"}.
type Document struct {
	Tags   [][]string
	Values map[string][]float64
}

// CountEntry is one child of a count facet. Its true count lies in
// [Count, Count+MaxError].
type CountEntry struct {
	Label    string
	Count    int64
	MaxError int64
}

// CountFacet is the answer of one count request.
type CountFacet struct {
	Dim        string
	Path       []string
	Entries    []CountEntry
	ChildCount int
	Total      int64
	// PossibleMissing warns that an unreturned label may outrank the last
	// entry; MaxValuePossibleMissing bounds its count.
	PossibleMissing         bool
	MaxValuePossibleMissing int64
	Err                     string
}

// Percentile is one quantile answer, P in [0, 100].
type Percentile struct {
	P     float64
	Value float64
}

// StatValue summarizes a numeric field over a set of documents.
type StatValue struct {
	Sum         float64
	Min         float64
	Max         float64
	Mean        float64
	DocCount    int64
	AllDocCount int64
	ValueCount  int64
	// Dropped counts values the quantile sketch could not index.
	Dropped     int64
	Percentiles []Percentile
}

// StatEntry is one child of a per-dimension stat facet.
type StatEntry struct {
	Label    string
	Value    StatValue
	HasError bool
	MaxError float64
}

// StatFacet is the answer of one stat request. Global is set for stats
// without a dimension; Entries otherwise.
type StatFacet struct {
	Field                   string
	Dim                     string
	Path                    []string
	Global                  *StatValue
	Entries                 []StatEntry
	ChildCount              int
	PossibleMissing         bool
	MaxValuePossibleMissing float64
	Err                     string
}

// Result is the combined answer of a query.
type Result struct {
	Counts      []CountFacet
	Stats       []StatFacet
	Shards      int
	MatchedDocs int64
	CorruptDocs int64
}

// ShardPartial is one shard's contribution to a query. It marshals to JSON
// so partials can be gathered from remote nodes before Combine.
type ShardPartial struct {
	resp facet.ShardResponse
}

// Shard returns the id of the shard that produced the partial.
func (p ShardPartial) Shard() int { return p.resp.Shard }

// MatchedDocs returns the number of documents the shard scanned.
func (p ShardPartial) MatchedDocs() int64 { return p.resp.MatchedDocs }

// MarshalJSON implements json.Marshaler.
func (p ShardPartial) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.resp)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *ShardPartial) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &p.resp)
}
