package facet

import "github.com/kailas-cloud/facetd/internal/domain/stat"

// LabelCount is one child of a count partial.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// CountPartial is one shard's top children of a dimension by count, sorted
// by count descending then shard ordinal ascending.
type CountPartial struct {
	Dim     string       `json:"dim"`
	Path    []string     `json:"path,omitempty"`
	Entries []LabelCount `json:"entries"`
	// ChildCount is the number of children with a non-zero count on the shard.
	ChildCount int `json:"child_count"`
	// Total is the count of the dimension ordinal itself, zero when the
	// storage does not tag the dimension.
	Total int64 `json:"total"`
	// Unknown is set when the shard has no such dimension or path.
	Unknown bool `json:"unknown,omitempty"`
}

// MinCount returns the smallest reported count, zero for an empty partial.
// Partials may arrive from other nodes, so entry order is not trusted.
func (p *CountPartial) MinCount() int64 {
	if len(p.Entries) == 0 {
		return 0
	}
	low := p.Entries[0].Count
	for _, e := range p.Entries[1:] {
		low = min(low, e.Count)
	}
	return low
}

// LabelStat is one child of a stat partial.
type LabelStat struct {
	Label string        `json:"label"`
	Stat  stat.Snapshot `json:"stat"`
}

// StatPartial is one shard's aggregate for a numeric field: the global
// aggregate when Dim is empty, otherwise the top children by sum.
type StatPartial struct {
	Field      string         `json:"field"`
	Dim        string         `json:"dim,omitempty"`
	Path       []string       `json:"path,omitempty"`
	Global     *stat.Snapshot `json:"global,omitempty"`
	Entries    []LabelStat    `json:"entries,omitempty"`
	ChildCount int            `json:"child_count"`
	Unknown    bool           `json:"unknown,omitempty"`
}

// MinSum returns the smallest reported sum clamped at zero. An empty
// partial yields zero.
func (p *StatPartial) MinSum() float64 {
	if len(p.Entries) == 0 {
		return 0
	}
	low := p.Entries[0].Stat.Sum()
	for _, e := range p.Entries[1:] {
		low = min(low, e.Stat.Sum())
	}
	return max(low, 0)
}

// ShardResponse holds one shard's partials, positionally matching the
// request's count and stat specs.
type ShardResponse struct {
	Shard       int            `json:"shard"`
	Counts      []CountPartial `json:"counts"`
	Stats       []StatPartial  `json:"stats"`
	MatchedDocs int64          `json:"matched_docs"`
	CorruptDocs int64          `json:"corrupt_docs,omitempty"`
}
