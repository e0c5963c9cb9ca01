package facet

import (
	"fmt"

	"github.com/kailas-cloud/facetd/internal/domain/stat"
)

// CountEntry is one combined child. The true global count lies in
// [Count, Count+MaxError].
type CountEntry struct {
	Label    string `json:"label"`
	Count    int64  `json:"count"`
	MaxError int64  `json:"max_error"`
}

// CountResult is the combined answer of one count spec.
type CountResult struct {
	Dim        string       `json:"dim"`
	Path       []string     `json:"path,omitempty"`
	Entries    []CountEntry `json:"entries"`
	ChildCount int          `json:"child_count"`
	Total      int64        `json:"total"`
	// PossibleMissing warns that a dropped label may outrank the
	// smallest returned entry; MaxValuePossibleMissing bounds its count.
	PossibleMissing         bool   `json:"possible_missing"`
	MaxValuePossibleMissing int64  `json:"max_value_possible_missing,omitempty"`
	Error                   string `json:"error,omitempty"`
}

// Percentile is one quantile answer, P in [0, 100].
type Percentile struct {
	P     float64 `json:"p"`
	Value float64 `json:"value"`
}

// StatValue is the user-facing form of a merged accumulator. Dropped counts
// values the quantile sketch could not index.
type StatValue struct {
	Sum         float64      `json:"sum"`
	Min         float64      `json:"min"`
	Max         float64      `json:"max"`
	Mean        float64      `json:"mean"`
	DocCount    int64        `json:"doc_count"`
	AllDocCount int64        `json:"all_doc_count"`
	ValueCount  int64        `json:"value_count"`
	Dropped     int64        `json:"dropped,omitempty"`
	Percentiles []Percentile `json:"percentiles,omitempty"`
}

// NewStatValue renders an accumulator, answering ps from its sketch.
func NewStatValue(a *stat.Accumulator, ps []float64) (StatValue, error) {
	v := StatValue{
		Sum:         a.Sum(),
		Min:         a.Min(),
		Max:         a.Max(),
		Mean:        a.Mean(),
		DocCount:    a.DocCount(),
		AllDocCount: a.AllDocCount(),
		ValueCount:  a.ValueCount(),
		Dropped:     a.Dropped(),
	}
	if len(ps) == 0 {
		return v, nil
	}
	qs, err := a.Percentiles(ps)
	if err != nil {
		return StatValue{}, fmt.Errorf("percentiles: %w", err)
	}
	if qs == nil {
		return v, nil
	}
	v.Percentiles = make([]Percentile, len(ps))
	for i, p := range ps {
		v.Percentiles[i] = Percentile{P: p, Value: qs[i]}
	}
	return v, nil
}

// StatEntry is one combined child of a per-dimension stat. HasError is set
// when some shard may have omitted the label; MaxError bounds the missing sum.
type StatEntry struct {
	Label    string    `json:"label"`
	Value    StatValue `json:"value"`
	HasError bool      `json:"has_error"`
	MaxError float64   `json:"max_error"`
}

// StatResult is the combined answer of one stat spec.
type StatResult struct {
	Field                   string      `json:"field"`
	Dim                     string      `json:"dim,omitempty"`
	Path                    []string    `json:"path,omitempty"`
	Global                  *StatValue  `json:"global,omitempty"`
	Entries                 []StatEntry `json:"entries,omitempty"`
	ChildCount              int         `json:"child_count"`
	PossibleMissing         bool        `json:"possible_missing"`
	MaxValuePossibleMissing float64     `json:"max_value_possible_missing,omitempty"`
	Error                   string      `json:"error,omitempty"`
}

// Response is the combined answer of a request.
type Response struct {
	Counts      []CountResult `json:"counts"`
	Stats       []StatResult  `json:"stats"`
	Shards      int           `json:"shards"`
	MatchedDocs int64         `json:"matched_docs"`
	CorruptDocs int64         `json:"corrupt_docs,omitempty"`
}
