package facetd

import (
	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	facetsuc "github.com/kailas-cloud/facetd/internal/usecase/facets"
)

func fromInternalResponse(r facet.Response) Result {
	out := Result{
		Counts:      make([]CountFacet, len(r.Counts)),
		Stats:       make([]StatFacet, len(r.Stats)),
		Shards:      r.Shards,
		MatchedDocs: r.MatchedDocs,
		CorruptDocs: r.CorruptDocs,
	}
	for i, c := range r.Counts {
		out.Counts[i] = fromInternalCount(c)
	}
	for i, s := range r.Stats {
		out.Stats[i] = fromInternalStat(s)
	}
	return out
}

func fromInternalCount(c facet.CountResult) CountFacet {
	entries := make([]CountEntry, len(c.Entries))
	for i, e := range c.Entries {
		entries[i] = CountEntry{Label: e.Label, Count: e.Count, MaxError: e.MaxError}
	}
	return CountFacet{
		Dim:                     c.Dim,
		Path:                    c.Path,
		Entries:                 entries,
		ChildCount:              c.ChildCount,
		Total:                   c.Total,
		PossibleMissing:         c.PossibleMissing,
		MaxValuePossibleMissing: c.MaxValuePossibleMissing,
		Err:                     c.Error,
	}
}

func fromInternalStat(s facet.StatResult) StatFacet {
	out := StatFacet{
		Field:                   s.Field,
		Dim:                     s.Dim,
		Path:                    s.Path,
		ChildCount:              s.ChildCount,
		PossibleMissing:         s.PossibleMissing,
		MaxValuePossibleMissing: s.MaxValuePossibleMissing,
		Err:                     s.Error,
	}
	if s.Global != nil {
		g := fromInternalStatValue(*s.Global)
		out.Global = &g
	}
	if len(s.Entries) > 0 {
		out.Entries = make([]StatEntry, len(s.Entries))
		for i, e := range s.Entries {
			out.Entries[i] = StatEntry{
				Label:    e.Label,
				Value:    fromInternalStatValue(e.Value),
				HasError: e.HasError,
				MaxError: e.MaxError,
			}
		}
	}
	return out
}

func fromInternalStatValue(v facet.StatValue) StatValue {
	out := StatValue{
		Sum:         v.Sum,
		Min:         v.Min,
		Max:         v.Max,
		Mean:        v.Mean,
		DocCount:    v.DocCount,
		AllDocCount: v.AllDocCount,
		ValueCount:  v.ValueCount,
		Dropped:     v.Dropped,
	}
	for _, p := range v.Percentiles {
		out.Percentiles = append(out.Percentiles, Percentile{P: p.P, Value: p.Value})
	}
	return out
}

func toInternalDocuments(docs []Document) []facetsuc.Document {
	out := make([]facetsuc.Document, len(docs))
	for i, d := range docs {
		out[i] = facetsuc.Document{Tags: d.Tags, Values: d.Values}
	}
	return out
}

func toInternalSources(fields map[string]Source) map[string]stat.Source {
	if fields == nil {
		return nil
	}
	out := make(map[string]stat.Source, len(fields))
	for k, v := range fields {
		out[k] = stat.Source(v)
	}
	return out
}
