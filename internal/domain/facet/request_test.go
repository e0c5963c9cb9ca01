package facet

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/facetd/internal/domain"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
)

func TestNewRequest_Defaults(t *testing.T) {
	req, err := NewRequest(
		[]CountSpec{{Dim: "brand"}, {Dim: "color", TopN: 5, ShardFacets: Unlimited}},
		[]StatSpec{{Field: "price", Source: stat.Float64, Dim: "brand", Accuracy: 0.01}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := req.Counts()
	if counts[0].TopN != DefaultTopN || counts[0].ShardFacets != DefaultTopN {
		t.Errorf("counts[0] limits = (%d, %d), want (%d, %d)",
			counts[0].TopN, counts[0].ShardFacets, DefaultTopN, DefaultTopN)
	}
	if counts[1].TopN != 5 || counts[1].ShardFacets != Unlimited {
		t.Errorf("counts[1] limits = (%d, %d), want (5, -1)", counts[1].TopN, counts[1].ShardFacets)
	}
	if got := req.Stats()[0].ShardFacets; got != DefaultTopN {
		t.Errorf("stats[0].ShardFacets = %d, want %d", got, DefaultTopN)
	}
}

func TestNewRequest_CopiesPaths(t *testing.T) {
	path := []string{"2024"}
	req, err := NewRequest([]CountSpec{{Dim: "date", Path: path}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path[0] = "mutated"
	if got := req.Counts()[0].Path[0]; got != "2024" {
		t.Errorf("Path[0] = %q, want 2024", got)
	}
}

func TestNewRequest_ConflictingPrecision(t *testing.T) {
	_, err := NewRequest(nil, []StatSpec{
		{Field: "price", Source: stat.Float64, Accuracy: 0.01},
		{Field: "price", Source: stat.Float64, Dim: "brand", Accuracy: 0.02},
	})
	if !errors.Is(err, domain.ErrConflictingPrecision) {
		t.Fatalf("expected ErrConflictingPrecision, got %v", err)
	}
}

func TestNewRequest_SameFieldGlobalAndDim(t *testing.T) {
	req, err := NewRequest(nil, []StatSpec{
		{Field: "price", Source: stat.Int64, Accuracy: 0.01},
		{Field: "price", Source: stat.Int64, Dim: "brand", Accuracy: 0.01},
		{Field: "qty", Source: stat.Int32},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := req.Fields()
	if len(fields) != 2 {
		t.Fatalf("Fields() len = %d, want 2", len(fields))
	}
	if fields[0].Name != "price" || fields[0].Accuracy != 0.01 {
		t.Errorf("fields[0] = %+v", fields[0])
	}
	if fields[1].Name != "qty" || fields[1].Source != stat.Int32 {
		t.Errorf("fields[1] = %+v", fields[1])
	}
	if !req.Stats()[0].Global() || req.Stats()[1].Global() {
		t.Error("Global() mismatch")
	}
}

func TestNewRequest_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		counts []CountSpec
		stats  []StatSpec
	}{
		{"empty", nil, nil},
		{"missing dim", []CountSpec{{}}, nil},
		{"top_n too large", []CountSpec{{Dim: "a", TopN: MaxTopN + 1}}, nil},
		{"budget below top_n", []CountSpec{{Dim: "a", TopN: 10, ShardFacets: 5}}, nil},
		{"negative budget", []CountSpec{{Dim: "a", ShardFacets: -2}}, nil},
		{"missing field", nil, []StatSpec{{Source: stat.Int64}}},
		{"bad source", nil, []StatSpec{{Field: "f", Source: "int16"}}},
		{"path without dim", nil, []StatSpec{{Field: "f", Source: stat.Int64, Path: []string{"x"}}}},
		{"accuracy too large", nil, []StatSpec{{Field: "f", Source: stat.Int64, Accuracy: 0.5}}},
		{"percentiles without sketch", nil, []StatSpec{{Field: "f", Source: stat.Int64, Percentiles: []float64{50}}}},
		{"percentile out of range", nil, []StatSpec{
			{Field: "f", Source: stat.Int64, Accuracy: 0.01, Percentiles: []float64{101}},
		}},
		{"source conflict", nil, []StatSpec{
			{Field: "f", Source: stat.Int64},
			{Field: "f", Source: stat.Float64},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest(tt.counts, tt.stats)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestNewStatValue(t *testing.T) {
	a, err := stat.New(stat.Int64, 0, 0.01)
	if err != nil {
		t.Fatalf("stat.New: %v", err)
	}
	for _, v := range []int64{10, 20, 30} {
		a.AddInt(v)
		a.NewDoc(true)
	}
	a.NewDoc(false)

	v, err := NewStatValue(a, []float64{50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Sum != 60 || v.Min != 10 || v.Max != 30 || v.Mean != 20 {
		t.Errorf("value = %+v", v)
	}
	if v.DocCount != 3 || v.AllDocCount != 4 || v.ValueCount != 3 {
		t.Errorf("counts = (%d, %d, %d), want (3, 4, 3)", v.DocCount, v.AllDocCount, v.ValueCount)
	}
	if len(v.Percentiles) != 1 || v.Percentiles[0].P != 50 {
		t.Fatalf("percentiles = %+v", v.Percentiles)
	}
	if got := v.Percentiles[0].Value; got < 19.5 || got > 20.5 {
		t.Errorf("p50 = %g, want ~20", got)
	}
}

func TestStatPartial_MinSumClampsAtZero(t *testing.T) {
	p := StatPartial{Entries: []LabelStat{
		{Label: "a", Stat: stat.Snapshot{Kind: stat.Int, IntSum: 5}},
		{Label: "b", Stat: stat.Snapshot{Kind: stat.Int, IntSum: -3}},
	}}
	if got := p.MinSum(); got != 0 {
		t.Errorf("MinSum() = %g, want 0", got)
	}
	if got := (&StatPartial{}).MinSum(); got != 0 {
		t.Errorf("empty MinSum() = %g, want 0", got)
	}
}

func TestNewStatValue_ReportsDropped(t *testing.T) {
	a, err := stat.New(stat.Float64, 0, 0.01)
	if err != nil {
		t.Fatalf("stat.New: %v", err)
	}
	a.NewDoc(true)
	a.AddReal(2)
	a.NewDoc(true)
	a.AddReal(math.MaxFloat64)

	v, err := NewStatValue(a, []float64{50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ValueCount != 2 || v.Dropped != 1 {
		t.Errorf("value/dropped = %d/%d, want 2/1", v.ValueCount, v.Dropped)
	}
}

func TestPartialMinimum_IgnoresEntryOrder(t *testing.T) {
	counts := CountPartial{Entries: []LabelCount{{Label: "a", Count: 10}, {Label: "b", Count: 90}}}
	if got := counts.MinCount(); got != 10 {
		t.Errorf("MinCount() = %d, want 10", got)
	}
	stats := StatPartial{Entries: []LabelStat{
		{Label: "a", Stat: stat.Snapshot{Kind: stat.Real, RealSum: 1.5}},
		{Label: "b", Stat: stat.Snapshot{Kind: stat.Real, RealSum: 9}},
	}}
	if got := stats.MinSum(); got != 1.5 {
		t.Errorf("MinSum() = %g, want 1.5", got)
	}
}
