package health

import (
	"context"
	"errors"
	"testing"
)

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockShardCounter struct {
	ids    []int
	loaded int
}

func (m *mockShardCounter) ShardIDs() []int   { return m.ids }
func (m *mockShardCounter) LoadedShards() int { return m.loaded }

func TestCheck(t *testing.T) {
	down := errors.New("conn refused")
	tests := []struct {
		name     string
		dbErr    error
		shards   ShardCounter
		status   Status
		database CheckResult
		shardsOK CheckResult // empty when the check must be absent
	}{
		{"all healthy", nil, &mockShardCounter{ids: []int{0, 1}, loaded: 1}, Healthy, CheckOK, CheckOK},
		{"database down", down, &mockShardCounter{ids: []int{0}}, Degraded, CheckError, CheckOK},
		{"no shards hosted", nil, &mockShardCounter{}, Degraded, CheckOK, CheckError},
		{"everything down", down, &mockShardCounter{}, Unhealthy, CheckError, CheckError},
		{"no counter", nil, nil, Healthy, CheckOK, ""},
		{"no counter, database down", down, nil, Degraded, CheckError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&mockDBPinger{err: tt.dbErr}, tt.shards).Check(context.Background())

			if r.Status != tt.status {
				t.Errorf("status: got %q, want %q", r.Status, tt.status)
			}
			if r.Checks["database"] != tt.database {
				t.Errorf("database: got %q, want %q", r.Checks["database"], tt.database)
			}
			got, ok := r.Checks["shards"]
			if tt.shardsOK == "" {
				if ok {
					t.Errorf("shards check should be absent, got %q", got)
				}
				return
			}
			if got != tt.shardsOK {
				t.Errorf("shards: got %q, want %q", got, tt.shardsOK)
			}
		})
	}
}

func TestCheck_ReportsShardCounts(t *testing.T) {
	r := New(&mockDBPinger{}, &mockShardCounter{ids: []int{0, 2, 5}, loaded: 2}).Check(context.Background())
	if r.Shards != 3 || r.LoadedShards != 2 {
		t.Errorf("expected 3 hosted and 2 loaded, got %d and %d", r.Shards, r.LoadedShards)
	}
}
