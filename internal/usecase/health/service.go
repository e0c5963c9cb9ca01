package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status       Status
	Checks       map[string]CheckResult
	Shards       int
	LoadedShards int
}

// Service coordinates health checks.
type Service struct {
	db     DBPinger
	shards ShardCounter
}

// New creates a Service. shards can be nil.
func New(db DBPinger, shards ShardCounter) *Service {
	return &Service{db: db, shards: shards}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	var hosted, loaded int
	if s.shards != nil {
		hosted, loaded = len(s.shards.ShardIDs()), s.shards.LoadedShards()
		if hosted == 0 {
			checks["shards"] = CheckError
		} else {
			checks["shards"] = CheckOK
		}
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}
	status := Healthy
	switch {
	case failed == len(checks) && len(checks) > 1:
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks, Shards: hosted, LoadedShards: loaded}
}
