package facets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetd/internal/domain"
	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/metrics"
	"github.com/kailas-cloud/facetd/internal/usecase/combine"
)

// Combine merges shard responses produced for req. totalShards is the
// number of shards the request was sent to; zero means len(responses).
// Partials are matched to specs by position.
func (s *Service) Combine(
	ctx context.Context, req facet.Request, responses []facet.ShardResponse, totalShards int,
) (facet.Response, error) {
	counts, stats := req.Counts(), req.Stats()
	for _, r := range responses {
		if len(r.Counts) != len(counts) || len(r.Stats) != len(stats) {
			return facet.Response{}, fmt.Errorf("%w: shard %d answered %d counts and %d stats, want %d and %d",
				domain.ErrInvalidRequest, r.Shard, len(r.Counts), len(r.Stats), len(counts), len(stats))
		}
	}
	if totalShards < len(responses) {
		totalShards = len(responses)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.CombineTimeout)
	defer cancel()

	out := facet.Response{
		Counts: make([]facet.CountResult, 0, len(counts)),
		Stats:  make([]facet.StatResult, 0, len(stats)),
		Shards: len(responses),
	}
	for _, r := range responses {
		out.MatchedDocs += r.MatchedDocs
		out.CorruptDocs += r.CorruptDocs
	}

	parts := make([]facet.CountPartial, len(responses))
	for i, spec := range counts {
		for j, r := range responses {
			parts[j] = r.Counts[i]
		}
		start := time.Now()
		res, err := combine.Counts(ctx, combine.Options{
			Limit:       spec.TopN,
			ShardFacets: spec.ShardFacets,
			TotalShards: totalShards,
		}, parts)
		metrics.CombineDuration.WithLabelValues("count").Observe(time.Since(start).Seconds())
		if err != nil {
			return facet.Response{}, fmt.Errorf("combine counts %q: %w", spec.Dim, err)
		}
		if res.PossibleMissing {
			metrics.CombinePossibleMissingTotal.WithLabelValues("count").Inc()
			s.logger.Debug("Possible missing facet",
				zap.String("dim", spec.Dim),
				zap.Strings("path", spec.Path),
				zap.Int64("max_value", res.MaxValuePossibleMissing),
			)
		}
		out.Counts = append(out.Counts, res)
	}

	statParts := make([]facet.StatPartial, len(responses))
	for i, spec := range stats {
		for j, r := range responses {
			statParts[j] = r.Stats[i]
		}
		start := time.Now()
		res, err := combine.Stats(ctx, combine.Options{
			Limit:       spec.TopN,
			ShardFacets: spec.ShardFacets,
			TotalShards: totalShards,
			Percentiles: spec.Percentiles,
		}, statParts)
		metrics.CombineDuration.WithLabelValues("stat").Observe(time.Since(start).Seconds())
		switch {
		case errors.Is(err, domain.ErrAccuracyMismatch):
			metrics.SketchAccuracyMismatchTotal.Inc()
			s.logger.Warn("Stat combine rejected", zap.String("field", spec.Field), zap.Error(err))
			res = facet.StatResult{Field: spec.Field, Dim: spec.Dim, Path: spec.Path, Error: err.Error()}
		case err != nil:
			return facet.Response{}, fmt.Errorf("combine stats %q: %w", spec.Field, err)
		}
		if res.PossibleMissing {
			metrics.CombinePossibleMissingTotal.WithLabelValues("stat").Inc()
			s.logger.Debug("Possible missing facet",
				zap.String("field", spec.Field),
				zap.String("dim", spec.Dim),
				zap.Strings("path", spec.Path),
				zap.Float64("max_value", res.MaxValuePossibleMissing),
			)
		}
		out.Stats = append(out.Stats, res)
	}
	return out, nil
}
