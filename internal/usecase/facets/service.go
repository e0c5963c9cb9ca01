// Package facets hosts a node's shards: it loads them, runs per-shard
// aggregations concurrently and combines the partials into one answer.
package facets

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/facetd/internal/domain"
	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/index"
	logpkg "github.com/kailas-cloud/facetd/internal/logger"
	"github.com/kailas-cloud/facetd/internal/metrics"
	"github.com/kailas-cloud/facetd/internal/usecase/shard"
)

// Options tunes a Service.
type Options struct {
	// TotalShards is the cluster-wide shard count used for error bounds.
	TotalShards    int
	Parallelism    int
	MaxTopN        int
	CombineTimeout time.Duration
	// SingleDimension writes new shards in the single-dimension ordinal
	// layout under this dimension. Shards holding labels keep their layout.
	SingleDimension string
}

// Service owns the shards hosted by this node.
type Service struct {
	store  ShardStore
	ids    []int
	opts   Options
	logger *zap.Logger

	mu      sync.RWMutex
	shards  map[int]*index.Shard
	writeMu map[int]*sync.Mutex
}

// New creates a Service hosting the given shard ids. Shards start empty
// until LoadAll or Reload hydrates them.
func New(store ShardStore, ids []int, opts Options, logger *zap.Logger) *Service {
	if opts.TotalShards < len(ids) {
		opts.TotalShards = len(ids)
	}
	if opts.CombineTimeout <= 0 {
		opts.CombineTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:   store,
		ids:     slices.Sorted(slices.Values(ids)),
		opts:    opts,
		logger:  logger,
		shards:  make(map[int]*index.Shard, len(ids)),
		writeMu: make(map[int]*sync.Mutex, len(ids)),
	}
	for _, id := range s.ids {
		s.shards[id] = index.NewShard(id, index.NewTaxonomy())
		s.writeMu[id] = &sync.Mutex{}
	}
	return s
}

// ShardIDs returns the hosted shard ids in ascending order.
func (s *Service) ShardIDs() []int { return slices.Clone(s.ids) }

// LoadedShards returns the number of hosted shards holding documents.
func (s *Service) LoadedShards() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sh := range s.shards {
		if sh.MaxDoc() > 0 {
			n++
		}
	}
	return n
}

// LoadAll hydrates every hosted shard from the store.
func (s *Service) LoadAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range s.ids {
		g.Go(func() error { return s.Reload(gctx, id) })
	}
	return g.Wait()
}

// Reload re-hydrates one shard and swaps it in atomically.
func (s *Service) Reload(ctx context.Context, id int) error {
	if _, err := s.shard(id); err != nil {
		return err
	}
	start := time.Now()
	loaded, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load shard %d: %w", id, err)
	}

	s.mu.Lock()
	s.shards[id] = loaded
	s.mu.Unlock()

	s.logger.Info("Shard loaded",
		zap.Int("shard", id),
		zap.Int("docs", loaded.MaxDoc()),
		zap.Int("labels", loaded.Directory().Size()),
		zap.Int("segments", len(loaded.Segments())),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (s *Service) shard(id int) (*index.Shard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownShard, id)
	}
	return sh, nil
}

func (s *Service) checkLimits(req *facet.Request) error {
	if s.opts.MaxTopN <= 0 {
		return nil
	}
	for _, c := range req.Counts() {
		if c.TopN > s.opts.MaxTopN {
			return fmt.Errorf("%w: count %q top_n %d exceeds %d", domain.ErrInvalidRequest, c.Dim, c.TopN, s.opts.MaxTopN)
		}
	}
	for _, st := range req.Stats() {
		if st.TopN > s.opts.MaxTopN {
			return fmt.Errorf("%w: stat %q top_n %d exceeds %d", domain.ErrInvalidRequest, st.Field, st.TopN, s.opts.MaxTopN)
		}
	}
	return nil
}

// ShardFacets computes one hosted shard's partials.
func (s *Service) ShardFacets(
	ctx context.Context, id int, m index.Matcher, req facet.Request,
) (facet.ShardResponse, error) {
	if err := s.checkLimits(&req); err != nil {
		return facet.ShardResponse{}, err
	}
	sh, err := s.shard(id)
	if err != nil {
		return facet.ShardResponse{}, err
	}
	for _, f := range req.Fields() {
		if src, ok := sh.FieldSource(f.Name); ok && src != f.Source {
			return facet.ShardResponse{}, fmt.Errorf("%w: field %q is stored as %s, requested as %s",
				domain.ErrInvalidRequest, f.Name, src, f.Source)
		}
	}

	log := logpkg.WithShard(logpkg.FromContextOr(ctx, s.logger), id)
	start := time.Now()
	resp, err := shard.NewAggregator(sh, req, s.opts.Parallelism).Run(ctx, m)
	metrics.ShardAggregationDuration.Observe(time.Since(start).Seconds())
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		metrics.ShardAggregationsTotal.WithLabelValues("canceled").Inc()
		return facet.ShardResponse{}, domain.NewShardError(id, err)
	case err != nil:
		metrics.ShardAggregationsTotal.WithLabelValues("error").Inc()
		log.Error("Shard aggregation failed", zap.Error(err))
		return facet.ShardResponse{}, domain.NewShardError(id, err)
	}
	metrics.ShardAggregationsTotal.WithLabelValues("ok").Inc()

	if resp.CorruptDocs > 0 {
		metrics.CorruptOrdinalBuffersTotal.WithLabelValues(strconv.Itoa(id)).Add(float64(resp.CorruptDocs))
		log.Warn("Corrupt ordinal buffers skipped",
			zap.Int64("corrupt_docs", resp.CorruptDocs),
			zap.Int64("matched_docs", resp.MatchedDocs),
		)
	}
	return resp, nil
}

// Facets aggregates every hosted shard concurrently and combines the
// partials. Any shard failure fails the request.
func (s *Service) Facets(ctx context.Context, m index.Matcher, req facet.Request) (facet.Response, error) {
	if err := s.checkLimits(&req); err != nil {
		return facet.Response{}, err
	}
	responses := make([]facet.ShardResponse, len(s.ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range s.ids {
		g.Go(func() error {
			resp, err := s.ShardFacets(gctx, id, m, req)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return facet.Response{}, err
	}
	return s.Combine(ctx, req, responses, s.opts.TotalShards)
}
