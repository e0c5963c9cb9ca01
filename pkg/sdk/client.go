package facetd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetd/internal/db"
	dbRedis "github.com/kailas-cloud/facetd/internal/db/redis"
	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	"github.com/kailas-cloud/facetd/internal/index"
	shardrepo "github.com/kailas-cloud/facetd/internal/repository/shard"
	facetsuc "github.com/kailas-cloud/facetd/internal/usecase/facets"
	healthuc "github.com/kailas-cloud/facetd/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "facetd:"
	defaultSegmentSize      = 4096
)

// facetsUseCase is the internal interface of the facet service.
type facetsUseCase interface {
	LoadAll(ctx context.Context) error
	Facets(ctx context.Context, m index.Matcher, req facet.Request) (facet.Response, error)
	ShardFacets(ctx context.Context, id int, m index.Matcher, req facet.Request) (facet.ShardResponse, error)
	Combine(ctx context.Context, req facet.Request, responses []facet.ShardResponse, totalShards int) (facet.Response, error)
	Ingest(ctx context.Context, id int, docs []facetsuc.Document, fields map[string]stat.Source) ([]int, error)
	Reload(ctx context.Context, id int) error
	Drop(ctx context.Context, id int) error
}

// Client is the facetd SDK entry point.
type Client struct {
	store     db.Store
	facetSvc  facetsUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client, connects to the database and loads the hosted
// shards. The provided context is used for the readiness check and loading.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		shards:      []int{0},
		keyPrefix:   defaultKeyPrefix,
		segmentSize: defaultSegmentSize,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("facetd: database address required (use WithValkey or WithRedis)")
	}
	if len(cfg.shards) == 0 {
		return nil, errors.New("facetd: at least one shard required")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("facetd: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	c := wireClient(store, cfg, obs)
	if err := c.facetSvc.LoadAll(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("facetd: load shards: %w", err)
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			ClientName: "facetd-sdk",
		})
		if err != nil {
			return nil, fmt.Errorf("facetd: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("facetd: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	repo := shardrepo.New(store, cfg.keyPrefix, cfg.segmentSize)
	facetSvc := facetsuc.New(repo, cfg.shards, facetsuc.Options{
		TotalShards:     cfg.totalShards,
		Parallelism:     cfg.parallelism,
		MaxTopN:         cfg.maxTopN,
		SingleDimension: cfg.singleDim,
	}, zap.NewNop())

	return &Client{
		store:     store,
		facetSvc:  facetSvc,
		healthSvc: healthuc.New(store, facetSvc),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Facets runs q on every hosted shard and combines the results.
func (c *Client) Facets(ctx context.Context, q *Query) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("facets", start, err) }()

	req, err := q.request()
	if err != nil {
		return Result{}, fmt.Errorf("facets: %w", err)
	}
	resp, err := c.facetSvc.Facets(ctx, q.matcher(), req)
	if err != nil {
		return Result{}, fmt.Errorf("facets: %w", err)
	}
	res = fromInternalResponse(resp)
	c.obs.observeResult(res)
	return res, nil
}

// ShardFacets runs q on one hosted shard without combining.
func (c *Client) ShardFacets(ctx context.Context, shard int, q *Query) (p ShardPartial, err error) {
	start := time.Now()
	defer func() { c.obs.observe("shard_facets", start, err) }()

	req, err := q.request()
	if err != nil {
		return ShardPartial{}, fmt.Errorf("shard facets: %w", err)
	}
	resp, err := c.facetSvc.ShardFacets(ctx, shard, q.matcher(), req)
	if err != nil {
		return ShardPartial{}, fmt.Errorf("shard facets: %w", err)
	}
	return ShardPartial{resp: resp}, nil
}

// Combine merges partials produced for q. totalShards is the number of
// shards q was sent to; zero means len(partials).
func (c *Client) Combine(
	ctx context.Context, q *Query, partials []ShardPartial, totalShards int,
) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("combine", start, err) }()

	req, err := q.request()
	if err != nil {
		return Result{}, fmt.Errorf("combine: %w", err)
	}
	responses := make([]facet.ShardResponse, len(partials))
	for i, p := range partials {
		responses[i] = p.resp
	}
	resp, err := c.facetSvc.Combine(ctx, req, responses, totalShards)
	if err != nil {
		return Result{}, fmt.Errorf("combine: %w", err)
	}
	res = fromInternalResponse(resp)
	c.obs.observeResult(res)
	return res, nil
}

// Ingest appends docs to a hosted shard and returns their doc ids. fields
// declares the source of numeric fields the shard has not stored before.
func (c *Client) Ingest(
	ctx context.Context, shard int, docs []Document, fields map[string]Source,
) (ids []int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	ids, err = c.facetSvc.Ingest(ctx, shard, toInternalDocuments(docs), toInternalSources(fields))
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	return ids, nil
}

// Reload re-reads a hosted shard from the database, picking up documents
// written by other clients.
func (c *Client) Reload(ctx context.Context, shard int) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("reload", start, err) }()

	if err = c.facetSvc.Reload(ctx, shard); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// Drop deletes every stored document of a hosted shard.
func (c *Client) Drop(ctx context.Context, shard int) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("drop", start, err) }()

	if err = c.facetSvc.Drop(ctx, shard); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	return nil
}
