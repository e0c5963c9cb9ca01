package facetd

import (
	"context"

	"github.com/kailas-cloud/facetd/internal/domain/facet"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	"github.com/kailas-cloud/facetd/internal/index"
	facetsuc "github.com/kailas-cloud/facetd/internal/usecase/facets"
	healthuc "github.com/kailas-cloud/facetd/internal/usecase/health"
)

// --- facetsUseCase mock ---

type mockFacetsUC struct {
	facetsFn      func(ctx context.Context, m index.Matcher, req facet.Request) (facet.Response, error)
	shardFacetsFn func(ctx context.Context, id int, m index.Matcher, req facet.Request) (facet.ShardResponse, error)
	combineFn     func(ctx context.Context, req facet.Request, rs []facet.ShardResponse, total int) (facet.Response, error)
	ingestFn      func(ctx context.Context, id int, docs []facetsuc.Document, fields map[string]stat.Source) ([]int, error)
	reloadFn      func(ctx context.Context, id int) error
	dropFn        func(ctx context.Context, id int) error
}

func (m *mockFacetsUC) LoadAll(_ context.Context) error { return nil }

func (m *mockFacetsUC) Facets(ctx context.Context, mt index.Matcher, req facet.Request) (facet.Response, error) {
	return m.facetsFn(ctx, mt, req)
}

func (m *mockFacetsUC) ShardFacets(
	ctx context.Context, id int, mt index.Matcher, req facet.Request,
) (facet.ShardResponse, error) {
	return m.shardFacetsFn(ctx, id, mt, req)
}

func (m *mockFacetsUC) Combine(
	ctx context.Context, req facet.Request, rs []facet.ShardResponse, total int,
) (facet.Response, error) {
	return m.combineFn(ctx, req, rs, total)
}

func (m *mockFacetsUC) Ingest(
	ctx context.Context, id int, docs []facetsuc.Document, fields map[string]stat.Source,
) ([]int, error) {
	return m.ingestFn(ctx, id, docs, fields)
}

func (m *mockFacetsUC) Reload(ctx context.Context, id int) error { return m.reloadFn(ctx, id) }

func (m *mockFacetsUC) Drop(ctx context.Context, id int) error { return m.dropFn(ctx, id) }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- helpers ---

func testClient(facetSvc facetsUseCase, obs *observer) *Client {
	return &Client{facetSvc: facetSvc, healthSvc: &mockHealthUC{}, obs: obs}
}
