// Package facetd embeds the facet aggregation engine in a Go program,
// with shards persisted in Valkey or Redis.
//
// A client hosts one or more shards. Facet queries scan every hosted shard
// concurrently and merge the per-shard top children into one answer with a
// worst-case error bound per label.
//
//	client, _ := facetd.New(ctx,
//	    facetd.WithValkey("localhost:6379", ""),
//	    facetd.WithShards([]int{0, 1}, 2),
//	)
//	defer client.Close()
//
//	_, _ = client.Ingest(ctx, 0, []facetd.Document{
//	    {Tags: [][]string{{"brand", "acme"}}, Values: map[string][]float64{"price": {9.5}}},
//	}, map[string]facetd.Source{"price": facetd.SourceFloat64})
//
//	res, _ := client.Facets(ctx, facetd.NewQuery().
//	    Count("brand", facetd.Top(5)).
//	    Stat("price", facetd.SourceFloat64, facetd.By("brand"), facetd.Percentiles(50, 99)),
//	)
//
// # Distributed use
//
// ShardFacets returns a serializable partial. Collect partials from every
// node and pass them to Combine on any client to get the global answer.
package facetd
