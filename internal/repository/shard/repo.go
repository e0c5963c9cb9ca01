// Package shard persists shard documents and label directories in
// Redis-compatible hashes and hydrates them into in-memory shards.
package shard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/facetd/internal/db"
	"github.com/kailas-cloud/facetd/internal/domain"
	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	"github.com/kailas-cloud/facetd/internal/index"
)

const (
	defaultSegmentSize = 4096
	batchSize          = 500
)

// store is the consumer interface for shard persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Unlink(ctx context.Context, keys ...string) (int64, error)
	ScanEach(ctx context.Context, pattern string, fn func(keys []string) error) error
}

// Repo stores shards under a key prefix.
type Repo struct {
	store       store
	prefix      string
	segmentSize int
}

// New creates a shard repository. Loaded shards are split into segments of
// segmentSize consecutive document ids.
func New(s store, prefix string, segmentSize int) *Repo {
	if segmentSize <= 0 {
		segmentSize = defaultSegmentSize
	}
	return &Repo{store: s, prefix: prefix, segmentSize: segmentSize}
}

// Load hydrates a shard. A shard with no stored data loads empty.
func (r *Repo) Load(ctx context.Context, id int) (*index.Shard, error) {
	tax, err := r.loadTaxonomy(ctx, id)
	if err != nil {
		return nil, err
	}
	manifest, err := r.loadManifest(ctx, id)
	if err != nil {
		return nil, err
	}

	var ids []int
	err = r.store.ScanEach(ctx, r.docKey(id, "*"), func(keys []string) error {
		for _, k := range keys {
			if doc, err := strconv.Atoi(k[strings.LastIndexByte(k, ':')+1:]); err == nil && doc >= 0 {
				ids = append(ids, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan shard %d docs: %w", id, err)
	}
	// SCAN may report a key twice.
	slices.Sort(ids)
	ids = slices.Compact(ids)

	maxDoc := 0
	if len(ids) > 0 {
		maxDoc = ids[len(ids)-1] + 1
	}
	docs := make([]index.Document, maxDoc)
	for start := 0; start < len(ids); start += batchSize {
		chunk := ids[start:min(start+batchSize, len(ids))]
		chunkKeys := make([]string, len(chunk))
		for i, doc := range chunk {
			chunkKeys[i] = r.docKey(id, strconv.Itoa(doc))
		}
		hashes, err := r.store.HGetAllMulti(ctx, chunkKeys)
		if err != nil {
			return nil, fmt.Errorf("read shard %d docs: %w", id, err)
		}
		for i, m := range hashes {
			doc, err := parseHashFields(m)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", chunkKeys[i], err)
			}
			docs[chunk[i]] = doc
		}
	}

	var segments []index.Segment
	for base := 0; base < maxDoc; base += r.segmentSize {
		segments = append(segments, index.NewMemorySegment(base, docs[base:min(base+r.segmentSize, maxDoc)]...))
	}
	return index.NewShard(id, tax, segments...).WithSchema(manifest.schema()), nil
}

func (r *Repo) loadTaxonomy(ctx context.Context, id int) (*index.Taxonomy, error) {
	m, err := r.store.HGetAll(ctx, r.taxonomyKey(id))
	if err != nil {
		return nil, fmt.Errorf("read shard %d taxonomy: %w", id, err)
	}

	type entry struct {
		ord  ordinal.Local
		path []string
	}
	entries := make([]entry, 0, len(m))
	for k, v := range m {
		ord, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("shard %d taxonomy: bad ordinal %q", id, k)
		}
		entries = append(entries, entry{ord: ordinal.Local(ord), path: strings.Split(v, index.PathSeparator)})
	}
	slices.SortFunc(entries, func(a, b entry) int { return int(a.ord - b.ord) })

	tax := index.NewTaxonomy()
	for _, e := range entries {
		if err := tax.Insert(e.ord, e.path); err != nil {
			return nil, fmt.Errorf("shard %d taxonomy: %w", id, err)
		}
	}
	return tax, nil
}

func (r *Repo) loadManifest(ctx context.Context, id int) (Manifest, error) {
	raw, err := r.store.Get(ctx, r.manifestKey(id))
	if errors.Is(err, db.ErrKeyNotFound) {
		return Manifest{Fields: map[string]stat.Source{}}, nil
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read shard %d manifest: %w", id, err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode shard %d manifest: %w", id, err)
	}
	if m.Fields == nil {
		m.Fields = map[string]stat.Source{}
	}
	return m, nil
}

// Append stores new documents and the taxonomy entries from ordinal
// newFrom onwards, returning the assigned document ids. Field sources must
// agree with what the shard already holds. The ordinal layout may only
// change while the shard has no labels.
func (r *Repo) Append(
	ctx context.Context, id int, tax *index.Taxonomy, newFrom int,
	docs []index.Document, schema index.Schema,
) ([]int, error) {
	manifest, err := r.loadManifest(ctx, id)
	if err != nil {
		return nil, err
	}
	changed := false
	if manifest.SingleDimension != schema.SingleDimension {
		if newFrom > 1 {
			return nil, fmt.Errorf("%w: shard %d is stored in %s, got %s", domain.ErrInvalidRequest,
				id, layoutName(manifest.SingleDimension), layoutName(schema.SingleDimension))
		}
		manifest.SingleDimension = schema.SingleDimension
		changed = true
	}
	for name, src := range schema.Fields {
		prev, ok := manifest.Fields[name]
		if ok && prev != src {
			return nil, fmt.Errorf("%w: field %q stored as %s, got %s", domain.ErrInvalidRequest, name, prev, src)
		}
		if !ok {
			manifest.Fields[name] = src
			changed = true
		}
	}

	if newFrom < tax.Size() {
		if err := r.store.HSet(ctx, r.taxonomyKey(id), taxonomyFields(tax, newFrom)); err != nil {
			return nil, fmt.Errorf("write shard %d taxonomy: %w", id, err)
		}
	}
	if changed {
		raw, err := json.Marshal(manifest)
		if err != nil {
			return nil, fmt.Errorf("encode manifest: %w", err)
		}
		if err := r.store.Set(ctx, r.manifestKey(id), raw); err != nil {
			return nil, fmt.Errorf("write shard %d manifest: %w", id, err)
		}
	}
	if len(docs) == 0 {
		return nil, nil
	}

	last, err := r.store.IncrBy(ctx, r.counterKey(id), int64(len(docs)))
	if err != nil {
		return nil, fmt.Errorf("allocate shard %d doc ids: %w", id, err)
	}
	first := int(last) - len(docs)
	ids := make([]int, len(docs))
	items := make([]db.HashSetItem, 0, min(len(docs), batchSize))
	for i, doc := range docs {
		ids[i] = first + i
		items = append(items, db.HashSetItem{
			Key:    r.docKey(id, strconv.Itoa(ids[i])),
			Fields: buildHashFields(doc),
		})
		if len(items) == batchSize || i == len(docs)-1 {
			if err := r.store.HSetMulti(ctx, items); err != nil {
				return nil, fmt.Errorf("write shard %d docs: %w", id, err)
			}
			items = items[:0]
		}
	}
	return ids, nil
}

// Drop removes every key of a shard. Metadata goes last so an interrupted
// drop can be repeated.
func (r *Repo) Drop(ctx context.Context, id int) error {
	err := r.store.ScanEach(ctx, r.docKey(id, "*"), func(keys []string) error {
		_, err := r.store.Unlink(ctx, keys...)
		return err
	})
	if err != nil {
		return fmt.Errorf("drop shard %d docs: %w", id, err)
	}
	if _, err := r.store.Unlink(ctx, r.taxonomyKey(id), r.manifestKey(id), r.counterKey(id)); err != nil {
		return fmt.Errorf("drop shard %d: %w", id, err)
	}
	return nil
}

func (r *Repo) shardKey(id int) string {
	return r.prefix + "shard:" + strconv.Itoa(id)
}

func (r *Repo) taxonomyKey(id int) string { return r.shardKey(id) + ":taxonomy" }
func (r *Repo) manifestKey(id int) string { return r.shardKey(id) + ":manifest" }
func (r *Repo) counterKey(id int) string  { return r.shardKey(id) + ":next_doc" }

func (r *Repo) docKey(id int, doc string) string {
	return r.shardKey(id) + ":doc:" + doc
}
