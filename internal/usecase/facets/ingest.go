package facets

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetd/internal/domain"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	"github.com/kailas-cloud/facetd/internal/index"
	"github.com/kailas-cloud/facetd/internal/metrics"
)

// Document is a document to ingest: label paths (dimension first) and
// numeric field values.
type Document struct {
	Tags   [][]string           `json:"tags"`
	Values map[string][]float64 `json:"values,omitempty"`
}

// Ingest appends docs to a hosted shard and reloads it. fields declares the
// storage source of numeric fields the shard has not seen yet; a field
// already stored keeps its source. It returns the assigned doc ids.
func (s *Service) Ingest(
	ctx context.Context, id int, docs []Document, fields map[string]stat.Source,
) ([]int, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents", domain.ErrInvalidRequest)
	}
	if _, err := s.shard(id); err != nil {
		return nil, err
	}

	s.writeMu[id].Lock()
	defer s.writeMu[id].Unlock()

	sh, err := s.shard(id)
	if err != nil {
		return nil, err
	}
	sources, err := resolveSources(sh, docs, fields)
	if err != nil {
		return nil, err
	}

	single := s.layoutFor(sh)
	tax := sh.Taxonomy().Clone()
	newFrom := tax.Size()
	stored := make([]index.Document, 0, len(docs))
	for i, d := range docs {
		b := index.NewDocument(tax)
		if single != "" {
			b.Single(single)
		}
		for _, path := range d.Tags {
			if len(path) == 0 {
				return nil, fmt.Errorf("%w: document %d has an empty tag", domain.ErrInvalidRequest, i)
			}
			b.Tag(path...)
		}
		if err := b.Err(); err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", domain.ErrInvalidRequest, i, err)
		}
		for field, vals := range d.Values {
			src := sources[field]
			raws := make([]int64, len(vals))
			for j, v := range vals {
				raw, err := src.Encode(v)
				if err != nil {
					return nil, fmt.Errorf("document %d field %q: %w", i, field, err)
				}
				raws[j] = raw
			}
			b.Value(field, raws...)
		}
		stored = append(stored, b.Build())
	}

	schema := index.Schema{Fields: sources, SingleDimension: single}
	ids, err := s.store.Append(ctx, id, tax, newFrom, stored, schema)
	if err != nil {
		return nil, fmt.Errorf("append to shard %d: %w", id, err)
	}
	metrics.IngestedDocumentsTotal.WithLabelValues(strconv.Itoa(id)).Add(float64(len(ids)))
	s.logger.Info("Documents ingested",
		zap.Int("shard", id),
		zap.Int("docs", len(ids)),
		zap.Int("new_labels", tax.Size()-newFrom),
	)

	if err := s.Reload(ctx, id); err != nil {
		return ids, err
	}
	return ids, nil
}

// layoutFor returns the dimension new documents of sh are written under in
// the single-dimension layout, empty for the multi-dimension layout.
func (s *Service) layoutFor(sh *index.Shard) string {
	stored, _ := sh.SingleDimension()
	if sh.Directory().Size() <= 1 {
		return s.opts.SingleDimension
	}
	if stored != s.opts.SingleDimension {
		s.logger.Warn("Shard keeps its stored ordinal layout",
			zap.Int("shard", sh.ID()),
			zap.String("stored_single_dimension", stored),
			zap.String("configured_single_dimension", s.opts.SingleDimension),
		)
	}
	return stored
}

func resolveSources(
	sh *index.Shard, docs []Document, declared map[string]stat.Source,
) (map[string]stat.Source, error) {
	out := make(map[string]stat.Source)
	for _, d := range docs {
		for field := range d.Values {
			if _, ok := out[field]; ok {
				continue
			}
			stored, known := sh.FieldSource(field)
			want, ok := declared[field]
			switch {
			case known && ok && want != stored:
				return nil, fmt.Errorf("%w: field %q is stored as %s, declared %s",
					domain.ErrInvalidRequest, field, stored, want)
			case known:
				out[field] = stored
			case !ok:
				return nil, fmt.Errorf("%w: field %q has no declared source", domain.ErrInvalidRequest, field)
			case !want.IsValid():
				return nil, fmt.Errorf("%w: field %q has unknown source %q", domain.ErrInvalidRequest, field, want)
			default:
				out[field] = want
			}
		}
	}
	return out, nil
}

// Drop deletes a hosted shard's stored documents and empties it in memory.
func (s *Service) Drop(ctx context.Context, id int) error {
	if _, err := s.shard(id); err != nil {
		return err
	}

	s.writeMu[id].Lock()
	defer s.writeMu[id].Unlock()

	if err := s.store.Drop(ctx, id); err != nil {
		return fmt.Errorf("drop shard %d: %w", id, err)
	}
	s.mu.Lock()
	s.shards[id] = index.NewShard(id, index.NewTaxonomy())
	s.mu.Unlock()

	s.logger.Info("Shard dropped", zap.Int("shard", id))
	return nil
}
