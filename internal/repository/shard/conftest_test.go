package shard

import (
	"context"
	"path"
	"slices"
	"strconv"
	"testing"

	"github.com/kailas-cloud/facetd/internal/db"
	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
)

// fakeStore keeps hashes and strings in maps; the *Err fields inject failures.
type fakeStore struct {
	hashes  map[string]map[string]string
	strings map[string][]byte

	hgetAllMultiErr error
	incrErr         error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hashes:  make(map[string]map[string]string),
		strings: make(map[string][]byte),
	}
}

func (f *fakeStore) HSet(_ context.Context, key string, fields map[string]string) error {
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (f *fakeStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		if err := f.HSet(ctx, it.Key, it.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := make(map[string]string)
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if f.hgetAllMultiErr != nil {
		return nil, f.hgetAllMultiErr
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i], _ = f.HGetAll(ctx, k)
	}
	return out, nil
}

func (f *fakeStore) Unlink(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		_, h := f.hashes[k]
		_, s := f.strings[k]
		if h || s {
			n++
		}
		delete(f.hashes, k)
		delete(f.strings, k)
	}
	return n, nil
}

// ScanEach reports matches in pages of two, repeating the first key of
// every page the way SCAN may.
func (f *fakeStore) ScanEach(_ context.Context, pattern string, fn func(keys []string) error) error {
	var keys []string
	for k := range f.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	for start := 0; start < len(keys); start += 2 {
		page := slices.Clone(keys[start:min(start+2, len(keys))])
		page = append(page, page[0])
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.strings[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte) error {
	f.strings[key] = value
	return nil
}

func (f *fakeStore) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	n, _ := strconv.ParseInt(string(f.strings[key]), 10, 64)
	n += val
	f.strings[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func newTestRepo(t *testing.T, segmentSize int) (*Repo, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	return New(fs, "facetd:", segmentSize), fs
}

func ordinalFor(n int) ordinal.Local { return ordinal.Local(n) }
