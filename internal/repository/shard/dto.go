package shard

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/facetd/internal/domain/ordinal"
	"github.com/kailas-cloud/facetd/internal/domain/stat"
	"github.com/kailas-cloud/facetd/internal/index"
)

const (
	ordinalsField = "$ords"
	numericPrefix = "n:"
)

// Manifest records per-shard metadata kept next to the documents.
type Manifest struct {
	Fields map[string]stat.Source `json:"fields"`
	// SingleDimension is set for shards written in the single-dimension
	// ordinal layout.
	SingleDimension string `json:"single_dimension,omitempty"`
}

func (m Manifest) schema() index.Schema {
	return index.Schema{Fields: m.Fields, SingleDimension: m.SingleDimension}
}

func layoutName(single string) string {
	if single == "" {
		return "multi-dimension layout"
	}
	return fmt.Sprintf("single dimension %q", single)
}

// buildHashFields converts a stored document into a flat map for HSET.
func buildHashFields(doc index.Document) map[string]string {
	m := make(map[string]string, 1+len(doc.Numeric))
	if len(doc.Ordinals) > 0 {
		m[ordinalsField] = string(doc.Ordinals)
	}
	for name, vals := range doc.Numeric {
		m[numericPrefix+name] = valuesToBytes(vals)
	}
	return m
}

// parseHashFields converts a flat hash back into a stored document.
func parseHashFields(m map[string]string) (index.Document, error) {
	doc := index.Document{Numeric: make(map[string][]int64)}
	for k, v := range m {
		switch {
		case k == ordinalsField:
			doc.Ordinals = []byte(v)
		case strings.HasPrefix(k, numericPrefix):
			vals, err := bytesToValues(v)
			if err != nil {
				return index.Document{}, fmt.Errorf("field %s: %w", k, err)
			}
			doc.Numeric[strings.TrimPrefix(k, numericPrefix)] = vals
		}
	}
	return doc, nil
}

// valuesToBytes serializes raw values as little-endian int64 words.
func valuesToBytes(vals []int64) string {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return string(buf)
}

func bytesToValues(s string) ([]int64, error) {
	if len(s)%8 != 0 {
		return nil, fmt.Errorf("numeric payload of %d bytes is not a multiple of 8", len(s))
	}
	vals := make([]int64, len(s)/8)
	for i := range vals {
		vals[i] = int64(binary.LittleEndian.Uint64([]byte(s[i*8 : i*8+8])))
	}
	return vals, nil
}

// taxonomyFields encodes ordinals [from, tax.Size()) as ordinal -> path.
func taxonomyFields(tax *index.Taxonomy, from int) map[string]string {
	m := make(map[string]string, tax.Size()-from)
	for ord := max(from, 1); ord < tax.Size(); ord++ {
		m[strconv.Itoa(ord)] = strings.Join(tax.Path(ordinal.Local(ord)), index.PathSeparator)
	}
	return m
}
