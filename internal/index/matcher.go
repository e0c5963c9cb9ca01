package index

import "slices"

// MatchAll matches every document.
type MatchAll struct{}

// Match implements Matcher.
func (MatchAll) Match(seg Segment) DocIterator {
	return &rangeIterator{next: seg.Base(), end: seg.Base() + seg.MaxDoc()}
}

type rangeIterator struct {
	next, end int
}

func (it *rangeIterator) Next() (int, bool) {
	if it.next >= it.end {
		return 0, false
	}
	doc := it.next
	it.next++
	return doc, true
}

// DocSet matches an explicit set of document ids.
type DocSet struct {
	ids []int
}

// MatchDocs builds a matcher over the given ids; duplicates are ignored.
func MatchDocs(ids ...int) DocSet {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return DocSet{ids: slices.Compact(sorted)}
}

// Match implements Matcher.
func (s DocSet) Match(seg Segment) DocIterator {
	lo, _ := slices.BinarySearch(s.ids, seg.Base())
	hi, _ := slices.BinarySearch(s.ids, seg.Base()+seg.MaxDoc())
	return &sliceIterator{ids: s.ids[lo:hi]}
}

type sliceIterator struct {
	ids []int
}

func (it *sliceIterator) Next() (int, bool) {
	if len(it.ids) == 0 {
		return 0, false
	}
	doc := it.ids[0]
	it.ids = it.ids[1:]
	return doc, true
}
