// Package interval provides an interval map, used to track which ranges of
// the preprocessor's output stream were produced by which macro expansion.
package interval

import (
	"fmt"
	"iter"

	"github.com/tidwall/btree"
	"golang.org/x/exp/constraints"
)

// Map maps closed, non-overlapping intervals with endpoints in K to values
// of type V.
//
// A zero value is ready to use.
type Map[K constraints.Integer, V any] struct {
	// Keys in this map are the ends of intervals in the map.
	tree btree.Map[K, *entry[K, V]]
}

// Interval is an entry returned by [Map.Get] and [Map.Insert].
type Interval[K constraints.Integer, V any] struct {
	// The range for this interval. Both endpoints are inclusive.
	Start, End K

	// The value associated with it. Nil when no interval was found.
	Value *V
}

type entry[K constraints.Integer, V any] struct {
	start K
	value V
}

// Len returns the number of intervals in the map.
func (m *Map[K, V]) Len() int {
	return m.tree.Len()
}

// Get looks up the interval which contains key, if one exists.
//
// If no such interval exists, the Value of the returned [Interval] is nil.
func (m *Map[K, V]) Get(key K) Interval[K, V] {
	it := m.tree.Iter()
	if !it.Seek(key) || key < it.Value().start {
		// The least interval with key <= end does not actually contain
		// key, or there is no such interval at all.
		return Interval[K, V]{}
	}

	return Interval[K, V]{
		Start: it.Value().start,
		End:   it.Key(),
		Value: &it.Value().value,
	}
}

// Insert inserts a new interval into this map with the given associated
// value.
//
// If [start, end] overlaps an interval already present, nothing is inserted
// and the overlapping interval with the least start is returned; this case
// is distinguished by overlap.Value != nil.
func (m *Map[K, V]) Insert(start, end K, value V) (overlap Interval[K, V]) {
	if start > end {
		panic(fmt.Sprintf("interval: start (%#v) > end (%#v)", start, end))
	}

	// The tree holds only non-overlapping intervals keyed by their ends,
	// so the only interval that can overlap [start, end] while having the
	// least start is the one with the least end >= start.
	it := m.tree.Iter()
	if it.Seek(start) && it.Value().start <= end {
		return Interval[K, V]{
			Start: it.Value().start,
			End:   it.Key(),
			Value: &it.Value().value,
		}
	}

	m.tree.Set(end, &entry[K, V]{start: start, value: value})
	return Interval[K, V]{}
}

// Intervals returns an iterator over the intervals in this map, in
// increasing order.
func (m *Map[K, V]) Intervals() iter.Seq[Interval[K, V]] {
	return func(yield func(Interval[K, V]) bool) {
		it := m.tree.Iter()
		for more := it.First(); more; more = it.Next() {
			if !yield(Interval[K, V]{
				Start: it.Value().start,
				End:   it.Key(),
				Value: &it.Value().value,
			}) {
				return
			}
		}
	}
}

// Format implements [fmt.Formatter].
func (m *Map[K, V]) Format(s fmt.State, v rune) {
	fmt.Fprint(s, "{")
	first := true
	m.tree.Scan(func(end K, e *entry[K, V]) bool {
		if !first {
			fmt.Fprint(s, ", ")
		}
		first = false

		if e.start == end {
			fmt.Fprintf(s, "%#v: ", e.start)
		} else {
			fmt.Fprintf(s, "[%#v, %#v]: ", e.start, end)
		}
		fmt.Fprintf(s, fmt.FormatString(s, v), e.value)

		return true
	})
	fmt.Fprint(s, "}")
}
