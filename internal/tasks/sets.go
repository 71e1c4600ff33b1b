package tasks

import (
	"slices"
)

// IDSet collects record identities. A drain cycle passes one IDSet to
// every dequeue call and deletes its contents after applying the work.
type IDSet map[uint64]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...uint64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was absent.
func (s IDSet) Add(id uint64) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s IDSet) Has(id uint64) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the identities in ascending order.
func (s IDSet) Sorted() []uint64 {
	out := make([]uint64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// IndexSet is a set of index identifiers. A nil set is empty.
type IndexSet map[int32]struct{}

// NewIndexSet returns a set holding ids.
func NewIndexSet(ids ...int32) IndexSet {
	s := make(IndexSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IndexSet) Has(id int32) bool {
	_, ok := s[id]
	return ok
}
