package ds

import (
	"bytes"
	"iter"

	"github.com/google/btree"
)

// SortedSet is an ordered set of byte slices. Inserting a value that is
// byte-equal to a stored one replaces it.
type SortedSet struct {
	tree     *btree.BTreeG[[]byte]
	byteSize uint64
}

func NewSortedSet() *SortedSet {
	return &SortedSet{
		tree: btree.NewG(32, func(a, b []byte) bool {
			return bytes.Compare(a, b) < 0
		}),
	}
}

// Insert adds value and reports whether it was not already present.
func (s *SortedSet) Insert(value []byte) bool {
	replaced, found := s.tree.ReplaceOrInsert(value)
	if found {
		s.byteSize -= uint64(len(replaced))
	}
	s.byteSize += uint64(len(value))
	return !found
}

// Ascend yields the values in ascending byte order.
func (s *SortedSet) Ascend() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		s.tree.Ascend(func(item []byte) bool {
			return yield(item)
		})
	}
}

func (s *SortedSet) Len() int {
	return s.tree.Len()
}

// ByteSize is the total length of the stored values.
func (s *SortedSet) ByteSize() uint64 {
	return s.byteSize
}

// Clear removes all values. The node free list is reused by later inserts.
func (s *SortedSet) Clear() {
	s.tree.Clear(true)
	s.byteSize = 0
}
