// Package selection tracks the sample indices chosen in the active recording.
package selection

import "sort"

// Set is a sorted set of sample indices. The zero value is empty.
type Set struct {
	indices []int
}

// NewSet builds a set from arbitrary indices; duplicates are dropped.
func NewSet(indices ...int) Set {
	if len(indices) == 0 {
		return Set{}
	}
	out := append([]int(nil), indices...)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return Set{indices: out[:n]}
}

// Range builds the contiguous set [from, to]; the bounds may be given in either order.
func Range(from, to int) Set {
	if from > to {
		from, to = to, from
	}
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return Set{indices: out}
}

// Len returns the number of selected indices.
func (s Set) Len() int {
	return len(s.indices)
}

// Empty reports whether nothing is selected.
func (s Set) Empty() bool {
	return len(s.indices) == 0
}

// Min returns the smallest index. It panics on an empty set.
func (s Set) Min() int {
	return s.indices[0]
}

// Max returns the largest index. It panics on an empty set.
func (s Set) Max() int {
	return s.indices[len(s.indices)-1]
}

// Indices returns a copy of the indices in ascending order.
func (s Set) Indices() []int {
	return append([]int(nil), s.indices...)
}

// Contains reports whether i is selected.
func (s Set) Contains(i int) bool {
	pos := sort.SearchInts(s.indices, i)
	return pos < len(s.indices) && s.indices[pos] == i
}

// Source owns the selection for the active recording.
type Source struct {
	size   int
	anchor int
	set    Set
}

// NewSource returns an empty selection over a recording of n samples.
func NewSource(n int) *Source {
	return &Source{size: n, anchor: -1}
}

// Reset discards the selection and rebinds the source to a recording of n samples.
func (s *Source) Reset(n int) {
	s.size = n
	s.anchor = -1
	s.set = Set{}
}

// Clear empties the selection.
func (s *Source) Clear() {
	s.anchor = -1
	s.set = Set{}
}

// Current returns the active selection.
func (s *Source) Current() Set {
	return s.set
}

// Anchor starts a new range selection at i.
func (s *Source) Anchor(i int) {
	if !s.valid(i) {
		return
	}
	s.anchor = i
	s.set = NewSet(i)
}

// Extend selects the contiguous range between the anchor and i.
// Without an anchor it behaves like Anchor.
func (s *Source) Extend(i int) {
	if !s.valid(i) {
		return
	}
	if s.anchor < 0 {
		s.Anchor(i)
		return
	}
	s.set = Range(s.anchor, i)
}

// Toggle adds or removes a single index, allowing scattered selections.
func (s *Source) Toggle(i int) {
	if !s.valid(i) {
		return
	}
	if s.set.Contains(i) {
		out := make([]int, 0, s.set.Len())
		for _, v := range s.set.indices {
			if v != i {
				out = append(out, v)
			}
		}
		s.set = Set{indices: out}
		if s.set.Empty() {
			s.anchor = -1
		}
		return
	}
	s.set = NewSet(append(s.set.Indices(), i)...)
	if s.anchor < 0 {
		s.anchor = i
	}
}

func (s *Source) valid(i int) bool {
	return i >= 0 && i < s.size
}
