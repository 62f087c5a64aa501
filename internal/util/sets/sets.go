// Package sets provides small generic set types.
package sets

import (
	"cmp"
	"slices"
)

// Set is a simple generic hash set for comparable keys.
// Usage: s := sets.New[string]("a","b"); s.Add("c"); if s.Has("b") {...}
type Set[T comparable] map[T]struct{}

// New creates a set pre-populated with the provided values.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts value into the set.
func (s Set[T]) Add(v T) { s[v] = struct{}{} }

// Has returns true if v is present.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Delete removes v if present.
func (s Set[T]) Delete(v T) { delete(s, v) }

// Clone returns a shallow copy.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Intersects reports whether any element of other is in s.
func (s Set[T]) Intersects(other Set[T]) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for k := range small {
		if large.Has(k) {
			return true
		}
	}
	return false
}

// Sorted returns the elements of an ordered set in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	out := make([]T, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Ordered is a set that remembers insertion order. The zero value is ready to use.
type Ordered[T comparable] struct {
	index map[T]int
	items []T
}

// NewOrdered creates an ordered set pre-populated with vals.
func NewOrdered[T comparable](vals ...T) *Ordered[T] {
	o := &Ordered[T]{}
	for _, v := range vals {
		o.Add(v)
	}
	return o
}

// Add appends v if it is not already present and reports whether it was added.
func (o *Ordered[T]) Add(v T) bool {
	if o.index == nil {
		o.index = make(map[T]int)
	}
	if _, ok := o.index[v]; ok {
		return false
	}
	o.index[v] = len(o.items)
	o.items = append(o.items, v)
	return true
}

// Has returns true if v is present.
func (o *Ordered[T]) Has(v T) bool {
	_, ok := o.index[v]
	return ok
}

// Len returns the number of elements.
func (o *Ordered[T]) Len() int { return len(o.items) }

// Items returns the elements in insertion order. The slice must not be modified.
func (o *Ordered[T]) Items() []T { return o.items }
