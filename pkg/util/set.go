package util

// Set is an unordered collection of unique comparable values
type Set[K comparable] map[K]struct{}

// SetOf creates a set from the given elements
func SetOf[K comparable](elements ...K) Set[K] {
	s := make(Set[K], len(elements))
	for _, elem := range elements {
		s[elem] = struct{}{}
	}
	return s
}

// Add inserts an element
func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}

// Remove deletes an element if present
func (s Set[K]) Remove(key K) {
	delete(s, key)
}

// Contains reports whether the element is in the set
func (s Set[K]) Contains(key K) bool {
	_, exists := s[key]
	return exists
}

// Union returns a new set holding the elements of both sets. Neither
// receiver nor argument is modified
func (s Set[K]) Union(other Set[K]) Set[K] {
	res := make(Set[K], len(s)+len(other))
	for key := range s {
		res[key] = struct{}{}
	}
	for key := range other {
		res[key] = struct{}{}
	}
	return res
}

// Len returns the number of elements
func (s Set[K]) Len() int {
	return len(s)
}

// IsEmpty reports whether the set has no elements
func (s Set[K]) IsEmpty() bool {
	return len(s) == 0
}
