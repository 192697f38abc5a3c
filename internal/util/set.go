package util

// Set is a simple hash set keyed by the stored value itself, following
// the teacher's internal/util.Set.
type Set map[interface{}]interface{}

// SetFromStrings builds a Set containing the given strings.
func SetFromStrings(sl []string) Set {
	s := make(Set, len(sl))
	for _, item := range sl {
		s.Add(item)
	}
	return s
}

// Add inserts v into the set.
func (s Set) Add(v interface{}) {
	s[v] = v
}

// Delete removes v from the set.
func (s Set) Delete(v interface{}) {
	delete(s, v)
}

// Include reports whether v is a member of the set.
func (s Set) Include(v interface{}) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}

// List returns the set's members in unspecified order.
func (s Set) List() []interface{} {
	r := make([]interface{}, 0, len(s))
	for v := range s {
		r = append(r, v)
	}
	return r
}

// UnsafeListOfStrings casts every member to string.
func (s Set) UnsafeListOfStrings() []string {
	r := make([]string, 0, len(s))
	for v := range s {
		r = append(r, v.(string))
	}
	return r
}

// Intersection returns the members present in both sets.
func (s Set) Intersection(other Set) Set {
	result := make(Set)
	small, big := s, other
	if other.Len() < s.Len() {
		small, big = other, s
	}
	for v := range small {
		if big.Include(v) {
			result.Add(v)
		}
	}
	return result
}

// Difference returns the members of s that are not in other.
func (s Set) Difference(other Set) Set {
	result := make(Set)
	for v := range s {
		if other == nil || !other.Include(v) {
			result.Add(v)
		}
	}
	return result
}

// Some reports whether any member satisfies cb.
func (s Set) Some(cb func(interface{}) bool) bool {
	for v := range s {
		if cb(v) {
			return true
		}
	}
	return false
}

// Filter returns the subset of members satisfying cb.
func (s Set) Filter(cb func(interface{}) bool) Set {
	result := make(Set)
	for v := range s {
		if cb(v) {
			result.Add(v)
		}
	}
	return result
}

// Copy returns a shallow copy.
func (s Set) Copy() Set {
	c := make(Set, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}
