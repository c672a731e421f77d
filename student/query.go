package student

import (
	"strings"

	"github.com/qmx/studio-engine/core"
)

// =============================================================================
// QUERY - Composable AND filters over the roster
// =============================================================================

// Query maps optional filter dimensions to required values. Filters compose
// with logical AND; the zero Query matches every student. Results keep the
// store's insertion order.
type Query struct {
	nameContains  *string
	minAge        *int
	maxAge        *int
	class         *Class
	subject       *Subject
	hasMembership *bool
}

func NewQuery() Query { return Query{} }

// NameContains filters by case-sensitive substring match.
func (q Query) NameContains(s string) Query {
	q.nameContains = &s
	return q
}

// AgeRange filters by inclusive age range. The range is checked before any
// scan; min > max fails the whole search.
func (q Query) AgeRange(min, max int) Query {
	q.minAge, q.maxAge = &min, &max
	return q
}

func (q Query) Class(c Class) Query {
	q.class = &c
	return q
}

func (q Query) Subject(s Subject) Query {
	q.subject = &s
	return q
}

// HasMembership filters by membership presence (a window being set), not
// by whether it is currently active.
func (q Query) HasMembership(present bool) Query {
	q.hasMembership = &present
	return q
}

// validate fails fast on inverted ranges, before scanning.
func (q Query) validate() error {
	if q.minAge != nil {
		return core.ValidateAgeRange(*q.minAge, *q.maxAge)
	}
	return nil
}

func (q Query) matches(s Student) bool {
	if q.nameContains != nil && !strings.Contains(s.Name, *q.nameContains) {
		return false
	}
	if q.minAge != nil && (s.Age < *q.minAge || s.Age > *q.maxAge) {
		return false
	}
	if q.class != nil && s.Class != *q.class {
		return false
	}
	if q.subject != nil && s.Subject != *q.subject {
		return false
	}
	if q.hasMembership != nil && s.HasMembership() != *q.hasMembership {
		return false
	}
	return true
}
