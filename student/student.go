/*
Package student owns the student roster: the entity, its store, and the
builder/updater/query protocol around it.

PURPOSE:
  Models a studio member: identity, class tier, subject, scores ("rings"),
  an optional remaining-lesson counter, and an optional membership window.

MEMBERSHIP INVARIANT:
  The membership window is either fully absent (both bounds unset) or fully
  present with start < end. There is no half-set state; the builder and
  updater reject it before anything reaches the store.

OWNERSHIP:
  The store exclusively owns all student state. Everything it returns is a
  deep copy; cash records reference students by copied id only, and deleting
  a student does not cascade to their transactions.

SEE ALSO:
  - builder.go / updater.go: staged construction and partial updates
  - query.go: composable search filters
  - cash: the transaction side of the ledger
*/
package student

import (
	"time"

	"github.com/qmx/studio-engine/core"
)

// =============================================================================
// ENUMERATIONS - Typed values only; string parsing lives at the api boundary
// =============================================================================

// Class is the enrollment tier.
type Class string

const (
	ClassTenTry Class = "TenTry" // short-term trial pack
	ClassMonth  Class = "Month"
	ClassYear   Class = "Year"
	ClassOthers Class = "Others"
)

func (c Class) Valid() bool {
	switch c {
	case ClassTenTry, ClassMonth, ClassYear, ClassOthers:
		return true
	}
	return false
}

// Subject is the discipline the student trains in.
type Subject string

const (
	SubjectShooting Subject = "Shooting"
	SubjectArchery  Subject = "Archery"
	SubjectOthers   Subject = "Others"
)

func (s Subject) Valid() bool {
	switch s {
	case SubjectShooting, SubjectArchery, SubjectOthers:
		return true
	}
	return false
}

// =============================================================================
// STUDENT ENTITY
// =============================================================================

type Student struct {
	ID      core.ID   `json:"id"`
	Name    string    `json:"name"`
	Age     int       `json:"age"`
	Class   Class     `json:"class"`
	Subject Subject   `json:"subject"`
	Phone   string    `json:"phone"`
	Note    string    `json:"note"`
	Rings   []float64 `json:"rings"` // ordered score history

	LessonsLeft *int `json:"lessons_left,omitempty"`

	MembershipStart *time.Time `json:"membership_start,omitempty"`
	MembershipEnd   *time.Time `json:"membership_end,omitempty"`
}

// Clone returns a deep copy. Required by core.Table.
func (s Student) Clone() Student {
	cp := s
	cp.Rings = append([]float64(nil), s.Rings...)
	if s.LessonsLeft != nil {
		v := *s.LessonsLeft
		cp.LessonsLeft = &v
	}
	if s.MembershipStart != nil {
		v := *s.MembershipStart
		cp.MembershipStart = &v
	}
	if s.MembershipEnd != nil {
		v := *s.MembershipEnd
		cp.MembershipEnd = &v
	}
	return cp
}

// HasMembership reports whether a membership window is set at all.
func (s Student) HasMembership() bool {
	return s.MembershipStart != nil && s.MembershipEnd != nil
}

// MembershipActive reports whether at falls within the membership window.
func (s Student) MembershipActive(at time.Time) bool {
	if !s.HasMembership() {
		return false
	}
	return !at.Before(*s.MembershipStart) && !at.After(*s.MembershipEnd)
}

// MembershipDaysRemaining returns the whole days from at until the window
// ends, floored at zero. The second return is false when no membership is
// set.
func (s Student) MembershipDaysRemaining(at time.Time) (int64, bool) {
	if !s.HasMembership() {
		return 0, false
	}
	days := int64(s.MembershipEnd.Sub(at).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, true
}

// AverageScore returns the mean of the student's rings.
// The second return is false when there are no scores.
func (s Student) AverageScore() (float64, bool) {
	if len(s.Rings) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range s.Rings {
		sum += r
	}
	return sum / float64(len(s.Rings)), true
}

// validateMembership enforces the both-or-neither invariant with start < end.
func validateMembership(start, end *time.Time) error {
	if (start == nil) != (end == nil) {
		return &core.ValidationError{Field: "membership", Reason: "start and end must be set together"}
	}
	if start != nil && !start.Before(*end) {
		return &core.ConflictError{Reason: "membership start must be before end"}
	}
	return nil
}
