package student

import (
	"strings"
	"time"

	"github.com/qmx/studio-engine/core"
)

// =============================================================================
// UPDATER - Partial updates; every field defaults to "leave unchanged"
// =============================================================================

// Updater stages a partial update. Unset fields are no-ops, not resets.
// Applying to a missing id fails with NotFound and nothing changes; any
// validation failure leaves the record untouched (the store commits the
// staged copy only on success).
type Updater struct {
	name    *string
	age     *int
	class   *Class
	subject *Subject
	phone   *string
	note    *string

	lessonsLeft      *int
	clearLessonsLeft bool

	membership *membershipChange

	ringOps []ringOp
}

// membershipChange replaces the whole window. Both nil clears it.
type membershipChange struct {
	start *time.Time
	end   *time.Time
}

type ringOp struct {
	kind  ringOpKind
	index int
	score float64
}

type ringOpKind int

const (
	ringAdd ringOpKind = iota
	ringUpdate
	ringRemove
)

func NewUpdater() *Updater { return &Updater{} }

func (u *Updater) Name(name string) *Updater {
	trimmed := strings.TrimSpace(name)
	u.name = &trimmed
	return u
}

func (u *Updater) Age(age int) *Updater       { u.age = &age; return u }
func (u *Updater) Class(c Class) *Updater     { u.class = &c; return u }
func (u *Updater) Subject(s Subject) *Updater { u.subject = &s; return u }

func (u *Updater) Phone(phone string) *Updater {
	trimmed := strings.TrimSpace(phone)
	u.phone = &trimmed
	return u
}

func (u *Updater) Note(note string) *Updater {
	trimmed := strings.TrimSpace(note)
	u.note = &trimmed
	return u
}

func (u *Updater) LessonsLeft(n int) *Updater {
	u.lessonsLeft = &n
	u.clearLessonsLeft = false
	return u
}

func (u *Updater) ClearLessonsLeft() *Updater {
	u.lessonsLeft = nil
	u.clearLessonsLeft = true
	return u
}

// Membership stages a replacement of the membership window. Passing both
// bounds sets the window, passing nil for both clears it; a half-set
// window is rejected on apply.
func (u *Updater) Membership(start, end *time.Time) *Updater {
	u.membership = &membershipChange{start: start, end: end}
	return u
}

// AddRing appends a score to the ring history.
func (u *Updater) AddRing(score float64) *Updater {
	u.ringOps = append(u.ringOps, ringOp{kind: ringAdd, score: score})
	return u
}

// UpdateRingAt replaces the score at index.
func (u *Updater) UpdateRingAt(index int, score float64) *Updater {
	u.ringOps = append(u.ringOps, ringOp{kind: ringUpdate, index: index, score: score})
	return u
}

// RemoveRingAt deletes the score at index.
func (u *Updater) RemoveRingAt(index int) *Updater {
	u.ringOps = append(u.ringOps, ringOp{kind: ringRemove, index: index})
	return u
}

// apply validates every staged field against the current record, then
// writes them. Ring operations run in the order they were staged.
func (u *Updater) apply(s *Student) error {
	if u.name != nil {
		if err := core.ValidateName(*u.name); err != nil {
			return err
		}
	}
	if u.age != nil {
		if err := core.ValidateAge(*u.age); err != nil {
			return err
		}
	}
	if u.class != nil && !u.class.Valid() {
		return &core.ValidationError{Field: "class", Reason: "unrecognized class"}
	}
	if u.subject != nil && !u.subject.Valid() {
		return &core.ValidationError{Field: "subject", Reason: "unrecognized subject"}
	}
	if u.phone != nil {
		if err := core.ValidatePhone(*u.phone); err != nil {
			return err
		}
	}
	if u.note != nil {
		if err := core.ValidateNote(*u.note); err != nil {
			return err
		}
	}
	if u.lessonsLeft != nil {
		if err := core.ValidateLessonsLeft(*u.lessonsLeft); err != nil {
			return err
		}
	}
	if u.membership != nil {
		if err := validateMembership(u.membership.start, u.membership.end); err != nil {
			return err
		}
	}
	for _, op := range u.ringOps {
		if op.kind != ringRemove {
			if err := core.ValidateScore(op.score); err != nil {
				return err
			}
		}
	}

	if u.name != nil {
		s.Name = *u.name
	}
	if u.age != nil {
		s.Age = *u.age
	}
	if u.class != nil {
		s.Class = *u.class
	}
	if u.subject != nil {
		s.Subject = *u.subject
	}
	if u.phone != nil {
		s.Phone = *u.phone
	}
	if u.note != nil {
		s.Note = *u.note
	}
	if u.clearLessonsLeft {
		s.LessonsLeft = nil
	} else if u.lessonsLeft != nil {
		v := *u.lessonsLeft
		s.LessonsLeft = &v
	}
	if u.membership != nil {
		if u.membership.start == nil {
			s.MembershipStart, s.MembershipEnd = nil, nil
		} else {
			start, end := *u.membership.start, *u.membership.end
			s.MembershipStart, s.MembershipEnd = &start, &end
		}
	}
	for _, op := range u.ringOps {
		switch op.kind {
		case ringAdd:
			s.Rings = append(s.Rings, op.score)
		case ringUpdate:
			if op.index < 0 || op.index >= len(s.Rings) {
				return &core.ValidationError{Field: "score index", Reason: "out of range"}
			}
			s.Rings[op.index] = op.score
		case ringRemove:
			if op.index < 0 || op.index >= len(s.Rings) {
				return &core.ValidationError{Field: "score index", Reason: "out of range"}
			}
			s.Rings = append(s.Rings[:op.index], s.Rings[op.index+1:]...)
		}
	}
	return nil
}
