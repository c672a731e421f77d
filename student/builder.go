package student

import (
	"strings"
	"time"

	"github.com/qmx/studio-engine/core"
)

// =============================================================================
// BUILDER - Staged construction; the store performs the terminal build
// =============================================================================

// Builder accumulates the fields of a new student. Name and age are
// required; everything else is optional with Others/empty defaults.
// The entity is materialized (and the id assigned) only when the builder
// is handed to Store.Insert.
type Builder struct {
	name    string
	age     int
	class   Class
	subject Subject
	phone   string
	note    string

	lessonsLeft     *int
	membershipStart *time.Time
	membershipEnd   *time.Time
}

func NewBuilder(name string, age int) *Builder {
	return &Builder{
		name:    strings.TrimSpace(name),
		age:     age,
		class:   ClassOthers,
		subject: SubjectOthers,
	}
}

func (b *Builder) Class(c Class) *Builder     { b.class = c; return b }
func (b *Builder) Subject(s Subject) *Builder { b.subject = s; return b }

func (b *Builder) Phone(phone string) *Builder {
	b.phone = strings.TrimSpace(phone)
	return b
}

func (b *Builder) Note(note string) *Builder {
	b.note = strings.TrimSpace(note)
	return b
}

func (b *Builder) LessonsLeft(n int) *Builder {
	b.lessonsLeft = &n
	return b
}

// Membership sets the membership window. Both bounds are required here;
// clearing is only meaningful on the updater.
func (b *Builder) Membership(start, end time.Time) *Builder {
	b.membershipStart = &start
	b.membershipEnd = &end
	return b
}

// validate checks every staged field before any state changes.
func (b *Builder) validate() error {
	if err := core.ValidateName(b.name); err != nil {
		return err
	}
	if err := core.ValidateAge(b.age); err != nil {
		return err
	}
	if b.phone != "" {
		if err := core.ValidatePhone(b.phone); err != nil {
			return err
		}
	}
	if err := core.ValidateNote(b.note); err != nil {
		return err
	}
	if !b.class.Valid() {
		return &core.ValidationError{Field: "class", Reason: "unrecognized class"}
	}
	if !b.subject.Valid() {
		return &core.ValidationError{Field: "subject", Reason: "unrecognized subject"}
	}
	if b.lessonsLeft != nil {
		if err := core.ValidateLessonsLeft(*b.lessonsLeft); err != nil {
			return err
		}
	}
	return validateMembership(b.membershipStart, b.membershipEnd)
}

// materialize builds the entity with its assigned id. Called by the store
// after validate.
func (b *Builder) materialize(id core.ID) Student {
	s := Student{
		ID:      id,
		Name:    b.name,
		Age:     b.age,
		Class:   b.class,
		Subject: b.subject,
		Phone:   b.phone,
		Note:    b.note,
	}
	if b.lessonsLeft != nil {
		v := *b.lessonsLeft
		s.LessonsLeft = &v
	}
	if b.membershipStart != nil {
		start, end := *b.membershipStart, *b.membershipEnd
		s.MembershipStart = &start
		s.MembershipEnd = &end
	}
	return s
}
