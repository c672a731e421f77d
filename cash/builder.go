package cash

import (
	"strings"

	"github.com/qmx/studio-engine/core"
)

// =============================================================================
// BUILDER - Staged construction; the store performs the terminal build
// =============================================================================

// Builder accumulates the fields of a new cash record. Only the signed
// amount is required. The id and entry time are assigned by the store.
type Builder struct {
	amount      core.Money
	studentID   *core.ID
	note        string
	installment *Installment
}

func NewBuilder(amount core.Money) *Builder {
	return &Builder{amount: amount}
}

func (b *Builder) StudentID(id core.ID) *Builder {
	b.studentID = &id
	return b
}

func (b *Builder) Note(note string) *Builder {
	b.note = strings.TrimSpace(note)
	return b
}

// Installment embeds a payment-plan payload into the record.
func (b *Builder) Installment(inst Installment) *Builder {
	b.installment = &inst
	return b
}

func (b *Builder) validate() error {
	if err := core.ValidateAmount(b.amount); err != nil {
		return err
	}
	if err := core.ValidateNote(b.note); err != nil {
		return err
	}
	if b.studentID != nil {
		if err := core.ValidateID("student id", *b.studentID); err != nil {
			return err
		}
	}
	if b.installment != nil {
		if err := b.installment.validate(); err != nil {
			return err
		}
	}
	return nil
}
