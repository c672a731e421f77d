package cash

import (
	"strings"

	"github.com/qmx/studio-engine/core"
)

// =============================================================================
// UPDATER - Partial updates; every field defaults to "leave unchanged"
// =============================================================================

// Updater stages a partial update of a cash record. Unset fields are
// no-ops. Applying to a missing id fails with NotFound; any validation
// failure leaves the record untouched.
type Updater struct {
	amount *core.Money
	note   *string

	studentID      *core.ID
	clearStudentID bool

	installment      *Installment
	clearInstallment bool
}

func NewUpdater() *Updater { return &Updater{} }

func (u *Updater) Amount(m core.Money) *Updater {
	u.amount = &m
	return u
}

func (u *Updater) Note(note string) *Updater {
	trimmed := strings.TrimSpace(note)
	u.note = &trimmed
	return u
}

func (u *Updater) StudentID(id core.ID) *Updater {
	u.studentID = &id
	u.clearStudentID = false
	return u
}

func (u *Updater) ClearStudentID() *Updater {
	u.studentID = nil
	u.clearStudentID = true
	return u
}

// Installment stages a full replacement of the embedded installment.
func (u *Updater) Installment(inst Installment) *Updater {
	u.installment = &inst
	u.clearInstallment = false
	return u
}

func (u *Updater) ClearInstallment() *Updater {
	u.installment = nil
	u.clearInstallment = true
	return u
}

func (u *Updater) apply(c *Cash) error {
	if u.amount != nil {
		if err := core.ValidateAmount(*u.amount); err != nil {
			return err
		}
	}
	if u.note != nil {
		if err := core.ValidateNote(*u.note); err != nil {
			return err
		}
	}
	if u.studentID != nil {
		if err := core.ValidateID("student id", *u.studentID); err != nil {
			return err
		}
	}
	if u.installment != nil {
		if err := u.installment.validate(); err != nil {
			return err
		}
	}

	if u.amount != nil {
		c.Amount = *u.amount
	}
	if u.note != nil {
		c.Note = *u.note
	}
	if u.clearStudentID {
		c.StudentID = nil
	} else if u.studentID != nil {
		v := *u.studentID
		c.StudentID = &v
	}
	if u.clearInstallment {
		c.Installment = nil
	} else if u.installment != nil {
		v := *u.installment
		c.Installment = &v
	}
	return nil
}
