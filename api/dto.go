/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request structs carry go-playground/validator tags for shape checks
  (required fields, numeric ranges). Domain rules are still enforced by
  the core; the tags just fail malformed requests before they reach it.

DATES:
  Timestamps accept RFC 3339 or plain YYYY-MM-DD on input and are
  emitted as RFC 3339.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup and middleware
*/
package api

import (
	"time"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/core"
	"github.com/qmx/studio-engine/student"
)

// =============================================================================
// STUDENT TYPES
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	ID               core.ID    `json:"id"`
	Name             string     `json:"name"`
	Age              int        `json:"age"`
	Class            string     `json:"class"`
	Subject          string     `json:"subject"`
	Phone            string     `json:"phone,omitempty"`
	Note             string     `json:"note,omitempty"`
	Rings            []float64  `json:"rings"`
	LessonsLeft      *int       `json:"lessons_left,omitempty"`
	MembershipStart  *time.Time `json:"membership_start,omitempty"`
	MembershipEnd    *time.Time `json:"membership_end,omitempty"`
	MembershipActive bool       `json:"membership_active"`
}

func toStudentDTO(s student.Student, now time.Time) StudentDTO {
	rings := s.Rings
	if rings == nil {
		rings = []float64{}
	}
	return StudentDTO{
		ID:               s.ID,
		Name:             s.Name,
		Age:              s.Age,
		Class:            string(s.Class),
		Subject:          string(s.Subject),
		Phone:            s.Phone,
		Note:             s.Note,
		Rings:            rings,
		LessonsLeft:      s.LessonsLeft,
		MembershipStart:  s.MembershipStart,
		MembershipEnd:    s.MembershipEnd,
		MembershipActive: s.MembershipActive(now),
	}
}

// CreateStudentRequest is the request to create a student.
type CreateStudentRequest struct {
	Name            string  `json:"name" validate:"required,max=50"`
	Age             int     `json:"age" validate:"required,min=3,max=120"`
	Class           string  `json:"class,omitempty"`
	Subject         string  `json:"subject,omitempty"`
	Phone           string  `json:"phone,omitempty" validate:"max=20"`
	Note            string  `json:"note,omitempty" validate:"max=1000"`
	LessonsLeft     *int    `json:"lessons_left,omitempty"`
	MembershipStart *string `json:"membership_start,omitempty"`
	MembershipEnd   *string `json:"membership_end,omitempty"`
}

// UpdateStudentRequest is a partial update; absent fields stay unchanged.
type UpdateStudentRequest struct {
	Name             *string `json:"name,omitempty" validate:"omitempty,max=50"`
	Age              *int    `json:"age,omitempty" validate:"omitempty,min=3,max=120"`
	Class            *string `json:"class,omitempty"`
	Subject          *string `json:"subject,omitempty"`
	Phone            *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Note             *string `json:"note,omitempty" validate:"omitempty,max=1000"`
	LessonsLeft      *int    `json:"lessons_left,omitempty"`
	ClearLessonsLeft bool    `json:"clear_lessons_left,omitempty"`
}

// BatchUpdateStudentsRequest applies one update to many students.
type BatchUpdateStudentsRequest struct {
	IDs    []core.ID            `json:"ids" validate:"required,min=1"`
	Update UpdateStudentRequest `json:"update"`
}

// ScoreRequest carries a single shooting score.
type ScoreRequest struct {
	Score float64 `json:"score" validate:"min=0,max=1000"`
}

// MembershipRequest sets an explicit membership window.
type MembershipRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// MembershipPresetRequest grants a preset window ("Month" or "Year").
type MembershipPresetRequest struct {
	Type   string `json:"type" validate:"required"`
	Extend bool   `json:"extend,omitempty"`
}

// =============================================================================
// CASH TYPES
// =============================================================================

// InstallmentDTO represents the installment facet of a transaction.
type InstallmentDTO struct {
	PlanID             core.ID    `json:"plan_id"`
	TotalAmount        core.Money `json:"total_amount"`
	TotalInstallments  int        `json:"total_installments"`
	CurrentInstallment int        `json:"current_installment"`
	Frequency          string     `json:"frequency"`
	DueDate            time.Time  `json:"due_date"`
	Status             string     `json:"status"`
}

// CashDTO represents a cash transaction in API responses.
type CashDTO struct {
	ID          core.ID         `json:"id"`
	StudentID   *core.ID        `json:"student_id,omitempty"`
	Amount      core.Money      `json:"amount"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Installment *InstallmentDTO `json:"installment,omitempty"`
}

func toCashDTO(c cash.Cash) CashDTO {
	dto := CashDTO{
		ID:        c.ID,
		StudentID: c.StudentID,
		Amount:    c.Amount,
		Note:      c.Note,
		CreatedAt: c.CreatedAt,
	}
	if inst := c.Installment; inst != nil {
		dto.Installment = &InstallmentDTO{
			PlanID:             inst.PlanID,
			TotalAmount:        inst.TotalAmount,
			TotalInstallments:  inst.TotalInstallments,
			CurrentInstallment: inst.CurrentInstallment,
			Frequency:          inst.Frequency.String(),
			DueDate:            inst.DueDate,
			Status:             string(inst.Status),
		}
	}
	return dto
}

func toCashDTOs(records []cash.Cash) []CashDTO {
	dtos := make([]CashDTO, len(records))
	for i, c := range records {
		dtos[i] = toCashDTO(c)
	}
	return dtos
}

// CreateInstallmentRequest describes the installment facet on create.
type CreateInstallmentRequest struct {
	PlanID            core.ID `json:"plan_id" validate:"required"`
	TotalAmount       string  `json:"total_amount" validate:"required"`
	TotalInstallments int     `json:"total_installments" validate:"required,min=1,max=360"`
	Frequency         string  `json:"frequency" validate:"required"`
	DueDate           string  `json:"due_date" validate:"required"`
}

// CreateCashRequest is the request to record a transaction.
type CreateCashRequest struct {
	Amount      string                    `json:"amount" validate:"required"`
	StudentID   *core.ID                  `json:"student_id,omitempty"`
	Note        string                    `json:"note,omitempty" validate:"max=1000"`
	Installment *CreateInstallmentRequest `json:"installment,omitempty"`
}

// UpdateCashRequest is a partial update; absent fields stay unchanged.
type UpdateCashRequest struct {
	Amount           *string                   `json:"amount,omitempty"`
	Note             *string                   `json:"note,omitempty" validate:"omitempty,max=1000"`
	StudentID        *core.ID                  `json:"student_id,omitempty"`
	ClearStudentID   bool                      `json:"clear_student_id,omitempty"`
	Installment      *CreateInstallmentRequest `json:"installment,omitempty"`
	ClearInstallment bool                      `json:"clear_installment,omitempty"`
}

// UpdateStatusRequest moves an installment to a new status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// GenerateNextRequest asks for the next installment of a plan.
type GenerateNextRequest struct {
	DueDate string `json:"due_date" validate:"required"`
}

// =============================================================================
// MISC TYPES
// =============================================================================

// CountResponse reports how many records an operation touched.
type CountResponse struct {
	Count int `json:"count"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
