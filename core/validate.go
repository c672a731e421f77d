/*
validate.go - Stateless input validation predicates

PURPOSE:
  Every bound here is checked before a mutation reaches a store, so no
  malformed value is ever observable in persisted state. The limits match
  the original studio backend.

USAGE:
  if err := core.ValidateAge(age); err != nil {
      return err // *ValidationError, unwraps to ErrValidation
  }
*/
package core

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

const (
	MaxNameLen         = 50
	MaxPhoneLen        = 20
	MaxNoteLen         = 1000
	MinAge             = 3
	MaxAge             = 120
	MaxAbsAmount       = 100_000_000
	MaxScore           = 1000.0
	MaxInstallments    = 360
	MaxCustomFrequency = 365
	MaxLessonsLeft     = 9999
)

// ValidateName rejects empty, overlong, or markup-bearing names.
// Leading/trailing whitespace is ignored for the emptiness check;
// trimming is the caller's job.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(trimmed) > MaxNameLen {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("longer than %d characters", MaxNameLen)}
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) || r == '<' || r == '>' || r == '&' {
			return &ValidationError{Field: "name", Reason: "contains forbidden characters"}
		}
	}
	return nil
}

func ValidatePhone(phone string) error {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return &ValidationError{Field: "phone", Reason: "must not be empty"}
	}
	if len(trimmed) > MaxPhoneLen {
		return &ValidationError{Field: "phone", Reason: fmt.Sprintf("longer than %d characters", MaxPhoneLen)}
	}
	return nil
}

// ValidateNote allows tabs and newlines but no other control characters.
func ValidateNote(note string) error {
	if len(note) > MaxNoteLen {
		return &ValidationError{Field: "note", Reason: fmt.Sprintf("longer than %d characters", MaxNoteLen)}
	}
	for _, r := range note {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return &ValidationError{Field: "note", Reason: "contains forbidden characters"}
		}
	}
	return nil
}

func ValidateAge(age int) error {
	if age < MinAge || age > MaxAge {
		return &ValidationError{Field: "age", Reason: fmt.Sprintf("must be between %d and %d", MinAge, MaxAge)}
	}
	return nil
}

func ValidateAmount(amount Money) error {
	if amount.Abs().GreaterThan(NewMoney(MaxAbsAmount)) {
		return &ValidationError{Field: "amount", Reason: fmt.Sprintf("absolute value exceeds %d", MaxAbsAmount)}
	}
	return nil
}

func ValidateScore(score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return &ValidationError{Field: "score", Reason: "must be a finite number"}
	}
	if score < 0 || score > MaxScore {
		return &ValidationError{Field: "score", Reason: fmt.Sprintf("must be between 0 and %g", MaxScore)}
	}
	return nil
}

func ValidateLessonsLeft(n int) error {
	if n < 0 || n > MaxLessonsLeft {
		return &ValidationError{Field: "lessons left", Reason: fmt.Sprintf("must be between 0 and %d", MaxLessonsLeft)}
	}
	return nil
}

func ValidateInstallmentCount(n int) error {
	if n < 1 || n > MaxInstallments {
		return &ValidationError{Field: "total installments", Reason: fmt.Sprintf("must be between 1 and %d", MaxInstallments)}
	}
	return nil
}

func ValidateCustomFrequencyDays(days int) error {
	if days < 1 || days > MaxCustomFrequency {
		return &ValidationError{Field: "frequency", Reason: fmt.Sprintf("custom interval must be between 1 and %d days", MaxCustomFrequency)}
	}
	return nil
}

func ValidateID(field string, id ID) error {
	if !id.IsValid() {
		return &ValidationError{Field: field, Reason: "must be nonzero"}
	}
	return nil
}

// =============================================================================
// RANGE VALIDATION - Query filters fail fast before any scan
// =============================================================================

func ValidateAgeRange(min, max int) error {
	if min > max {
		return &ValidationError{Field: "age range", Reason: "min greater than max"}
	}
	return nil
}

func ValidateAmountRange(min, max Money) error {
	if min.GreaterThan(max) {
		return &ValidationError{Field: "amount range", Reason: "min greater than max"}
	}
	return nil
}

func ValidateDateRange(from, to time.Time) error {
	if from.After(to) {
		return &ValidationError{Field: "date range", Reason: "start after end"}
	}
	return nil
}
