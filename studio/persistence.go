package studio

import (
	"time"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/core"
	"github.com/qmx/studio-engine/student"
)

// =============================================================================
// SNAPSHOT - Full engine state as a value
// =============================================================================

// Snapshot is the complete persistable state: every row from both stores
// plus the id counters, so a restore continues numbering where the saved
// session stopped.
type Snapshot struct {
	SavedAt       time.Time         `json:"saved_at"`
	Students      []student.Student `json:"students"`
	NextStudentID core.ID           `json:"next_student_id"`
	Cash          []cash.Cash       `json:"cash"`
	NextCashID    core.ID           `json:"next_cash_id"`
}

// =============================================================================
// PERSISTENCE - Pluggable durable backends
// =============================================================================

// Persistence loads state at startup and saves it after every successful
// mutation. Save is always called with the manager's exclusive lock held,
// so implementations need not synchronize with each other.
type Persistence interface {
	// Load returns the last saved snapshot. found is false when the backend
	// holds no prior state (fresh install), which is not an error.
	Load() (snap Snapshot, found bool, err error)

	// Save replaces the durable state with the snapshot.
	Save(snap Snapshot) error
}
