package student

import (
	"github.com/qmx/studio-engine/core"
)

// =============================================================================
// STORE - Insertion-ordered roster with generated ids
// =============================================================================

// Store owns all student records. It is not safe for concurrent use on its
// own; the manager facade serializes access and handles persistence.
type Store struct {
	table *core.Table[Student]
}

func NewStore() *Store {
	return &Store{table: core.NewTable[Student]("student", func(s Student) core.ID { return s.ID })}
}

// Insert validates the builder and creates the student, returning a copy
// with its assigned id.
func (st *Store) Insert(b *Builder) (Student, error) {
	if err := b.validate(); err != nil {
		return Student{}, err
	}
	id := st.table.Insert(b.materialize)
	s, _ := st.table.Get(id)
	return s, nil
}

// Get returns a copy of the student, or NotFoundError.
func (st *Store) Get(id core.ID) (Student, error) {
	s, ok := st.table.Get(id)
	if !ok {
		return Student{}, &core.NotFoundError{Kind: "student", ID: id}
	}
	return s, nil
}

// Update applies a partial update and returns the fresh record.
// On any error the stored record is unchanged.
func (st *Store) Update(id core.ID, u *Updater) (Student, error) {
	if err := st.table.Update(id, u.apply); err != nil {
		return Student{}, err
	}
	s, _ := st.table.Get(id)
	return s, nil
}

// Delete removes the student. Returns true iff it existed.
func (st *Store) Delete(id core.ID) bool { return st.table.Delete(id) }

// All returns every student in insertion order.
func (st *Store) All() []Student { return st.table.All() }

// Len returns the roster size.
func (st *Store) Len() int { return st.table.Len() }

// Search returns students matching the query in insertion order.
// An inverted range fails before any record is examined.
func (st *Store) Search(q Query) ([]Student, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	var out []Student
	for _, s := range st.table.All() {
		if q.matches(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Clone returns an independent deep copy, used for rollback checkpoints.
func (st *Store) Clone() *Store { return &Store{table: st.table.Clone()} }

// Snapshot exports rows (insertion order) and the id counter.
func (st *Store) Snapshot() ([]Student, core.ID) {
	return st.table.All(), st.table.NextID()
}

// Restore replaces the store contents from a snapshot.
func (st *Store) Restore(rows []Student, next core.ID) {
	st.table.Restore(rows, next)
}
