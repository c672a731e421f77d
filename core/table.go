/*
table.go - Insertion-ordered entity storage

PURPOSE:
  Table is the in-memory keyed collection behind each entity store. It owns
  id assignment and iteration order so the stores don't have to.

GUARANTEES:
  - IDs are assigned monotonically from 1 and never reused in-process
  - Iteration returns records in insertion order
  - The id counter round-trips through snapshots, so a reload never
    collides with previously issued ids
  - Get/All return deep copies; callers can never alias store-owned state
  - Update is all-or-nothing: the mutation runs on a copy and commits only
    when it returns nil

SEE ALSO:
  - student/store.go, cash/store.go: the two stores built on Table
  - studio/persistence.go: the snapshot that round-trips Restore/NextID
*/
package core

// Cloner is implemented by entities so the Table can hand out deep copies.
type Cloner[T any] interface {
	Clone() T
}

// Table is an insertion-ordered collection of records keyed by ID.
// It is not safe for concurrent use; the manager facade serializes access.
type Table[T Cloner[T]] struct {
	kind   string
	idOf   func(T) ID
	nextID ID
	rows   map[ID]T
	order  []ID
}

// NewTable creates an empty table. kind names the record type in errors,
// idOf extracts a record's id for snapshot restore.
func NewTable[T Cloner[T]](kind string, idOf func(T) ID) *Table[T] {
	return &Table[T]{
		kind:   kind,
		idOf:   idOf,
		nextID: 1,
		rows:   make(map[ID]T),
	}
}

// Insert assigns the next id, materializes the record via build, and stores
// it. The id is returned and will never be issued again by this table.
func (t *Table[T]) Insert(build func(ID) T) ID {
	id := t.nextID
	t.nextID++
	t.rows[id] = build(id)
	t.order = append(t.order, id)
	return id
}

// Get returns a deep copy of the record, if present.
func (t *Table[T]) Get(id ID) (T, bool) {
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return row.Clone(), true
}

// Update applies fn to a copy of the record and commits the copy only if fn
// returns nil. A missing id returns NotFoundError and the table is left
// unmodified, as is any error from fn.
func (t *Table[T]) Update(id ID, fn func(*T) error) error {
	row, ok := t.rows[id]
	if !ok {
		return &NotFoundError{Kind: t.kind, ID: id}
	}
	staged := row.Clone()
	if err := fn(&staged); err != nil {
		return err
	}
	t.rows[id] = staged
	return nil
}

// Delete removes the record. Returns true iff it existed. Hard delete,
// no tombstones; the id is not reissued.
func (t *Table[T]) Delete(id ID) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns deep copies of every record in insertion order.
func (t *Table[T]) All() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id].Clone())
	}
	return out
}

// Len returns the number of records.
func (t *Table[T]) Len() int { return len(t.order) }

// NextID returns the id the next Insert will assign. Persisted with
// snapshots so reloads continue the sequence.
func (t *Table[T]) NextID() ID { return t.nextID }

// Restore replaces the table contents from a snapshot. rows must be in
// insertion order. The counter is bumped past the highest restored id if
// the persisted counter would collide.
func (t *Table[T]) Restore(rows []T, next ID) {
	t.rows = make(map[ID]T, len(rows))
	t.order = make([]ID, 0, len(rows))
	var maxID ID
	for _, row := range rows {
		id := t.idOf(row)
		t.rows[id] = row.Clone()
		t.order = append(t.order, id)
		if id > maxID {
			maxID = id
		}
	}
	t.nextID = next
	if t.nextID <= maxID {
		t.nextID = maxID + 1
	}
	if t.nextID == 0 {
		t.nextID = 1
	}
}

// Clone returns an independent deep copy of the whole table. Used by the
// manager facade to checkpoint state before a mutation so a failed persist
// can roll back.
func (t *Table[T]) Clone() *Table[T] {
	cp := &Table[T]{
		kind:   t.kind,
		idOf:   t.idOf,
		nextID: t.nextID,
		rows:   make(map[ID]T, len(t.rows)),
		order:  append([]ID(nil), t.order...),
	}
	for id, row := range t.rows {
		cp.rows[id] = row.Clone()
	}
	return cp
}
