/*
Package sqlite provides a SQLite-backed Persistence implementation.

PURPOSE:
  Durable storage for the studio snapshot. Each Save replaces the full
  state inside one SQL transaction, mirroring the snapshot-replacement
  contract of the other backends.

KEY TABLES:
  students:  one row per student, scores as a JSON array
  cash:      one row per transaction, installment columns NULL when absent
  meta:      id counters and the save timestamp

WAL MODE:
  The database is opened with WAL journaling for better crash recovery
  and so readers do not block the single writer.

USAGE:
  st, err := sqlite.New("./data/studio.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()
  mgr, err := studio.New(st)

SEE ALSO:
  - studio/persistence.go: the contract this package implements
  - store/jsonfile: the single-document alternative
*/
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/core"
	"github.com/qmx/studio-engine/student"
	"github.com/qmx/studio-engine/studio"
)

// Store implements studio.Persistence on a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER NOT NULL,
		class TEXT NOT NULL,
		subject TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		rings_json TEXT NOT NULL,
		lessons_left INTEGER,
		membership_start TEXT,
		membership_end TEXT
	);

	CREATE TABLE IF NOT EXISTS cash (
		id INTEGER PRIMARY KEY,
		student_id INTEGER,
		amount TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		plan_id INTEGER,
		total_amount TEXT,
		total_installments INTEGER,
		current_installment INTEGER,
		frequency TEXT,
		due_date TEXT,
		status TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_cash_student ON cash(student_id)
		WHERE student_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_cash_plan ON cash(plan_id)
		WHERE plan_id IS NOT NULL;

	-- Counters and the save timestamp. A missing saved_at row means the
	-- database has never been saved to.
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SAVE - Full snapshot replacement in one transaction
// =============================================================================

func (s *Store) Save(snap studio.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"students", "cash", "meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, st := range snap.Students {
		if err := insertStudent(tx, st); err != nil {
			return err
		}
	}
	for _, c := range snap.Cash {
		if err := insertCash(tx, c); err != nil {
			return err
		}
	}

	meta := map[string]string{
		"next_student_id": strconv.FormatUint(uint64(snap.NextStudentID), 10),
		"next_cash_id":    strconv.FormatUint(uint64(snap.NextCashID), 10),
		"saved_at":        snap.SavedAt.Format(time.RFC3339Nano),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("write meta %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func insertStudent(tx *sql.Tx, st student.Student) error {
	rings, err := json.Marshal(st.Rings)
	if err != nil {
		return fmt.Errorf("encode scores for student %d: %w", st.ID, err)
	}
	_, err = tx.Exec(`
		INSERT INTO students
			(id, name, age, class, subject, phone, note, rings_json,
			 lessons_left, membership_start, membership_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(st.ID), st.Name, st.Age, string(st.Class), string(st.Subject),
		st.Phone, st.Note, string(rings),
		nullInt(st.LessonsLeft), nullTime(st.MembershipStart), nullTime(st.MembershipEnd),
	)
	if err != nil {
		return fmt.Errorf("insert student %d: %w", st.ID, err)
	}
	return nil
}

func insertCash(tx *sql.Tx, c cash.Cash) error {
	var planID, totalInst, currentInst any
	var totalAmount, frequency, dueDate, status any
	if inst := c.Installment; inst != nil {
		planID = int64(inst.PlanID)
		totalAmount = inst.TotalAmount.Value.String()
		totalInst = inst.TotalInstallments
		currentInst = inst.CurrentInstallment
		frequency = inst.Frequency.String()
		dueDate = inst.DueDate.Format(time.RFC3339Nano)
		status = string(inst.Status)
	}
	_, err := tx.Exec(`
		INSERT INTO cash
			(id, student_id, amount, note, created_at, plan_id, total_amount,
			 total_installments, current_installment, frequency, due_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(c.ID), nullID(c.StudentID), c.Amount.Value.String(), c.Note,
		c.CreatedAt.Format(time.RFC3339Nano),
		planID, totalAmount, totalInst, currentInst, frequency, dueDate, status,
	)
	if err != nil {
		return fmt.Errorf("insert cash %d: %w", c.ID, err)
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

func (s *Store) Load() (studio.Snapshot, bool, error) {
	meta, err := s.loadMeta()
	if err != nil {
		return studio.Snapshot{}, false, err
	}
	if _, ok := meta["saved_at"]; !ok {
		return studio.Snapshot{}, false, nil
	}

	var snap studio.Snapshot
	if snap.SavedAt, err = time.Parse(time.RFC3339Nano, meta["saved_at"]); err != nil {
		return studio.Snapshot{}, false, fmt.Errorf("parse saved_at: %w", err)
	}
	if snap.NextStudentID, err = parseID(meta["next_student_id"]); err != nil {
		return studio.Snapshot{}, false, fmt.Errorf("parse next_student_id: %w", err)
	}
	if snap.NextCashID, err = parseID(meta["next_cash_id"]); err != nil {
		return studio.Snapshot{}, false, fmt.Errorf("parse next_cash_id: %w", err)
	}
	if snap.Students, err = s.loadStudents(); err != nil {
		return studio.Snapshot{}, false, err
	}
	if snap.Cash, err = s.loadCash(); err != nil {
		return studio.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *Store) loadMeta() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func (s *Store) loadStudents() ([]student.Student, error) {
	rows, err := s.db.Query(`
		SELECT id, name, age, class, subject, phone, note, rings_json,
		       lessons_left, membership_start, membership_end
		FROM students ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var out []student.Student
	for rows.Next() {
		var (
			st           student.Student
			id           int64
			class, subj  string
			ringsJSON    string
			lessons      sql.NullInt64
			mStart, mEnd sql.NullString
		)
		if err := rows.Scan(&id, &st.Name, &st.Age, &class, &subj, &st.Phone,
			&st.Note, &ringsJSON, &lessons, &mStart, &mEnd); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		st.ID = core.ID(id)
		st.Class = student.Class(class)
		st.Subject = student.Subject(subj)
		if err := json.Unmarshal([]byte(ringsJSON), &st.Rings); err != nil {
			return nil, fmt.Errorf("decode scores for student %d: %w", id, err)
		}
		if lessons.Valid {
			n := int(lessons.Int64)
			st.LessonsLeft = &n
		}
		if st.MembershipStart, err = parseNullTime(mStart); err != nil {
			return nil, fmt.Errorf("parse membership_start for student %d: %w", id, err)
		}
		if st.MembershipEnd, err = parseNullTime(mEnd); err != nil {
			return nil, fmt.Errorf("parse membership_end for student %d: %w", id, err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) loadCash() ([]cash.Cash, error) {
	rows, err := s.db.Query(`
		SELECT id, student_id, amount, note, created_at, plan_id, total_amount,
		       total_installments, current_installment, frequency, due_date, status
		FROM cash ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query cash: %w", err)
	}
	defer rows.Close()

	var out []cash.Cash
	for rows.Next() {
		var (
			c                      cash.Cash
			id                     int64
			studentID, planID      sql.NullInt64
			amount, createdAt      string
			totalAmount, frequency sql.NullString
			dueDate, status        sql.NullString
			totalInst, currentInst sql.NullInt64
		)
		if err := rows.Scan(&id, &studentID, &amount, &c.Note, &createdAt,
			&planID, &totalAmount, &totalInst, &currentInst,
			&frequency, &dueDate, &status); err != nil {
			return nil, fmt.Errorf("scan cash: %w", err)
		}
		c.ID = core.ID(id)
		if studentID.Valid {
			sid := core.ID(studentID.Int64)
			c.StudentID = &sid
		}
		if c.Amount, err = parseMoney(amount); err != nil {
			return nil, fmt.Errorf("parse amount for cash %d: %w", id, err)
		}
		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for cash %d: %w", id, err)
		}
		if planID.Valid {
			inst, err := scanInstallment(planID, totalAmount, totalInst, currentInst, frequency, dueDate, status)
			if err != nil {
				return nil, fmt.Errorf("decode installment for cash %d: %w", id, err)
			}
			c.Installment = inst
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanInstallment(planID sql.NullInt64, totalAmount sql.NullString,
	totalInst, currentInst sql.NullInt64, frequency, dueDate, status sql.NullString) (*cash.Installment, error) {

	inst := &cash.Installment{
		PlanID:             core.ID(planID.Int64),
		TotalInstallments:  int(totalInst.Int64),
		CurrentInstallment: int(currentInst.Int64),
		Status:             cash.Status(status.String),
	}
	var err error
	if inst.TotalAmount, err = parseMoney(totalAmount.String); err != nil {
		return nil, err
	}
	if inst.Frequency, err = cash.ParseFrequency(frequency.String); err != nil {
		return nil, err
	}
	if inst.DueDate, err = time.Parse(time.RFC3339Nano, dueDate.String); err != nil {
		return nil, err
	}
	return inst, nil
}

// =============================================================================
// COLUMN HELPERS
// =============================================================================

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullID(p *core.ID) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.Format(time.RFC3339Nano)
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseMoney(s string) (core.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Value: d}, nil
}

func parseID(s string) (core.ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return core.ID(n), nil
}
