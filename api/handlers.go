/*
handlers.go - HTTP handlers for the student roster

PURPOSE:
  Exposes the studio engine via REST. Handles HTTP request/response,
  JSON serialization, and delegates every decision to the domain.

ENDPOINTS (students):
  GET    /api/students                     List / search students
  POST   /api/students                     Create student
  GET    /api/students/{id}                Get student
  PUT    /api/students/{id}                Partial update
  DELETE /api/students/{id}                Delete student
  POST   /api/students/batch               Batch partial update
  GET    /api/students/{id}/stats          Per-student statistics
  GET    /api/students/{id}/cash           Student's transactions
  GET    /api/students/{id}/scores         List scores
  POST   /api/students/{id}/scores         Add score
  PUT    /api/students/{id}/scores/{index} Update score
  DELETE /api/students/{id}/scores/{index} Remove score
  PUT    /api/students/{id}/membership     Set window
  DELETE /api/students/{id}/membership     Clear window
  POST   /api/students/{id}/membership/preset  Grant Month/Year window
  GET    /api/memberships/expiring         Expiry report

ERROR HANDLING:
  Domain errors map to HTTP status by kind:
  - 400: validation errors, malformed input
  - 404: missing records
  - 409: domain conflicts (complete plan, inverted window, ...)
  - 500: persistence failures

SEE ALSO:
  - cash.go: Ledger, installment, and stats endpoints
  - dto.go: Request/response data structures
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator"

	"github.com/qmx/studio-engine/core"
	"github.com/qmx/studio-engine/student"
	"github.com/qmx/studio-engine/studio"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	mgr      *studio.Manager
	log      *slog.Logger
	validate *validator.Validate
}

// NewHandler creates a handler around the manager.
func NewHandler(mgr *studio.Manager, log *slog.Logger) *Handler {
	return &Handler{mgr: mgr, log: log, validate: validator.New()}
}

// =============================================================================
// PLUMBING
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to an HTTP status by kind.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	writeError(w, status, http.StatusText(status), err)
}

// decode parses the body and runs the validator tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func idParam(r *http.Request, name string) (core.ID, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return core.ID(n), nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// parseDate accepts RFC 3339 or plain YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use RFC 3339 or YYYY-MM-DD)", s)
	}
	return t, nil
}

func parseClass(s string) (student.Class, error) {
	c := student.Class(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid class %q", s)
	}
	return c, nil
}

func parseSubject(s string) (student.Subject, error) {
	subj := student.Subject(s)
	if !subj.Valid() {
		return "", fmt.Errorf("invalid subject %q", s)
	}
	return subj, nil
}

// =============================================================================
// STUDENT CRUD
// =============================================================================

// ListStudents returns all students, filtered when search params are set.
// GET /api/students?name_contains=&min_age=&max_age=&class=&subject=&has_membership=
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	q := student.NewQuery()
	params := r.URL.Query()

	if v := params.Get("name_contains"); v != "" {
		q = q.NameContains(v)
	}
	if params.Get("min_age") != "" || params.Get("max_age") != "" {
		minAge, maxAge := core.MinAge, core.MaxAge
		var err error
		if v := params.Get("min_age"); v != "" {
			if minAge, err = strconv.Atoi(v); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid min_age", err)
				return
			}
		}
		if v := params.Get("max_age"); v != "" {
			if maxAge, err = strconv.Atoi(v); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid max_age", err)
				return
			}
		}
		q = q.AgeRange(minAge, maxAge)
	}
	if v := params.Get("class"); v != "" {
		c, err := parseClass(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid class", err)
			return
		}
		q = q.Class(c)
	}
	if v := params.Get("subject"); v != "" {
		subj, err := parseSubject(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid subject", err)
			return
		}
		q = q.Subject(subj)
	}
	if v := params.Get("has_membership"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid has_membership", err)
			return
		}
		q = q.HasMembership(b)
	}

	students, err := h.mgr.SearchStudents(q)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	now := time.Now()
	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s, now)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStudent creates a student.
// POST /api/students
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if !h.decode(w, r, &req) {
		return
	}

	b := student.NewBuilder(req.Name, req.Age)
	if req.Class != "" {
		c, err := parseClass(req.Class)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid class", err)
			return
		}
		b.Class(c)
	}
	if req.Subject != "" {
		subj, err := parseSubject(req.Subject)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid subject", err)
			return
		}
		b.Subject(subj)
	}
	if req.Phone != "" {
		b.Phone(req.Phone)
	}
	if req.Note != "" {
		b.Note(req.Note)
	}
	if req.LessonsLeft != nil {
		b.LessonsLeft(*req.LessonsLeft)
	}
	if req.MembershipStart != nil || req.MembershipEnd != nil {
		if req.MembershipStart == nil || req.MembershipEnd == nil {
			writeError(w, http.StatusBadRequest, "Membership needs both start and end", nil)
			return
		}
		start, err := parseDate(*req.MembershipStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid membership_start", err)
			return
		}
		end, err := parseDate(*req.MembershipEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid membership_end", err)
			return
		}
		b.Membership(start, end)
	}

	s, err := h.mgr.CreateStudent(b)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.log.Info("student created",
		slog.Uint64("id", uint64(s.ID)), slog.String("name", s.Name))
	writeJSON(w, http.StatusCreated, toStudentDTO(s, time.Now()))
}

// GetStudent returns one student.
// GET /api/students/{id}
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	s, err := h.mgr.GetStudent(id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s, time.Now()))
}

// studentUpdater stages an UpdateStudentRequest onto a domain updater.
func studentUpdater(req UpdateStudentRequest) (*student.Updater, error) {
	u := student.NewUpdater()
	if req.Name != nil {
		u.Name(*req.Name)
	}
	if req.Age != nil {
		u.Age(*req.Age)
	}
	if req.Class != nil {
		c, err := parseClass(*req.Class)
		if err != nil {
			return nil, err
		}
		u.Class(c)
	}
	if req.Subject != nil {
		subj, err := parseSubject(*req.Subject)
		if err != nil {
			return nil, err
		}
		u.Subject(subj)
	}
	if req.Phone != nil {
		u.Phone(*req.Phone)
	}
	if req.Note != nil {
		u.Note(*req.Note)
	}
	if req.LessonsLeft != nil {
		u.LessonsLeft(*req.LessonsLeft)
	}
	if req.ClearLessonsLeft {
		u.ClearLessonsLeft()
	}
	return u, nil
}

// UpdateStudent applies a partial update.
// PUT /api/students/{id}
func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	var req UpdateStudentRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := studentUpdater(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s, err := h.mgr.UpdateStudent(id, u)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s, time.Now()))
}

// BatchUpdateStudents applies one update to many students.
// POST /api/students/batch
func (h *Handler) BatchUpdateStudents(w http.ResponseWriter, r *http.Request) {
	var req BatchUpdateStudentsRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := studentUpdater(req.Update)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	count, err := h.mgr.UpdateStudents(req.IDs, u)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// DeleteStudent removes a student.
// DELETE /api/students/{id}
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	if err := h.mgr.DeleteStudent(id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.log.Info("student deleted", slog.Uint64("id", uint64(id)))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SCORES
// =============================================================================

// ListScores returns the student's scores in recording order.
// GET /api/students/{id}/scores
func (h *Handler) ListScores(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	scores, err := h.mgr.Scores(id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if scores == nil {
		scores = []float64{}
	}
	writeJSON(w, http.StatusOK, scores)
}

// AddScore appends a score.
// POST /api/students/{id}/scores
func (h *Handler) AddScore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	var req ScoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.mgr.AddScore(id, req.Score)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(s, time.Now()))
}

// UpdateScore replaces the score at an index.
// PUT /api/students/{id}/scores/{index}
func (h *Handler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	index, err := intParam(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid index", err)
		return
	}
	var req ScoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.mgr.UpdateScore(id, index, req.Score)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s, time.Now()))
}

// RemoveScore deletes the score at an index.
// DELETE /api/students/{id}/scores/{index}
func (h *Handler) RemoveScore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	index, err := intParam(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid index", err)
		return
	}
	s, err := h.mgr.RemoveScore(id, index)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s, time.Now()))
}

// =============================================================================
// MEMBERSHIP
// =============================================================================

// SetMembership sets an explicit membership window.
// PUT /api/students/{id}/membership
func (h *Handler) SetMembership(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	var req MembershipRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, err := parseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end, err := parseDate(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end", err)
		return
	}
	s, err := h.mgr.SetMembership(id, start, end)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s, time.Now()))
}

// ClearMembership removes the membership window.
// DELETE /api/students/{id}/membership
func (h *Handler) ClearMembership(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	s, err := h.mgr.ClearMembership(id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s, time.Now()))
}

// GrantMembership grants a preset Month/Year window.
// POST /api/students/{id}/membership/preset
func (h *Handler) GrantMembership(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	var req MembershipPresetRequest
	if !h.decode(w, r, &req) {
		return
	}
	typ, err := studio.ParseMembershipType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid type", err)
		return
	}
	s, err := h.mgr.SetMembershipByType(id, typ, req.Extend)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s, time.Now()))
}

// ExpiringMemberships lists active memberships ending soon.
// GET /api/memberships/expiring?within_days=N
func (h *Handler) ExpiringMemberships(w http.ResponseWriter, r *http.Request) {
	within := int64(7)
	if v := r.URL.Query().Get("within_days"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid within_days", err)
			return
		}
		within = n
	}
	rows, err := h.mgr.ExpiringMemberships(within)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	type row struct {
		Student       StudentDTO `json:"student"`
		DaysRemaining int64      `json:"days_remaining"`
	}
	now := time.Now()
	out := make([]row, len(rows))
	for i, e := range rows {
		out[i] = row{Student: toStudentDTO(e.Student, now), DaysRemaining: e.DaysRemaining}
	}
	writeJSON(w, http.StatusOK, out)
}
