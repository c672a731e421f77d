/*
cash.go - HTTP handlers for the ledger, installments, and statistics

ENDPOINTS:
  Cash:
    GET    /api/cash                 List / search transactions
    POST   /api/cash                 Record transaction
    GET    /api/cash/{id}            Get transaction
    PUT    /api/cash/{id}            Partial update
    DELETE /api/cash/{id}            Delete transaction
    PUT    /api/cash/{id}/status     Move installment status

  Installment plans:
    GET    /api/installments/plans/{planID}         List plan records
    POST   /api/installments/plans/{planID}/next    Generate next
    POST   /api/installments/plans/{planID}/cancel  Cancel remaining
    POST   /api/installments/overdue-sweep          Flip past-due pending

  Statistics:
    GET    /api/stats/dashboard
    GET    /api/stats/financial?period=Today|ThisWeek|ThisMonth|ThisYear

SEE ALSO:
  - handlers.go: Plumbing and student endpoints
*/
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/core"
)

func parseMoney(s string) (core.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Value: d}, nil
}

func buildInstallment(req CreateInstallmentRequest) (cash.Installment, error) {
	total, err := parseMoney(req.TotalAmount)
	if err != nil {
		return cash.Installment{}, err
	}
	freq, err := cash.ParseFrequency(req.Frequency)
	if err != nil {
		return cash.Installment{}, err
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return cash.Installment{}, err
	}
	return cash.NewInstallment(req.PlanID, total, req.TotalInstallments, freq, due), nil
}

// =============================================================================
// CASH CRUD
// =============================================================================

// ListCash returns transactions, filtered when search params are set.
// GET /api/cash?student_id=&min_amount=&max_amount=&has_installment=&from=&to=
func (h *Handler) ListCash(w http.ResponseWriter, r *http.Request) {
	q := cash.NewQuery()
	params := r.URL.Query()

	if v := params.Get("student_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid student_id", err)
			return
		}
		q = q.StudentID(core.ID(n))
	}
	if params.Get("min_amount") != "" || params.Get("max_amount") != "" {
		minAmount := core.Money{Value: decimal.NewFromInt(-core.MaxAbsAmount)}
		maxAmount := core.Money{Value: decimal.NewFromInt(core.MaxAbsAmount)}
		var err error
		if v := params.Get("min_amount"); v != "" {
			if minAmount, err = parseMoney(v); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid min_amount", err)
				return
			}
		}
		if v := params.Get("max_amount"); v != "" {
			if maxAmount, err = parseMoney(v); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid max_amount", err)
				return
			}
		}
		q = q.AmountRange(minAmount, maxAmount)
	}
	if v := params.Get("has_installment"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid has_installment", err)
			return
		}
		q = q.HasInstallment(b)
	}
	if params.Get("from") != "" || params.Get("to") != "" {
		if params.Get("from") == "" || params.Get("to") == "" {
			writeError(w, http.StatusBadRequest, "Date filter needs both from and to", nil)
			return
		}
		from, err := parseDate(params.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from", err)
			return
		}
		to, err := parseDate(params.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to", err)
			return
		}
		q = q.DateRange(from, to)
	}

	records, err := h.mgr.SearchCash(q)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashDTOs(records))
}

// CreateCash records a transaction.
// POST /api/cash
func (h *Handler) CreateCash(w http.ResponseWriter, r *http.Request) {
	var req CreateCashRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	b := cash.NewBuilder(amount)
	if req.StudentID != nil {
		b.StudentID(*req.StudentID)
	}
	if req.Note != "" {
		b.Note(req.Note)
	}
	if req.Installment != nil {
		inst, err := buildInstallment(*req.Installment)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid installment", err)
			return
		}
		b.Installment(inst)
	}

	c, err := h.mgr.CreateCash(b)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.log.Info("cash recorded",
		slog.Uint64("id", uint64(c.ID)), slog.String("amount", c.Amount.Value.String()))
	writeJSON(w, http.StatusCreated, toCashDTO(c))
}

// GetCash returns one transaction.
// GET /api/cash/{id}
func (h *Handler) GetCash(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	c, err := h.mgr.GetCash(id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashDTO(c))
}

// UpdateCash applies a partial update.
// PUT /api/cash/{id}
func (h *Handler) UpdateCash(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	var req UpdateCashRequest
	if !h.decode(w, r, &req) {
		return
	}

	u := cash.NewUpdater()
	if req.Amount != nil {
		amount, err := parseMoney(*req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
		u.Amount(amount)
	}
	if req.Note != nil {
		u.Note(*req.Note)
	}
	if req.StudentID != nil {
		u.StudentID(*req.StudentID)
	}
	if req.ClearStudentID {
		u.ClearStudentID()
	}
	if req.Installment != nil {
		inst, err := buildInstallment(*req.Installment)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid installment", err)
			return
		}
		u.Installment(inst)
	}
	if req.ClearInstallment {
		u.ClearInstallment()
	}

	c, err := h.mgr.UpdateCash(id, u)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashDTO(c))
}

// DeleteCash removes a transaction.
// DELETE /api/cash/{id}
func (h *Handler) DeleteCash(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	if err := h.mgr.DeleteCash(id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StudentCash lists the student's transactions.
// GET /api/students/{id}/cash
func (h *Handler) StudentCash(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	records, err := h.mgr.CashByStudent(id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashDTOs(records))
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

// UpdateInstallmentStatus moves an installment to a new status.
// PUT /api/cash/{id}/status
func (h *Handler) UpdateInstallmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	var req UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	status := cash.Status(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status", nil)
		return
	}
	c, err := h.mgr.UpdateInstallmentStatus(id, status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashDTO(c))
}

// ListPlan returns every record of an installment plan.
// GET /api/installments/plans/{planID}
func (h *Handler) ListPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := idParam(r, "planID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid planID", err)
		return
	}
	records, err := h.mgr.InstallmentsByPlan(planID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashDTOs(records))
}

// GenerateNextInstallment appends the next installment of a plan.
// POST /api/installments/plans/{planID}/next
func (h *Handler) GenerateNextInstallment(w http.ResponseWriter, r *http.Request) {
	planID, err := idParam(r, "planID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid planID", err)
		return
	}
	var req GenerateNextRequest
	if !h.decode(w, r, &req) {
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid due_date", err)
		return
	}
	c, err := h.mgr.GenerateNextInstallment(planID, due)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.log.Info("installment generated",
		slog.Uint64("plan_id", uint64(planID)),
		slog.Int("current", c.Installment.CurrentInstallment))
	writeJSON(w, http.StatusCreated, toCashDTO(c))
}

// CancelPlan cancels the remaining installments of a plan.
// POST /api/installments/plans/{planID}/cancel
func (h *Handler) CancelPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := idParam(r, "planID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid planID", err)
		return
	}
	count, err := h.mgr.CancelInstallmentPlan(planID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.log.Info("installment plan cancelled",
		slog.Uint64("plan_id", uint64(planID)), slog.Int("count", count))
	writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// OverdueSweep flips past-due pending installments to overdue.
// POST /api/installments/overdue-sweep
func (h *Handler) OverdueSweep(w http.ResponseWriter, r *http.Request) {
	count, err := h.mgr.MarkOverdueInstallments()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// =============================================================================
// STATISTICS
// =============================================================================

// DashboardStats returns the studio-wide dashboard.
// GET /api/stats/dashboard
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.DashboardStats())
}

// StudentStats returns one student's aggregates.
// GET /api/students/{id}/stats
func (h *Handler) StudentStats(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}
	st, err := h.mgr.StudentStats(id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// FinancialStats returns income/expense totals over a period.
// GET /api/stats/financial?period=ThisMonth
func (h *Handler) FinancialStats(w http.ResponseWriter, r *http.Request) {
	period, err := core.ParseTimePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	f, err := h.mgr.FinancialStats(period)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
