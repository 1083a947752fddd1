package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/ssdev/emi-engine/internal/domain"
	"github.com/ssdev/emi-engine/internal/service"
	"github.com/ssdev/emi-engine/pkg/response"
)

type BorrowerHandler struct {
	borrowers *service.BorrowerService
	schedules *service.ScheduleService
	analytics *service.AnalyticsService
	validator *validator.Validate
}

func NewBorrowerHandler(
	borrowers *service.BorrowerService,
	schedules *service.ScheduleService,
	analytics *service.AnalyticsService,
) *BorrowerHandler {
	return &BorrowerHandler{
		borrowers: borrowers,
		schedules: schedules,
		analytics: analytics,
		validator: validator.New(),
	}
}

// CreateBorrower handles POST /borrowers. Schedule generation happens in the
// background; installments may not exist yet when this returns.
func (h *BorrowerHandler) CreateBorrower(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateBorrowerRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	borrower, err := h.borrowers.CreateBorrower(r.Context(), &request)
	if err != nil {
		writeBusinessError(w, "Failed to create borrower", err)
		return
	}

	response.Created(w, &domain.CreateBorrowerResponse{Borrower: borrower})
}

// UpdateBorrower handles PUT /borrowers/{phone}
func (h *BorrowerHandler) UpdateBorrower(w http.ResponseWriter, r *http.Request) {
	phone := mux.Vars(r)["phone"]

	var request domain.UpdateBorrowerRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	borrower, err := h.borrowers.UpdateBorrower(r.Context(), phone, &request)
	if err != nil {
		writeBusinessError(w, "Failed to update borrower", err)
		return
	}

	response.Success(w, borrower)
}

// DeleteBorrower handles DELETE /borrowers/{phone}
func (h *BorrowerHandler) DeleteBorrower(w http.ResponseWriter, r *http.Request) {
	phone := mux.Vars(r)["phone"]

	if err := h.borrowers.DeleteBorrower(r.Context(), phone); err != nil {
		writeBusinessError(w, "Failed to delete borrower", err)
		return
	}

	response.Success(w, map[string]string{"deleted": phone})
}

// GetBorrower handles GET /borrowers/{phone}
func (h *BorrowerHandler) GetBorrower(w http.ResponseWriter, r *http.Request) {
	phone := mux.Vars(r)["phone"]

	borrower, err := h.borrowers.GetBorrower(r.Context(), phone)
	if err != nil {
		writeBusinessError(w, "Failed to fetch borrower", err)
		return
	}

	response.Success(w, borrower)
}

// ListBorrowers handles GET /borrowers
func (h *BorrowerHandler) ListBorrowers(w http.ResponseWriter, r *http.Request) {
	borrowers, err := h.borrowers.ListBorrowers(r.Context())
	if err != nil {
		writeBusinessError(w, "Failed to list borrowers", err)
		return
	}

	response.Success(w, borrowers)
}

// GetSchedule handles GET /borrowers/{phone}/schedule: the full schedule
// with fresh cumulative pending.
func (h *BorrowerHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	phone := mux.Vars(r)["phone"]

	schedule, err := h.schedules.GetScheduleWithCumulative(r.Context(), phone)
	if err != nil {
		writeBusinessError(w, "Failed to fetch schedule", err)
		return
	}

	response.Success(w, &domain.ScheduleResponse{BorrowerPhone: phone, Schedule: schedule})
}

// RecentPayers handles GET /borrowers/recent-payers
func (h *BorrowerHandler) RecentPayers(w http.ResponseWriter, r *http.Request) {
	payers, err := h.analytics.RecentPayers(r.Context())
	if err != nil {
		writeBusinessError(w, "Failed to fetch recent payers", err)
		return
	}

	response.Success(w, payers)
}

// Dashboard handles GET /dashboard with optional start/end date filters
// (YYYY-MM-DD) over installment due dates.
func (h *BorrowerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var start, end *time.Time

	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(w, "Invalid start date", err)
			return
		}
		start = &t
	}

	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(w, "Invalid end date", err)
			return
		}
		end = &t
	}

	if (start == nil) != (end == nil) {
		response.BadRequest(w, "start and end must be provided together", nil)
		return
	}

	stats, err := h.borrowers.DashboardStats(r.Context(), start, end)
	if err != nil {
		writeBusinessError(w, "Failed to compute dashboard stats", err)
		return
	}

	response.Success(w, stats)
}
