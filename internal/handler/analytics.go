package handler

import (
	"net/http"
	"strconv"

	"github.com/ssdev/emi-engine/internal/domain"
	"github.com/ssdev/emi-engine/internal/service"
	customError "github.com/ssdev/emi-engine/pkg/errors"
	"github.com/ssdev/emi-engine/pkg/response"
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// periodYear parses the period/year query parameters shared by the
// analytics endpoints. Invalid input is rejected before reaching the core.
func periodYear(r *http.Request) (domain.Period, int, error) {
	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		return "", 0, customError.WrapInvalidPeriod(r.URL.Query().Get("period"))
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		return "", 0, customError.WrapInvalidPeriod(r.URL.Query().Get("year"))
	}

	return period, year, nil
}

// MonthlyReport handles GET /analytics/monthly?period=&year=
func (h *AnalyticsHandler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	period, year, err := periodYear(r)
	if err != nil {
		writeBusinessError(w, "Invalid analytics query", err)
		return
	}

	report, err := h.analytics.MonthlyReport(r.Context(), period, year)
	if err != nil {
		writeBusinessError(w, "Failed to compute analytics", err)
		return
	}

	response.Success(w, report)
}

// AllBorrowers handles GET /analytics/borrowers
func (h *AnalyticsHandler) AllBorrowers(w http.ResponseWriter, r *http.Request) {
	period, year, err := periodYear(r)
	if err != nil {
		writeBusinessError(w, "Invalid analytics query", err)
		return
	}

	summaries, err := h.analytics.AllBorrowers(r.Context(), period, year)
	if err != nil {
		writeBusinessError(w, "Failed to fetch borrowers", err)
		return
	}

	response.Success(w, summaries)
}

// PaidBorrowers handles GET /analytics/paid
func (h *AnalyticsHandler) PaidBorrowers(w http.ResponseWriter, r *http.Request) {
	period, year, err := periodYear(r)
	if err != nil {
		writeBusinessError(w, "Invalid analytics query", err)
		return
	}

	summaries, err := h.analytics.PaidBorrowers(r.Context(), period, year)
	if err != nil {
		writeBusinessError(w, "Failed to fetch paid borrowers", err)
		return
	}

	response.Success(w, summaries)
}

// PendingBorrowers handles GET /analytics/pending
func (h *AnalyticsHandler) PendingBorrowers(w http.ResponseWriter, r *http.Request) {
	period, year, err := periodYear(r)
	if err != nil {
		writeBusinessError(w, "Invalid analytics query", err)
		return
	}

	summaries, err := h.analytics.PendingBorrowers(r.Context(), period, year)
	if err != nil {
		writeBusinessError(w, "Failed to fetch pending borrowers", err)
		return
	}

	response.Success(w, summaries)
}

// WaitlistedBorrowers handles GET /analytics/waitlist. The waitlist is
// portfolio-wide, so no period parameters.
func (h *AnalyticsHandler) WaitlistedBorrowers(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.analytics.WaitlistedBorrowers(r.Context())
	if err != nil {
		writeBusinessError(w, "Failed to fetch waitlisted borrowers", err)
		return
	}

	response.Success(w, summaries)
}
