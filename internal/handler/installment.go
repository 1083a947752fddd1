package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ssdev/emi-engine/internal/domain"
	"github.com/ssdev/emi-engine/internal/service"
	"github.com/ssdev/emi-engine/pkg/response"
)

type InstallmentHandler struct {
	schedules *service.ScheduleService
	validator *validator.Validate
}

func NewInstallmentHandler(schedules *service.ScheduleService) *InstallmentHandler {
	return &InstallmentHandler{
		schedules: schedules,
		validator: validator.New(),
	}
}

// RecordPayment handles PUT /installments/{id}/status. Marking an
// installment paid (or reverting it) reconciles the whole borrower.
func (h *InstallmentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid installment id", err)
		return
	}

	var request domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	if err := h.schedules.RecordPayment(r.Context(), id, request.Status, request.PaidDate, request.PaidAmount); err != nil {
		writeBusinessError(w, "Failed to record payment", err)
		return
	}

	response.Success(w, map[string]string{"status": request.Status})
}
