package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusOverdue = "overdue"
)

// Installment is one monthly payment obligation. Exactly one row exists per
// (borrower phone, month number); the reconciler rewrites Status and
// CumulativePending, the payment recorder rewrites the paid fields.
type Installment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	BorrowerPhone     string          `json:"borrower_phone" db:"borrower_phone"`
	MonthNumber       int             `json:"month_number" db:"month_number"`
	MonthName         string          `json:"month_name" db:"month_name"`
	AmountDue         decimal.Decimal `json:"amount_due" db:"amount_due"`
	DueDate           time.Time       `json:"due_date" db:"due_date"`
	Status            string          `json:"status" db:"status"`
	PaidDate          *time.Time      `json:"paid_date" db:"paid_date"`
	PaidAmount        decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	PendingAmount     decimal.Decimal `json:"pending_amount" db:"pending_amount"`
	CumulativePending decimal.Decimal `json:"cumulative_pending" db:"cumulative_pending"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// IsPaid reports whether the installment is in its terminal state.
func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

type RecordPaymentRequest struct {
	Status     string           `json:"status" validate:"required,oneof=pending paid overdue"`
	PaidDate   string           `json:"paid_date"`
	PaidAmount *decimal.Decimal `json:"paid_amount"`
}

type ScheduleResponse struct {
	BorrowerPhone string         `json:"borrower_phone"`
	Schedule      []*Installment `json:"schedule"`
}

// BorrowerSummary is one classification row: a borrower, the installments the
// query selected for them, and the outstanding balance over the whole
// schedule.
type BorrowerSummary struct {
	Borrower     *Borrower       `json:"borrower"`
	Installments []*Installment  `json:"installments"`
	Balance      decimal.Decimal `json:"balance"`
}
