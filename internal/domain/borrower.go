package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	BorrowerStatusActive    = "active"
	BorrowerStatusInactive  = "inactive"
	BorrowerStatusCompleted = "completed"
	BorrowerStatusDefaulted = "defaulted"
)

// Borrower represents a loan customer. The phone number is the business key
// that installments reference; terms are fixed at creation time.
type Borrower struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Place        string          `json:"place" db:"place"`
	ReferredBy   string          `json:"referred_by" db:"referred_by"`
	Job          string          `json:"job" db:"job"`
	Phone        string          `json:"phone" db:"phone"`
	Principal    decimal.Decimal `json:"principal" db:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	TenureMonths int             `json:"tenure_months" db:"tenure_months"`
	MonthlyEMI   decimal.Decimal `json:"monthly_emi" db:"monthly_emi"`
	TotalPayable decimal.Decimal `json:"total_payable" db:"total_payable"`
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	EndDate      time.Time       `json:"end_date" db:"end_date"`
	Status       string          `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

type CreateBorrowerRequest struct {
	Name         string          `json:"name" validate:"required,min=2,max=100"`
	Place        string          `json:"place" validate:"required,max=100"`
	ReferredBy   string          `json:"referred_by" validate:"max=100"`
	Job          string          `json:"job" validate:"required,max=100"`
	Phone        string          `json:"phone" validate:"required,min=10,max=15"`
	Principal    decimal.Decimal `json:"principal" validate:"required"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"required"`
	TenureMonths int             `json:"tenure_months" validate:"required,gte=1,lte=360"`
	StartDate    string          `json:"start_date" validate:"required"`
}

type UpdateBorrowerRequest struct {
	Name         string          `json:"name" validate:"required,min=2,max=100"`
	Place        string          `json:"place" validate:"required,max=100"`
	ReferredBy   string          `json:"referred_by" validate:"max=100"`
	Job          string          `json:"job" validate:"required,max=100"`
	Phone        string          `json:"phone" validate:"required,min=10,max=15"`
	Principal    decimal.Decimal `json:"principal" validate:"required"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"required"`
	TenureMonths int             `json:"tenure_months" validate:"required,gte=1,lte=360"`
	StartDate    string          `json:"start_date" validate:"required"`
}

type CreateBorrowerResponse struct {
	Borrower *Borrower `json:"borrower"`
}

// DashboardStats is the headline view over the whole book, optionally
// restricted to a due-date range.
type DashboardStats struct {
	TotalBorrowers int64           `json:"total_borrowers"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalPending   decimal.Decimal `json:"total_pending"`
}
