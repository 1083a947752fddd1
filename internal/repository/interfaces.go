package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ssdev/emi-engine/internal/domain"
)

// BorrowerRepository defines the interface for borrower data operations
type BorrowerRepository interface {
	// Create creates a new borrower
	Create(ctx context.Context, borrower *domain.Borrower) error

	// GetByPhone retrieves a borrower by phone number
	GetByPhone(ctx context.Context, phone string) (*domain.Borrower, error)

	// GetAll retrieves every borrower
	GetAll(ctx context.Context) ([]*domain.Borrower, error)

	// Update updates a borrower's terms and details
	Update(ctx context.Context, borrower *domain.Borrower) error

	// DeleteByPhone deletes a borrower
	DeleteByPhone(ctx context.Context, phone string) error

	// Count returns the total number of borrowers
	Count(ctx context.Context) (int64, error)

	// CountWithInstallmentsDueBetween counts distinct borrowers with at least
	// one installment due in [start, end]
	CountWithInstallmentsDueBetween(ctx context.Context, start, end time.Time) (int64, error)
}

// InstallmentRepository defines the interface for installment data operations
type InstallmentRepository interface {
	// UpsertSchedule inserts installments, skipping (phone, month_number)
	// pairs that already exist so regeneration is idempotent
	UpsertSchedule(ctx context.Context, installments []*domain.Installment) error

	// GetByID retrieves a single installment
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error)

	// GetByPhoneOrderByMonth retrieves a borrower's schedule ordered by
	// month number ascending
	GetByPhoneOrderByMonth(ctx context.Context, phone string) ([]*domain.Installment, error)

	// Update persists the mutable fields of an installment
	Update(ctx context.Context, installment *domain.Installment) error

	// UpdateStatus updates only the status of an installment
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// GetAll retrieves every installment
	GetAll(ctx context.Context) ([]*domain.Installment, error)

	// GetAllNotStatus retrieves every installment whose status differs
	GetAllNotStatus(ctx context.Context, status string) ([]*domain.Installment, error)

	// GetByMonthAndYear retrieves installments due in a calendar month
	GetByMonthAndYear(ctx context.Context, month, year int) ([]*domain.Installment, error)

	// GetDueOnOrAfter retrieves installments with due_date >= date
	GetDueOnOrAfter(ctx context.Context, date time.Time) ([]*domain.Installment, error)

	// WaitlistPhones returns phones of borrowers with at least minCount
	// unpaid installments due on or before the cutoff
	WaitlistPhones(ctx context.Context, cutoff time.Time, minCount int) ([]string, error)

	// RecentPaid returns paid installments ordered by paid_date descending
	RecentPaid(ctx context.Context, limit int) ([]*domain.Installment, error)

	// DistinctPhones returns every borrower phone that has installments
	DistinctPhones(ctx context.Context) ([]string, error)

	// DeleteByPhone removes a borrower's schedule
	DeleteByPhone(ctx context.Context, phone string) error

	// SumPaid totals paid_amount over paid installments, optionally
	// restricted to a due-date range
	SumPaid(ctx context.Context, start, end *time.Time) (decimal.Decimal, error)

	// SumPending totals pending_amount over unpaid installments, optionally
	// restricted to a due-date range
	SumPending(ctx context.Context, start, end *time.Time) (decimal.Decimal, error)
}
