package repository

import (
	"context"
	"time"

	"github.com/ssdev/emi-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

type borrowerRepository struct {
	db *sqlx.DB
}

func NewBorrowerRepository(db *sqlx.DB) BorrowerRepository {
	return &borrowerRepository{db: db}
}

func (r *borrowerRepository) Create(ctx context.Context, borrower *domain.Borrower) error {
	query := `
		INSERT INTO borrowers (id, name, place, referred_by, job, phone, principal, interest_rate,
			tenure_months, monthly_emi, total_payable, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		borrower.ID,
		borrower.Name,
		borrower.Place,
		borrower.ReferredBy,
		borrower.Job,
		borrower.Phone,
		borrower.Principal,
		borrower.InterestRate,
		borrower.TenureMonths,
		borrower.MonthlyEMI,
		borrower.TotalPayable,
		borrower.StartDate,
		borrower.EndDate,
		borrower.Status,
		borrower.CreatedAt,
		borrower.UpdatedAt,
	)

	return err
}

func (r *borrowerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Borrower, error) {
	query := `
		SELECT id, name, place, referred_by, job, phone, principal, interest_rate,
			tenure_months, monthly_emi, total_payable, start_date, end_date, status, created_at, updated_at
		FROM borrowers
		WHERE phone = $1
	`

	var borrower domain.Borrower
	if err := r.db.GetContext(ctx, &borrower, query, phone); err != nil {
		return nil, err
	}

	return &borrower, nil
}

func (r *borrowerRepository) GetAll(ctx context.Context) ([]*domain.Borrower, error) {
	query := `
		SELECT id, name, place, referred_by, job, phone, principal, interest_rate,
			tenure_months, monthly_emi, total_payable, start_date, end_date, status, created_at, updated_at
		FROM borrowers
		ORDER BY created_at DESC
	`

	var borrowers []*domain.Borrower
	if err := r.db.SelectContext(ctx, &borrowers, query); err != nil {
		return nil, err
	}

	return borrowers, nil
}

func (r *borrowerRepository) Update(ctx context.Context, borrower *domain.Borrower) error {
	query := `
		UPDATE borrowers
		SET name = $2, place = $3, referred_by = $4, job = $5, principal = $6, interest_rate = $7,
			tenure_months = $8, monthly_emi = $9, total_payable = $10, start_date = $11,
			end_date = $12, status = $13, updated_at = $14
		WHERE phone = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		borrower.Phone,
		borrower.Name,
		borrower.Place,
		borrower.ReferredBy,
		borrower.Job,
		borrower.Principal,
		borrower.InterestRate,
		borrower.TenureMonths,
		borrower.MonthlyEMI,
		borrower.TotalPayable,
		borrower.StartDate,
		borrower.EndDate,
		borrower.Status,
		time.Now(),
	)

	return err
}

func (r *borrowerRepository) DeleteByPhone(ctx context.Context, phone string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM borrowers WHERE phone = $1`, phone)
	return err
}

func (r *borrowerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM borrowers`)
	return count, err
}

func (r *borrowerRepository) CountWithInstallmentsDueBetween(ctx context.Context, start, end time.Time) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT borrower_phone)
		FROM installments
		WHERE due_date BETWEEN $1 AND $2
	`

	var count int64
	err := r.db.GetContext(ctx, &count, query, start, end)
	return count, err
}
