package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ssdev/emi-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

const installmentColumns = `id, borrower_phone, month_number, month_name, amount_due, due_date,
	status, paid_date, paid_amount, pending_amount, cumulative_pending, created_at, updated_at`

type installmentRepository struct {
	db *sqlx.DB
}

func NewInstallmentRepository(db *sqlx.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) UpsertSchedule(ctx context.Context, installments []*domain.Installment) error {
	// The unique index on (borrower_phone, month_number) makes regeneration
	// fill only missing months.
	query := `
		INSERT INTO installments (id, borrower_phone, month_number, month_name, amount_due, due_date,
			status, paid_date, paid_amount, pending_amount, cumulative_pending, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (borrower_phone, month_number) DO NOTHING
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, inst := range installments {
		_, err = tx.ExecContext(ctx, query,
			inst.ID,
			inst.BorrowerPhone,
			inst.MonthNumber,
			inst.MonthName,
			inst.AmountDue,
			inst.DueDate,
			inst.Status,
			inst.PaidDate,
			inst.PaidAmount,
			inst.PendingAmount,
			inst.CumulativePending,
			inst.CreatedAt,
			inst.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *installmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE id = $1`

	var inst domain.Installment
	if err := r.db.GetContext(ctx, &inst, query, id); err != nil {
		return nil, err
	}

	return &inst, nil
}

func (r *installmentRepository) GetByPhoneOrderByMonth(ctx context.Context, phone string) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE borrower_phone = $1 ORDER BY month_number`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, phone); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) Update(ctx context.Context, installment *domain.Installment) error {
	query := `
		UPDATE installments
		SET status = $2, paid_date = $3, paid_amount = $4, pending_amount = $5,
			cumulative_pending = $6, updated_at = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		installment.ID,
		installment.Status,
		installment.PaidDate,
		installment.PaidAmount,
		installment.PendingAmount,
		installment.CumulativePending,
		time.Now(),
	)

	return err
}

func (r *installmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	// Paid is terminal; only RecordPayment may move a row out of it.
	query := `UPDATE installments SET status = $2, updated_at = $3 WHERE id = $1 AND status != 'paid'`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}

func (r *installmentRepository) GetAll(ctx context.Context) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments ORDER BY borrower_phone, month_number`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) GetAllNotStatus(ctx context.Context, status string) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE status != $1`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, status); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) GetByMonthAndYear(ctx context.Context, month, year int) ([]*domain.Installment, error) {
	query := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE EXTRACT(MONTH FROM due_date) = $1 AND EXTRACT(YEAR FROM due_date) = $2
	`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, month, year); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) GetDueOnOrAfter(ctx context.Context, date time.Time) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE due_date >= $1`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, date); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) WaitlistPhones(ctx context.Context, cutoff time.Time, minCount int) ([]string, error) {
	query := `
		SELECT borrower_phone
		FROM installments
		WHERE status != 'paid' AND due_date <= $1
		GROUP BY borrower_phone
		HAVING COUNT(*) >= $2
	`

	var phones []string
	if err := r.db.SelectContext(ctx, &phones, query, cutoff, minCount); err != nil {
		return nil, err
	}

	return phones, nil
}

func (r *installmentRepository) RecentPaid(ctx context.Context, limit int) ([]*domain.Installment, error) {
	query := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE status = 'paid' AND paid_date IS NOT NULL
		ORDER BY paid_date DESC
		LIMIT $1
	`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, limit); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) DistinctPhones(ctx context.Context) ([]string, error) {
	var phones []string
	if err := r.db.SelectContext(ctx, &phones, `SELECT DISTINCT borrower_phone FROM installments`); err != nil {
		return nil, err
	}

	return phones, nil
}

func (r *installmentRepository) DeleteByPhone(ctx context.Context, phone string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM installments WHERE borrower_phone = $1`, phone)
	return err
}

func (r *installmentRepository) SumPaid(ctx context.Context, start, end *time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `COALESCE(SUM(paid_amount), 0)`, `status = 'paid'`, start, end)
}

func (r *installmentRepository) SumPending(ctx context.Context, start, end *time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `COALESCE(SUM(pending_amount), 0)`, `status != 'paid'`, start, end)
}

func (r *installmentRepository) sum(ctx context.Context, agg, cond string, start, end *time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	var err error

	if start != nil && end != nil {
		query := `SELECT ` + agg + ` FROM installments WHERE ` + cond + ` AND due_date BETWEEN $1 AND $2`
		err = r.db.GetContext(ctx, &total, query, *start, *end)
	} else {
		query := `SELECT ` + agg + ` FROM installments WHERE ` + cond
		err = r.db.GetContext(ctx, &total, query)
	}

	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
