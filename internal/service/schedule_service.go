package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ssdev/emi-engine/internal/config"
	"github.com/ssdev/emi-engine/internal/domain"
	"github.com/ssdev/emi-engine/internal/repository"
	"github.com/ssdev/emi-engine/pkg/clock"
	"github.com/ssdev/emi-engine/pkg/dates"
	customError "github.com/ssdev/emi-engine/pkg/errors"
)

// ReportInvalidator drops cached analytics after a write that changes them.
type ReportInvalidator interface {
	Invalidate(ctx context.Context)
}

// ScheduleService owns the installment lifecycle: generation, the status
// state machine, cumulative pending, and payment recording. All mutation of
// a borrower's schedule funnels through the per-borrower lock.
type ScheduleService struct {
	InstallmentRepo repository.InstallmentRepository
	clock           clock.Clock
	config          *config.Config
	reports         ReportInvalidator
	locks           *keyedMutex
}

func NewScheduleService(
	installmentRepo repository.InstallmentRepository,
	clk clock.Clock,
	cfg *config.Config,
	reports ReportInvalidator,
) *ScheduleService {
	return &ScheduleService{
		InstallmentRepo: installmentRepo,
		clock:           clk,
		config:          cfg,
		reports:         reports,
		locks:           newKeyedMutex(),
	}
}

// GenerateSchedule creates one installment per month of the borrower's
// tenure and runs the first reconcile pass. The upsert skips months that
// already exist, so rerunning after a partial failure fills the gaps.
func (s *ScheduleService) GenerateSchedule(ctx context.Context, borrower *domain.Borrower) error {
	logrus.WithField("phone", borrower.Phone).Info("generating installment schedule")

	now := s.clock.Now()
	installments := make([]*domain.Installment, 0, borrower.TenureMonths)

	for month := 1; month <= borrower.TenureMonths; month++ {
		dueDate := dates.AddMonths(borrower.StartDate, month-1)

		installments = append(installments, &domain.Installment{
			ID:                uuid.New(),
			BorrowerPhone:     borrower.Phone,
			MonthNumber:       month,
			MonthName:         dates.MonthName(dueDate),
			AmountDue:         borrower.MonthlyEMI,
			DueDate:           dueDate,
			Status:            domain.InstallmentStatusPending,
			PaidAmount:        decimal.Zero,
			PendingAmount:     borrower.MonthlyEMI,
			CumulativePending: decimal.Zero,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	if err := s.InstallmentRepo.UpsertSchedule(ctx, installments); err != nil {
		return customError.WrapDatabaseError(err)
	}

	return s.Reconcile(ctx, borrower.Phone)
}

// Reconcile recomputes status and cumulative pending for every installment
// of one borrower as of today. It is a pure function of due dates, paid
// flags and the clock, so rerunning it converges.
func (s *ScheduleService) Reconcile(ctx context.Context, phone string) error {
	s.locks.Lock(phone)
	defer s.locks.Unlock(phone)

	return s.reconcileLocked(ctx, phone)
}

func (s *ScheduleService) reconcileLocked(ctx context.Context, phone string) error {
	installments, err := s.InstallmentRepo.GetByPhoneOrderByMonth(ctx, phone)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	today := s.clock.Today()
	running := decimal.Zero

	for _, inst := range installments {
		if !inst.IsPaid() {
			inst.Status = s.statusFor(inst.DueDate, today)
			running = running.Add(inst.PendingAmount)
		}
		// Paid rows still record the running total of the unpaid rows
		// before them.
		inst.CumulativePending = running

		if err := s.InstallmentRepo.Update(ctx, inst); err != nil {
			return customError.WrapDatabaseError(err)
		}
	}

	return nil
}

// statusFor applies the overdue rule: an unpaid installment is overdue once
// the span from its due month through today's month (inclusive) reaches the
// configured threshold. Evaluated independently per installment.
func (s *ScheduleService) statusFor(dueDate, today time.Time) string {
	if dueDate.After(today) {
		return domain.InstallmentStatusPending
	}

	monthsElapsed := dates.MonthsBetween(dueDate, today) + 1
	if monthsElapsed >= s.config.Business.OverdueMonths {
		return domain.InstallmentStatusOverdue
	}

	return domain.InstallmentStatusPending
}

// RecordPayment applies a payment (or a manual status change) to a single
// installment, then reconciles the whole borrower. This is the only write
// path that moves an installment into paid.
func (s *ScheduleService) RecordPayment(ctx context.Context, id uuid.UUID, status, paidDateStr string, paidAmount *decimal.Decimal) error {
	inst, err := s.InstallmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapInstallmentNotFound(id.String())
		}
		return customError.WrapDatabaseError(err)
	}

	newStatus := strings.ToLower(strings.TrimSpace(status))
	switch newStatus {
	case domain.InstallmentStatusPaid, domain.InstallmentStatusPending, domain.InstallmentStatusOverdue:
	default:
		return customError.WrapInvalidStatus(status)
	}

	inst.Status = newStatus
	if newStatus == domain.InstallmentStatusPaid {
		paidDate, err := time.Parse("2006-01-02", paidDateStr)
		if err != nil {
			return customError.WrapInvalidPaidDate(paidDateStr)
		}

		inst.PaidDate = &paidDate
		if paidAmount != nil {
			inst.PaidAmount = *paidAmount
		} else {
			inst.PaidAmount = inst.AmountDue
		}
		inst.PendingAmount = decimal.Zero
	} else {
		inst.PaidDate = nil
		inst.PaidAmount = decimal.Zero
		inst.PendingAmount = inst.AmountDue
	}

	if err := s.InstallmentRepo.Update(ctx, inst); err != nil {
		return customError.WrapDatabaseError(err)
	}

	// Reconciliation failures never fail the payment; the scheduler sweep
	// self-heals on its next pass.
	if err := s.Reconcile(ctx, inst.BorrowerPhone); err != nil {
		logrus.WithError(err).WithField("phone", inst.BorrowerPhone).
			Error("post-payment reconcile failed, leaving for scheduler")
	}

	if s.reports != nil {
		s.reports.Invalidate(ctx)
	}

	return nil
}

// GetScheduleWithCumulative reconciles the borrower and returns the ordered
// schedule so cumulative pending is fresh at read time.
func (s *ScheduleService) GetScheduleWithCumulative(ctx context.Context, phone string) ([]*domain.Installment, error) {
	if err := s.Reconcile(ctx, phone); err != nil {
		return nil, err
	}

	installments, err := s.InstallmentRepo.GetByPhoneOrderByMonth(ctx, phone)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return installments, nil
}

// SweepStatuses is the portfolio-wide timer pass: re-evaluate the status of
// every not-paid installment. It does not touch cumulative pending. A
// borrower being reconciled on demand is skipped rather than waited on.
// The snapshot only selects which borrowers to visit; rows are reloaded
// under the lock so a payment landing after the snapshot is never
// overwritten.
func (s *ScheduleService) SweepStatuses(ctx context.Context) (int, error) {
	unpaid, err := s.InstallmentRepo.GetAllNotStatus(ctx, domain.InstallmentStatusPaid)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	phones := make(map[string]bool)
	for _, inst := range unpaid {
		phones[inst.BorrowerPhone] = true
	}

	today := s.clock.Today()
	updated := 0

	for phone := range phones {
		if !s.locks.TryLock(phone) {
			logrus.WithField("phone", phone).Debug("sweep skipping borrower under reconcile")
			continue
		}

		installments, err := s.InstallmentRepo.GetByPhoneOrderByMonth(ctx, phone)
		if err != nil {
			logrus.WithError(err).WithField("phone", phone).Error("sweep reload failed")
			s.locks.Unlock(phone)
			continue
		}

		for _, inst := range installments {
			if inst.IsPaid() {
				continue
			}

			newStatus := s.statusFor(inst.DueDate, today)
			if newStatus == inst.Status {
				continue
			}

			if err := s.InstallmentRepo.UpdateStatus(ctx, inst.ID, newStatus); err != nil {
				logrus.WithError(err).WithField("phone", phone).Error("sweep status update failed")
				continue
			}
			updated++
		}

		s.locks.Unlock(phone)
	}

	return updated, nil
}

// ReconcileAll runs a full reconcile for every borrower with a schedule,
// skipping borrowers busy with an on-demand pass.
func (s *ScheduleService) ReconcileAll(ctx context.Context) error {
	phones, err := s.InstallmentRepo.DistinctPhones(ctx)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	for _, phone := range phones {
		if !s.locks.TryLock(phone) {
			continue
		}

		if err := s.reconcileLocked(ctx, phone); err != nil {
			logrus.WithError(err).WithField("phone", phone).Error("full reconcile failed for borrower")
		}

		s.locks.Unlock(phone)
	}

	return nil
}
