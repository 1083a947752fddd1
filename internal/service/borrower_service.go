package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ssdev/emi-engine/internal/domain"
	"github.com/ssdev/emi-engine/internal/repository"
	"github.com/ssdev/emi-engine/pkg/dates"
	"github.com/ssdev/emi-engine/pkg/emi"
	customError "github.com/ssdev/emi-engine/pkg/errors"
)

// BorrowerService handles borrower CRUD and kicks off schedule generation.
type BorrowerService struct {
	BorrowerRepo    repository.BorrowerRepository
	InstallmentRepo repository.InstallmentRepository
	schedules       *ScheduleService
	reports         ReportInvalidator
}

func NewBorrowerService(
	borrowerRepo repository.BorrowerRepository,
	installmentRepo repository.InstallmentRepository,
	schedules *ScheduleService,
	reports ReportInvalidator,
) *BorrowerService {
	return &BorrowerService{
		BorrowerRepo:    borrowerRepo,
		InstallmentRepo: installmentRepo,
		schedules:       schedules,
		reports:         reports,
	}
}

// CreateBorrower validates the request, computes the EMI server-side and
// persists the borrower. Schedule generation runs in the background; the
// schedule is eventually consistent with the borrower record.
func (s *BorrowerService) CreateBorrower(ctx context.Context, request *domain.CreateBorrowerRequest) (*domain.Borrower, error) {
	existing, err := s.BorrowerRepo.GetByPhone(ctx, request.Phone)
	if err == nil && existing != nil {
		return nil, customError.WrapBorrowerAlreadyExists(request.Phone)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	startDate, err := time.Parse("2006-01-02", request.StartDate)
	if err != nil {
		return nil, customError.WrapInvalidStartDate(request.StartDate)
	}

	monthlyEMI := emi.Calculate(request.Principal, request.InterestRate, request.TenureMonths)
	now := time.Now()

	borrower := &domain.Borrower{
		ID:           uuid.New(),
		Name:         request.Name,
		Place:        request.Place,
		ReferredBy:   request.ReferredBy,
		Job:          request.Job,
		Phone:        request.Phone,
		Principal:    request.Principal,
		InterestRate: request.InterestRate,
		TenureMonths: request.TenureMonths,
		MonthlyEMI:   monthlyEMI,
		TotalPayable: emi.TotalPayable(monthlyEMI, request.TenureMonths),
		StartDate:    startDate,
		EndDate:      dates.AddMonths(startDate, request.TenureMonths-1),
		Status:       domain.BorrowerStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.BorrowerRepo.Create(ctx, borrower); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	// Detached from the request context: the caller gets success as soon as
	// the borrower row is durable. A failed generation is repairable by
	// rerunning (the upsert fills only missing months).
	go func(b domain.Borrower) {
		genCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := s.schedules.GenerateSchedule(genCtx, &b); err != nil {
			logrus.WithError(err).WithField("phone", b.Phone).
				Error("background schedule generation failed")
		}
	}(*borrower)

	return borrower, nil
}

// UpdateBorrower rewrites a borrower's details and recomputes the EMI and
// total payable. Existing installments keep the amounts they were generated
// with.
func (s *BorrowerService) UpdateBorrower(ctx context.Context, phone string, request *domain.UpdateBorrowerRequest) (*domain.Borrower, error) {
	borrower, err := s.BorrowerRepo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapBorrowerNotFound(phone)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	startDate, err := time.Parse("2006-01-02", request.StartDate)
	if err != nil {
		return nil, customError.WrapInvalidStartDate(request.StartDate)
	}

	monthlyEMI := emi.Calculate(request.Principal, request.InterestRate, request.TenureMonths)

	borrower.Name = request.Name
	borrower.Place = request.Place
	borrower.ReferredBy = request.ReferredBy
	borrower.Job = request.Job
	borrower.Principal = request.Principal
	borrower.InterestRate = request.InterestRate
	borrower.TenureMonths = request.TenureMonths
	borrower.MonthlyEMI = monthlyEMI
	borrower.TotalPayable = emi.TotalPayable(monthlyEMI, request.TenureMonths)
	borrower.StartDate = startDate
	borrower.EndDate = dates.AddMonths(startDate, request.TenureMonths-1)

	if err := s.BorrowerRepo.Update(ctx, borrower); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	logrus.WithField("phone", phone).Info("borrower updated")
	return borrower, nil
}

// DeleteBorrower removes a borrower and cascades to their schedule.
func (s *BorrowerService) DeleteBorrower(ctx context.Context, phone string) error {
	if _, err := s.BorrowerRepo.GetByPhone(ctx, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapBorrowerNotFound(phone)
		}
		return customError.WrapDatabaseError(err)
	}

	// Installments first, then the borrower row.
	if err := s.InstallmentRepo.DeleteByPhone(ctx, phone); err != nil {
		return customError.WrapDatabaseError(err)
	}
	if err := s.BorrowerRepo.DeleteByPhone(ctx, phone); err != nil {
		return customError.WrapDatabaseError(err)
	}

	if s.reports != nil {
		s.reports.Invalidate(ctx)
	}

	logrus.WithField("phone", phone).Info("borrower and schedule deleted")
	return nil
}

// GetBorrower retrieves one borrower by phone.
func (s *BorrowerService) GetBorrower(ctx context.Context, phone string) (*domain.Borrower, error) {
	borrower, err := s.BorrowerRepo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapBorrowerNotFound(phone)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return borrower, nil
}

// ListBorrowers returns every borrower.
func (s *BorrowerService) ListBorrowers(ctx context.Context) ([]*domain.Borrower, error) {
	borrowers, err := s.BorrowerRepo.GetAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return borrowers, nil
}

// DashboardStats returns the headline totals, optionally restricted to
// installments due in [start, end].
func (s *BorrowerService) DashboardStats(ctx context.Context, start, end *time.Time) (*domain.DashboardStats, error) {
	var (
		total int64
		err   error
	)

	if start != nil && end != nil {
		total, err = s.BorrowerRepo.CountWithInstallmentsDueBetween(ctx, *start, *end)
	} else {
		total, err = s.BorrowerRepo.Count(ctx)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	collected, err := s.InstallmentRepo.SumPaid(ctx, start, end)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	pending, err := s.InstallmentRepo.SumPending(ctx, start, end)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.DashboardStats{
		TotalBorrowers: total,
		TotalCollected: collected,
		TotalPending:   pending,
	}, nil
}
