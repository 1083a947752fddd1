package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ssdev/emi-engine/internal/config"
	"github.com/ssdev/emi-engine/internal/domain"
	"github.com/ssdev/emi-engine/internal/repository"
	"github.com/ssdev/emi-engine/pkg/clock"
	"github.com/ssdev/emi-engine/pkg/dates"
	customError "github.com/ssdev/emi-engine/pkg/errors"
)

// ReportStore caches computed monthly reports.
type ReportStore interface {
	Get(ctx context.Context, period domain.Period, year int) *domain.MonthlyReport
	Set(ctx context.Context, report *domain.MonthlyReport)
}

// AnalyticsService derives borrower classifications and portfolio reports
// from installment state. It only reads; classifications are computed per
// query and never persisted.
type AnalyticsService struct {
	BorrowerRepo    repository.BorrowerRepository
	InstallmentRepo repository.InstallmentRepository
	clock           clock.Clock
	config          *config.Config
	reports         ReportStore
}

func NewAnalyticsService(
	borrowerRepo repository.BorrowerRepository,
	installmentRepo repository.InstallmentRepository,
	clk clock.Clock,
	cfg *config.Config,
	reports ReportStore,
) *AnalyticsService {
	return &AnalyticsService{
		BorrowerRepo:    borrowerRepo,
		InstallmentRepo: installmentRepo,
		clock:           clk,
		config:          cfg,
		reports:         reports,
	}
}

// filteredInstallments resolves a reporting period to its installment set.
func (s *AnalyticsService) filteredInstallments(ctx context.Context, period domain.Period, year int) ([]*domain.Installment, error) {
	if month, ok := period.Month(); ok {
		return s.InstallmentRepo.GetByMonthAndYear(ctx, int(month), year)
	}

	if n := period.RollingMonths(); n > 0 {
		return s.InstallmentRepo.GetDueOnOrAfter(ctx, dates.AddMonths(s.clock.Today(), -n))
	}

	return s.InstallmentRepo.GetAll(ctx)
}

// MonthlyReport aggregates the portfolio for one period. Results are cached
// briefly; payment recording invalidates the cache.
func (s *AnalyticsService) MonthlyReport(ctx context.Context, period domain.Period, year int) (*domain.MonthlyReport, error) {
	if s.reports != nil {
		if cached := s.reports.Get(ctx, period, year); cached != nil {
			return cached, nil
		}
	}

	filtered, err := s.filteredInstallments(ctx, period, year)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	all, err := s.InstallmentRepo.GetAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	today := s.clock.Today()

	waitlistPhones, err := s.InstallmentRepo.WaitlistPhones(ctx, today, s.config.Business.WaitlistCount)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	waitlisted := make(map[string]bool, len(waitlistPhones))
	for _, p := range waitlistPhones {
		waitlisted[p] = true
	}

	periodPhones := make(map[string]bool)
	for _, inst := range filtered {
		periodPhones[inst.BorrowerPhone] = true
	}

	paidPhones := make(map[string]bool)
	for _, inst := range filtered {
		if inst.IsPaid() {
			paidPhones[inst.BorrowerPhone] = true
		}
	}

	// Unpaid and due on/before today, keyed by phone: the "should have paid
	// by now" set.
	duePhones := make(map[string]bool)
	totalUnpaid := decimal.Zero
	for _, inst := range all {
		if inst.IsPaid() || inst.DueDate.After(today) {
			continue
		}
		duePhones[inst.BorrowerPhone] = true
		if periodPhones[inst.BorrowerPhone] {
			totalUnpaid = totalUnpaid.Add(inst.AmountDue)
		}
	}

	waitlistedInPeriod := 0
	pendingInPeriod := 0
	for phone := range periodPhones {
		if !duePhones[phone] {
			continue
		}
		// Pending and waitlisted are mutually exclusive.
		if waitlisted[phone] {
			waitlistedInPeriod++
		} else {
			pendingInPeriod++
		}
	}

	totalCollected := decimal.Zero
	totalExpected := decimal.Zero
	for _, inst := range filtered {
		totalExpected = totalExpected.Add(inst.AmountDue)
		if inst.IsPaid() {
			totalCollected = totalCollected.Add(inst.PaidAmount)
		}
	}

	totalBorrowers := len(periodPhones)

	prevCount, err := s.previousMonthBorrowers(ctx, period, year)
	if err != nil {
		return nil, err
	}

	growthPct := 100.0
	if prevCount > 0 {
		growthPct = float64(totalBorrowers-prevCount) * 100.0 / float64(prevCount)
	}

	paidPct := ratio(len(paidPhones), totalBorrowers)
	pendingPct := ratio(pendingInPeriod, totalBorrowers)
	waitlistPct := ratio(waitlistedInPeriod, totalBorrowers)

	collectionPct := 0.0
	if !totalExpected.IsZero() {
		collectionPct, _ = totalCollected.Mul(decimal.NewFromInt(100)).
			DivRound(totalExpected, 2).Float64()
	}

	biz := s.config.Business
	report := &domain.MonthlyReport{
		Period:              period,
		Year:                year,
		TotalBorrowers:      totalBorrowers,
		PaidBorrowers:       len(paidPhones),
		PendingBorrowers:    pendingInPeriod,
		WaitlistedBorrowers: waitlistedInPeriod,
		TotalCollected:      totalCollected,
		TotalExpected:       totalExpected,
		TotalUnpaid:         totalUnpaid,

		BorrowerGrowthPercentage: growthPct,
		PaidPercentage:           paidPct,
		PendingPercentage:        pendingPct,
		WaitlistPercentage:       waitlistPct,
		CollectionPercentage:     collectionPct,

		BorrowerGrowthDirection: direction(growthPct >= 0),
		PaidDirection:           direction(paidPct >= biz.PaidGoodPercent),
		PendingDirection:        direction(pendingPct < biz.PendingGoodPercent),
		WaitlistDirection:       direction(waitlistPct < biz.WaitlistGoodPercent),
		CollectionDirection:     direction(collectionPct >= biz.CollectionGoodPct),
	}

	if s.reports != nil {
		s.reports.Set(ctx, report)
	}

	return report, nil
}

// previousMonthBorrowers counts distinct borrowers in the calendar month
// immediately before the period (before today's month for rolling windows).
func (s *AnalyticsService) previousMonthBorrowers(ctx context.Context, period domain.Period, year int) (int, error) {
	var prev time.Time
	if month, ok := period.Month(); ok {
		prev = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	} else {
		// AddDate normalizes Feb 31 into March; month-end days need clamping.
		prev = dates.AddMonths(s.clock.Today(), -1)
	}

	installments, err := s.InstallmentRepo.GetByMonthAndYear(ctx, int(prev.Month()), prev.Year())
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	phones := make(map[string]bool)
	for _, inst := range installments {
		phones[inst.BorrowerPhone] = true
	}

	return len(phones), nil
}

// Classify returns all four borrower groupings for a period in one shot.
func (s *AnalyticsService) Classify(ctx context.Context, period domain.Period, year int) (*domain.Classification, error) {
	all, err := s.AllBorrowers(ctx, period, year)
	if err != nil {
		return nil, err
	}
	paid, err := s.PaidBorrowers(ctx, period, year)
	if err != nil {
		return nil, err
	}
	pending, err := s.PendingBorrowers(ctx, period, year)
	if err != nil {
		return nil, err
	}
	waitlistedSet, err := s.WaitlistedBorrowers(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.Classification{
		All:        all,
		Paid:       paid,
		Pending:    pending,
		Waitlisted: waitlistedSet,
	}, nil
}

// AllBorrowers lists every borrower with an installment in the period, with
// their period installments and their full outstanding balance.
func (s *AnalyticsService) AllBorrowers(ctx context.Context, period domain.Period, year int) ([]*domain.BorrowerSummary, error) {
	filtered, err := s.filteredInstallments(ctx, period, year)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	all, err := s.InstallmentRepo.GetAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	byPhone := groupByPhone(all)

	summaries := make([]*domain.BorrowerSummary, 0)
	for _, phone := range distinctPhones(filtered) {
		summary := s.buildSummary(ctx, phone, byPhone[phone])
		summary.Installments = selectByPhone(filtered, phone)
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// PaidBorrowers lists borrowers with at least one paid installment in the
// period; their installment list holds only those paid period installments.
func (s *AnalyticsService) PaidBorrowers(ctx context.Context, period domain.Period, year int) ([]*domain.BorrowerSummary, error) {
	filtered, err := s.filteredInstallments(ctx, period, year)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	all, err := s.InstallmentRepo.GetAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	byPhone := groupByPhone(all)

	paidOnly := make([]*domain.Installment, 0)
	for _, inst := range filtered {
		if inst.IsPaid() {
			paidOnly = append(paidOnly, inst)
		}
	}

	summaries := make([]*domain.BorrowerSummary, 0)
	for _, phone := range distinctPhones(paidOnly) {
		summary := s.buildSummary(ctx, phone, byPhone[phone])
		summary.Installments = selectByPhone(paidOnly, phone)
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// PendingBorrowers lists period borrowers with an unpaid installment due on
// or before today, excluding the waitlisted. The installment list runs up to
// and including today's calendar month.
func (s *AnalyticsService) PendingBorrowers(ctx context.Context, period domain.Period, year int) ([]*domain.BorrowerSummary, error) {
	filtered, err := s.filteredInstallments(ctx, period, year)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	all, err := s.InstallmentRepo.GetAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	byPhone := groupByPhone(all)

	today := s.clock.Today()

	waitlistPhones, err := s.InstallmentRepo.WaitlistPhones(ctx, today, s.config.Business.WaitlistCount)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	waitlisted := make(map[string]bool, len(waitlistPhones))
	for _, p := range waitlistPhones {
		waitlisted[p] = true
	}

	summaries := make([]*domain.BorrowerSummary, 0)
	for _, phone := range distinctPhones(filtered) {
		if waitlisted[phone] {
			continue
		}

		hasDue := false
		for _, inst := range byPhone[phone] {
			if !inst.IsPaid() && !inst.DueDate.After(today) {
				hasDue = true
				break
			}
		}
		if !hasDue {
			continue
		}

		upToNow := make([]*domain.Installment, 0)
		for _, inst := range byPhone[phone] {
			sameMonth := inst.DueDate.Year() == today.Year() && inst.DueDate.Month() == today.Month()
			if !inst.DueDate.After(today) || sameMonth {
				upToNow = append(upToNow, inst)
			}
		}
		sort.Slice(upToNow, func(i, j int) bool {
			return upToNow[i].MonthNumber < upToNow[j].MonthNumber
		})

		summary := s.buildSummary(ctx, phone, byPhone[phone])
		summary.Installments = upToNow
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// WaitlistedBorrowers lists borrowers with 3+ unpaid installments due on or
// before today, across their entire schedule. This grouping is
// portfolio-wide, never period-scoped.
func (s *AnalyticsService) WaitlistedBorrowers(ctx context.Context) ([]*domain.BorrowerSummary, error) {
	today := s.clock.Today()

	waitlistPhones, err := s.InstallmentRepo.WaitlistPhones(ctx, today, s.config.Business.WaitlistCount)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	all, err := s.InstallmentRepo.GetAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	byPhone := groupByPhone(all)

	summaries := make([]*domain.BorrowerSummary, 0, len(waitlistPhones))
	for _, phone := range waitlistPhones {
		summary := s.buildSummary(ctx, phone, byPhone[phone])
		summary.Installments = byPhone[phone]
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// RecentPayers returns the most recently paid borrowers: top-N paid
// installments by paid date, folded to distinct borrowers preserving
// first-seen order, each with their full schedule.
func (s *AnalyticsService) RecentPayers(ctx context.Context) ([]*domain.BorrowerSummary, error) {
	recent, err := s.InstallmentRepo.RecentPaid(ctx, s.config.Business.RecentPayersLimit)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summaries := make([]*domain.BorrowerSummary, 0)
	seen := make(map[string]bool)
	for _, inst := range recent {
		if seen[inst.BorrowerPhone] {
			continue
		}
		seen[inst.BorrowerPhone] = true

		schedule, err := s.InstallmentRepo.GetByPhoneOrderByMonth(ctx, inst.BorrowerPhone)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}

		summary := s.buildSummary(ctx, inst.BorrowerPhone, schedule)
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// buildSummary assembles one classification row. Balance is the sum of
// pending_amount over the borrower's unpaid installments across the whole
// schedule: full outstanding exposure, not period-scoped.
func (s *AnalyticsService) buildSummary(ctx context.Context, phone string, schedule []*domain.Installment) *domain.BorrowerSummary {
	borrower, err := s.BorrowerRepo.GetByPhone(ctx, phone)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logrus.WithError(err).WithField("phone", phone).Warn("borrower lookup failed for summary")
	}

	balance := decimal.Zero
	for _, inst := range schedule {
		if !inst.IsPaid() {
			balance = balance.Add(inst.PendingAmount)
		}
	}

	return &domain.BorrowerSummary{
		Borrower:     borrower,
		Installments: schedule,
		Balance:      balance,
	}
}

func groupByPhone(installments []*domain.Installment) map[string][]*domain.Installment {
	byPhone := make(map[string][]*domain.Installment)
	for _, inst := range installments {
		byPhone[inst.BorrowerPhone] = append(byPhone[inst.BorrowerPhone], inst)
	}
	for _, list := range byPhone {
		sort.Slice(list, func(i, j int) bool { return list[i].MonthNumber < list[j].MonthNumber })
	}
	return byPhone
}

func distinctPhones(installments []*domain.Installment) []string {
	seen := make(map[string]bool)
	phones := make([]string, 0)
	for _, inst := range installments {
		if !seen[inst.BorrowerPhone] {
			seen[inst.BorrowerPhone] = true
			phones = append(phones, inst.BorrowerPhone)
		}
	}
	return phones
}

func selectByPhone(installments []*domain.Installment, phone string) []*domain.Installment {
	out := make([]*domain.Installment, 0)
	for _, inst := range installments {
		if inst.BorrowerPhone == phone {
			out = append(out, inst)
		}
	}
	return out
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) * 100.0 / float64(total)
}

func direction(good bool) string {
	if good {
		return "+"
	}
	return "-"
}
