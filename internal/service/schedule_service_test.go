package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ssdev/emi-engine/internal/config"
	"github.com/ssdev/emi-engine/internal/domain"
	"github.com/ssdev/emi-engine/internal/mocks"
	"github.com/ssdev/emi-engine/pkg/clock"
	customError "github.com/ssdev/emi-engine/pkg/errors"
)

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			OverdueMonths:       3,
			WaitlistCount:       3,
			RecentPayersLimit:   20,
			PaidGoodPercent:     50,
			PendingGoodPercent:  50,
			WaitlistGoodPercent: 20,
			CollectionGoodPct:   80,
		},
	}
}

func fixedClock(y int, m time.Month, d int) clock.Fixed {
	return clock.Fixed{T: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func testBorrower(phone string, tenure int) *domain.Borrower {
	return &domain.Borrower{
		ID:           uuid.New(),
		Phone:        phone,
		TenureMonths: tenure,
		MonthlyEMI:   decimal.NewFromInt(1000),
		StartDate:    time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Status:       domain.BorrowerStatusActive,
	}
}

func unpaidInstallment(phone string, month int, due time.Time) *domain.Installment {
	return &domain.Installment{
		ID:            uuid.New(),
		BorrowerPhone: phone,
		MonthNumber:   month,
		AmountDue:     decimal.NewFromInt(1000),
		DueDate:       due,
		Status:        domain.InstallmentStatusPending,
		PaidAmount:    decimal.Zero,
		PendingAmount: decimal.NewFromInt(1000),
	}
}

func TestGenerateSchedule(t *testing.T) {
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2023, time.December, 15), testConfig(), nil)

	var captured []*domain.Installment
	repo.On("UpsertSchedule", mock.Anything, mock.MatchedBy(func(in []*domain.Installment) bool {
		return len(in) == 3
	})).Run(func(args mock.Arguments) {
		captured = args.Get(1).([]*domain.Installment)
	}).Return(nil)

	getCall := repo.On("GetByPhoneOrderByMonth", mock.Anything, "9876543210")
	getCall.Run(func(args mock.Arguments) {
		getCall.ReturnArguments = mock.Arguments{captured, nil}
	})
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	err := svc.GenerateSchedule(context.Background(), testBorrower("9876543210", 3))
	require.NoError(t, err)
	require.Len(t, captured, 3)

	expectedDue := []time.Time{
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	expectedCumulative := []int64{1000, 2000, 3000}

	for i, inst := range captured {
		assert.Equal(t, i+1, inst.MonthNumber)
		assert.Equal(t, expectedDue[i], inst.DueDate)
		assert.Equal(t, domain.InstallmentStatusPending, inst.Status)
		assert.True(t, decimal.NewFromInt(1000).Equal(inst.AmountDue))
		assert.True(t, decimal.NewFromInt(1000).Equal(inst.PendingAmount))
		assert.True(t, decimal.NewFromInt(expectedCumulative[i]).Equal(inst.CumulativePending),
			"month %d cumulative: expected %d, got %s", i+1, expectedCumulative[i], inst.CumulativePending)
	}

	assert.Equal(t, "Jan 2024", captured[0].MonthName)
}

func TestGenerateSchedule_ClampsDueDates(t *testing.T) {
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2024, time.January, 1), testConfig(), nil)

	borrower := testBorrower("9876543210", 3)
	borrower.StartDate = time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	var captured []*domain.Installment
	repo.On("UpsertSchedule", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).([]*domain.Installment)
	}).Return(nil)

	getCall := repo.On("GetByPhoneOrderByMonth", mock.Anything, "9876543210")
	getCall.Run(func(args mock.Arguments) {
		getCall.ReturnArguments = mock.Arguments{captured, nil}
	})
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	err := svc.GenerateSchedule(context.Background(), borrower)
	require.NoError(t, err)
	require.Len(t, captured, 3)

	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), captured[0].DueDate)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), captured[1].DueDate)
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), captured[2].DueDate)
}

func TestReconcile_OverdueThreshold(t *testing.T) {
	// today = 2024-04-05: Jan 1 spans 4 months inclusive (overdue),
	// Mar 1 spans 2 (pending), Apr 1 spans 1 (pending), May 1 is future.
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2024, time.April, 5), testConfig(), nil)

	installments := []*domain.Installment{
		unpaidInstallment("111", 1, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)),
		unpaidInstallment("111", 2, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)),
		unpaidInstallment("111", 3, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)),
		unpaidInstallment("111", 4, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)),
	}

	repo.On("GetByPhoneOrderByMonth", mock.Anything, "111").Return(installments, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.Reconcile(context.Background(), "111"))

	assert.Equal(t, domain.InstallmentStatusOverdue, installments[0].Status)
	assert.Equal(t, domain.InstallmentStatusPending, installments[1].Status)
	assert.Equal(t, domain.InstallmentStatusPending, installments[2].Status)
	assert.Equal(t, domain.InstallmentStatusPending, installments[3].Status)
}

func TestReconcile_PaymentRevertsCumulative(t *testing.T) {
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2024, time.January, 15), testConfig(), nil)

	paid := unpaidInstallment("222", 1, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	paid.Status = domain.InstallmentStatusPaid
	paid.PaidAmount = decimal.NewFromInt(1000)
	paid.PendingAmount = decimal.Zero

	installments := []*domain.Installment{
		paid,
		unpaidInstallment("222", 2, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)),
		unpaidInstallment("222", 3, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)),
	}

	repo.On("GetByPhoneOrderByMonth", mock.Anything, "222").Return(installments, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.Reconcile(context.Background(), "222"))

	assert.True(t, decimal.Zero.Equal(installments[0].CumulativePending))
	assert.True(t, decimal.NewFromInt(1000).Equal(installments[1].CumulativePending))
	assert.True(t, decimal.NewFromInt(2000).Equal(installments[2].CumulativePending))
}

func TestReconcile_PaidIsTerminal(t *testing.T) {
	// A paid installment long past its due date must never be reopened.
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2024, time.December, 1), testConfig(), nil)

	paid := unpaidInstallment("333", 1, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	paid.Status = domain.InstallmentStatusPaid
	paid.PendingAmount = decimal.Zero

	repo.On("GetByPhoneOrderByMonth", mock.Anything, "333").Return([]*domain.Installment{paid}, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.Reconcile(context.Background(), "333"))
	assert.Equal(t, domain.InstallmentStatusPaid, paid.Status)
}

func TestReconcile_Idempotent(t *testing.T) {
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2024, time.April, 5), testConfig(), nil)

	installments := []*domain.Installment{
		unpaidInstallment("444", 1, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)),
		unpaidInstallment("444", 2, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)),
		unpaidInstallment("444", 3, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)),
	}

	repo.On("GetByPhoneOrderByMonth", mock.Anything, "444").Return(installments, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.Reconcile(context.Background(), "444"))

	type snapshot struct {
		status     string
		cumulative string
	}
	first := make([]snapshot, len(installments))
	for i, inst := range installments {
		first[i] = snapshot{inst.Status, inst.CumulativePending.String()}
	}

	require.NoError(t, svc.Reconcile(context.Background(), "444"))

	for i, inst := range installments {
		assert.Equal(t, first[i].status, inst.Status)
		assert.Equal(t, first[i].cumulative, inst.CumulativePending.String())
	}
}

func TestRecordPayment(t *testing.T) {
	phone := "5551234567"
	due := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		status        string
		paidDate      string
		paidAmount    *decimal.Decimal
		setupMocks    func(*mocks.MockInstallmentRepository, *domain.Installment)
		expectedError string
		validate      func(*testing.T, *domain.Installment)
	}{
		{
			name:     "Success - mark paid with default amount",
			status:   "paid",
			paidDate: "2024-01-05",
			setupMocks: func(repo *mocks.MockInstallmentRepository, inst *domain.Installment) {
				repo.On("GetByID", mock.Anything, inst.ID).Return(inst, nil)
				repo.On("Update", mock.Anything, mock.Anything).Return(nil)
				repo.On("GetByPhoneOrderByMonth", mock.Anything, phone).Return([]*domain.Installment{inst}, nil)
			},
			validate: func(t *testing.T, inst *domain.Installment) {
				assert.Equal(t, domain.InstallmentStatusPaid, inst.Status)
				require.NotNil(t, inst.PaidDate)
				assert.Equal(t, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), *inst.PaidDate)
				assert.True(t, inst.AmountDue.Equal(inst.PaidAmount))
				assert.True(t, inst.PendingAmount.IsZero())
			},
		},
		{
			name:     "Success - explicit paid amount",
			status:   "paid",
			paidDate: "2024-01-05",
			paidAmount: func() *decimal.Decimal {
				d := decimal.NewFromInt(900)
				return &d
			}(),
			setupMocks: func(repo *mocks.MockInstallmentRepository, inst *domain.Installment) {
				repo.On("GetByID", mock.Anything, inst.ID).Return(inst, nil)
				repo.On("Update", mock.Anything, mock.Anything).Return(nil)
				repo.On("GetByPhoneOrderByMonth", mock.Anything, phone).Return([]*domain.Installment{inst}, nil)
			},
			validate: func(t *testing.T, inst *domain.Installment) {
				assert.True(t, decimal.NewFromInt(900).Equal(inst.PaidAmount))
			},
		},
		{
			name:   "Success - revert to pending clears payment",
			status: "pending",
			setupMocks: func(repo *mocks.MockInstallmentRepository, inst *domain.Installment) {
				paidDate := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
				inst.Status = domain.InstallmentStatusPaid
				inst.PaidDate = &paidDate
				inst.PaidAmount = decimal.NewFromInt(1000)
				inst.PendingAmount = decimal.Zero

				repo.On("GetByID", mock.Anything, inst.ID).Return(inst, nil)
				repo.On("Update", mock.Anything, mock.Anything).Return(nil)
				repo.On("GetByPhoneOrderByMonth", mock.Anything, phone).Return([]*domain.Installment{inst}, nil)
			},
			validate: func(t *testing.T, inst *domain.Installment) {
				assert.Nil(t, inst.PaidDate)
				assert.True(t, inst.PaidAmount.IsZero())
				assert.True(t, inst.AmountDue.Equal(inst.PendingAmount))
			},
		},
		{
			name:     "Failure - paid without parseable date",
			status:   "paid",
			paidDate: "",
			setupMocks: func(repo *mocks.MockInstallmentRepository, inst *domain.Installment) {
				repo.On("GetByID", mock.Anything, inst.ID).Return(inst, nil)
			},
			expectedError: customError.ErrCodeInvalidPaidDate,
		},
		{
			name:   "Failure - unknown status",
			status: "cancelled",
			setupMocks: func(repo *mocks.MockInstallmentRepository, inst *domain.Installment) {
				repo.On("GetByID", mock.Anything, inst.ID).Return(inst, nil)
			},
			expectedError: customError.ErrCodeInvalidStatus,
		},
		{
			name:   "Failure - installment not found",
			status: "paid",
			setupMocks: func(repo *mocks.MockInstallmentRepository, inst *domain.Installment) {
				repo.On("GetByID", mock.Anything, inst.ID).Return(nil, sql.ErrNoRows)
			},
			expectedError: customError.ErrCodeInstallmentNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockInstallmentRepository)
			svc := NewScheduleService(repo, fixedClock(2024, time.January, 15), testConfig(), nil)

			inst := unpaidInstallment(phone, 1, due)
			tt.setupMocks(repo, inst)

			err := svc.RecordPayment(context.Background(), inst.ID, tt.status, tt.paidDate, tt.paidAmount)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, inst)
			}
		})
	}
}

func TestRecordPayment_ReconcileFailureDoesNotFailPayment(t *testing.T) {
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2024, time.January, 15), testConfig(), nil)

	inst := unpaidInstallment("666", 1, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	repo.On("GetByID", mock.Anything, inst.ID).Return(inst, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)
	repo.On("GetByPhoneOrderByMonth", mock.Anything, "666").Return(nil, sql.ErrConnDone)

	err := svc.RecordPayment(context.Background(), inst.ID, "paid", "2024-01-10", nil)
	assert.NoError(t, err)
}

func TestSweepStatuses(t *testing.T) {
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2024, time.June, 15), testConfig(), nil)

	stale := unpaidInstallment("777", 1, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	fresh := unpaidInstallment("777", 2, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	otherBorrower := unpaidInstallment("888", 1, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))

	repo.On("GetAllNotStatus", mock.Anything, domain.InstallmentStatusPaid).
		Return([]*domain.Installment{stale, fresh, otherBorrower}, nil)
	repo.On("GetByPhoneOrderByMonth", mock.Anything, "777").
		Return([]*domain.Installment{stale, fresh}, nil)
	repo.On("GetByPhoneOrderByMonth", mock.Anything, "888").
		Return([]*domain.Installment{otherBorrower}, nil)
	repo.On("UpdateStatus", mock.Anything, stale.ID, domain.InstallmentStatusOverdue).Return(nil)
	repo.On("UpdateStatus", mock.Anything, otherBorrower.ID, domain.InstallmentStatusOverdue).Return(nil)

	updated, err := svc.SweepStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	// June's installment is only 1 month in: no status write expected.
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, fresh.ID, mock.Anything)
}

func TestSweepStatuses_PaymentAfterSnapshotStaysPaid(t *testing.T) {
	// A payment can land between the portfolio snapshot and the sweep
	// reaching that borrower. The reload under the lock must see the paid
	// row and leave it alone.
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2024, time.June, 15), testConfig(), nil)

	snapshot := unpaidInstallment("999", 1, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))

	nowPaid := unpaidInstallment("999", 1, snapshot.DueDate)
	nowPaid.ID = snapshot.ID
	nowPaid.Status = domain.InstallmentStatusPaid
	paidDate := time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)
	nowPaid.PaidDate = &paidDate
	nowPaid.PaidAmount = nowPaid.AmountDue
	nowPaid.PendingAmount = decimal.Zero

	repo.On("GetAllNotStatus", mock.Anything, domain.InstallmentStatusPaid).
		Return([]*domain.Installment{snapshot}, nil)
	repo.On("GetByPhoneOrderByMonth", mock.Anything, "999").
		Return([]*domain.Installment{nowPaid}, nil)

	updated, err := svc.SweepStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepStatuses_SkipsLockedBorrower(t *testing.T) {
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2024, time.June, 15), testConfig(), nil)

	busy := unpaidInstallment("777", 1, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	idle := unpaidInstallment("888", 1, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))

	repo.On("GetAllNotStatus", mock.Anything, domain.InstallmentStatusPaid).
		Return([]*domain.Installment{busy, idle}, nil)
	repo.On("GetByPhoneOrderByMonth", mock.Anything, "888").
		Return([]*domain.Installment{idle}, nil)
	repo.On("UpdateStatus", mock.Anything, idle.ID, domain.InstallmentStatusOverdue).Return(nil)

	// Borrower 777 is mid-reconcile; the sweep must move on without touching
	// their rows.
	svc.locks.Lock("777")
	defer svc.locks.Unlock("777")

	updated, err := svc.SweepStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	repo.AssertNotCalled(t, "GetByPhoneOrderByMonth", mock.Anything, "777")
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, busy.ID, mock.Anything)
}

func TestReconcileAll(t *testing.T) {
	repo := new(mocks.MockInstallmentRepository)
	svc := NewScheduleService(repo, fixedClock(2024, time.April, 5), testConfig(), nil)

	a := unpaidInstallment("101", 1, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	b := unpaidInstallment("202", 1, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))

	repo.On("DistinctPhones", mock.Anything).Return([]string{"101", "202"}, nil)
	repo.On("GetByPhoneOrderByMonth", mock.Anything, "101").Return([]*domain.Installment{a}, nil)
	repo.On("GetByPhoneOrderByMonth", mock.Anything, "202").Return([]*domain.Installment{b}, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.ReconcileAll(context.Background()))

	assert.Equal(t, domain.InstallmentStatusOverdue, a.Status)
	assert.Equal(t, domain.InstallmentStatusPending, b.Status)
}
