package domain

import "github.com/shopspring/decimal"

// MonthlyReport is the portfolio analytics for one reporting period.
// Direction fields are "+" or "-" against the configured thresholds; they are
// reporting heuristics, not invariants.
type MonthlyReport struct {
	Period              Period          `json:"period"`
	Year                int             `json:"year"`
	TotalBorrowers      int             `json:"total_borrowers"`
	PaidBorrowers       int             `json:"paid_borrowers"`
	PendingBorrowers    int             `json:"pending_borrowers"`
	WaitlistedBorrowers int             `json:"waitlisted_borrowers"`
	TotalCollected      decimal.Decimal `json:"total_collected"`
	TotalExpected       decimal.Decimal `json:"total_expected"`
	TotalUnpaid         decimal.Decimal `json:"total_unpaid"`

	BorrowerGrowthPercentage float64 `json:"borrower_growth_percentage"`
	PaidPercentage           float64 `json:"paid_percentage"`
	PendingPercentage        float64 `json:"pending_percentage"`
	WaitlistPercentage       float64 `json:"waitlist_percentage"`
	CollectionPercentage     float64 `json:"collection_percentage"`

	BorrowerGrowthDirection string `json:"borrower_growth_direction"`
	PaidDirection           string `json:"paid_direction"`
	PendingDirection        string `json:"pending_direction"`
	WaitlistDirection       string `json:"waitlist_direction"`
	CollectionDirection     string `json:"collection_direction"`
}

// Classification bundles the per-period borrower groupings.
type Classification struct {
	All        []*BorrowerSummary `json:"all"`
	Paid       []*BorrowerSummary `json:"paid"`
	Pending    []*BorrowerSummary `json:"pending"`
	Waitlisted []*BorrowerSummary `json:"waitlisted"`
}
