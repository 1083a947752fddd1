package emi

import "github.com/shopspring/decimal"

// Calculate returns the fixed monthly installment for a loan using the
// annuity formula: P * r * (1+r)^n / ((1+r)^n - 1), where r is the monthly
// rate derived from the annual percentage rate. A zero rate degenerates to
// straight division. Rounded to 2 decimal places.
func Calculate(principal, annualRatePercent decimal.Decimal, tenureMonths int) decimal.Decimal {
	n := decimal.NewFromInt(int64(tenureMonths))

	if annualRatePercent.IsZero() {
		return principal.Div(n).Round(2)
	}

	// monthly rate = annual% / (12 * 100)
	monthlyRate := annualRatePercent.Div(decimal.NewFromInt(1200))
	compound := monthlyRate.Add(decimal.NewFromInt(1)).Pow(n)

	numerator := principal.Mul(monthlyRate).Mul(compound)
	denominator := compound.Sub(decimal.NewFromInt(1))

	return numerator.Div(denominator).Round(2)
}

// TotalPayable is the monthly installment times the tenure, rounded to 2
// decimal places.
func TotalPayable(monthlyEMI decimal.Decimal, tenureMonths int) decimal.Decimal {
	return monthlyEMI.Mul(decimal.NewFromInt(int64(tenureMonths))).Round(2)
}
