package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Period
		wantErr  bool
	}{
		{name: "calendar month", input: "march", expected: PeriodMarch},
		{name: "uppercase", input: "MARCH", expected: PeriodMarch},
		{name: "surrounding whitespace", input: "  june ", expected: PeriodJune},
		{name: "rolling three", input: "last_3_months", expected: PeriodLast3},
		{name: "rolling six", input: "last_6_months", expected: PeriodLast6},
		{name: "all time", input: "all", expected: PeriodAll},
		{name: "unknown", input: "quarterly", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPeriodMonth(t *testing.T) {
	m, ok := PeriodFebruary.Month()
	require.True(t, ok)
	assert.Equal(t, time.February, m)

	_, ok = PeriodLast3.Month()
	assert.False(t, ok)

	_, ok = PeriodAll.Month()
	assert.False(t, ok)
}

func TestPeriodRollingMonths(t *testing.T) {
	assert.Equal(t, 3, PeriodLast3.RollingMonths())
	assert.Equal(t, 6, PeriodLast6.RollingMonths())
	assert.Equal(t, 0, PeriodAll.RollingMonths())
	assert.Equal(t, 0, PeriodMarch.RollingMonths())
}
