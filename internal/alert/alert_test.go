package alert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frahmantamala/association-treasury/internal/alert"
	"github.com/frahmantamala/association-treasury/internal/loan"
	"github.com/frahmantamala/association-treasury/internal/request"
	"github.com/frahmantamala/association-treasury/internal/treasury"
)

func snapshot(balance int64) *treasury.BalanceSnapshot {
	return &treasury.BalanceSnapshot{
		AssociationID:    1,
		AvailableBalance: balance,
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		snapshot  *treasury.BalanceSnapshot
		threshold int64
		overdue   []*loan.Repayment
		open      []*request.ExpenseRequest
		wantTypes []string
	}{
		{
			name:      "healthy association yields no alerts",
			snapshot:  snapshot(100000),
			threshold: 50000,
			wantTypes: []string{},
		},
		{
			name:      "balance below threshold is a warning",
			snapshot:  snapshot(30000),
			threshold: 50000,
			wantTypes: []string{alert.TypeLowBalance},
		},
		{
			name:      "negative balance is critical and suppresses the low warning",
			snapshot:  snapshot(-5000),
			threshold: 50000,
			wantTypes: []string{alert.TypeNegativeBalance},
		},
		{
			name:      "balance exactly at threshold is fine",
			snapshot:  snapshot(50000),
			threshold: 50000,
			wantTypes: []string{},
		},
		{
			name:      "overdue installments are flagged",
			snapshot:  snapshot(100000),
			threshold: 50000,
			overdue: []*loan.Repayment{
				{ID: 1, DaysLate: 3},
				{ID: 2, DaysLate: 12},
			},
			wantTypes: []string{alert.TypeLateRepayments},
		},
		{
			name:      "open request above the balance is flagged per request",
			snapshot:  snapshot(100000),
			threshold: 50000,
			open: []*request.ExpenseRequest{
				{ID: 7, AssociationID: 1, AmountRequested: 150000},
				{ID: 8, AssociationID: 1, AmountRequested: 20000},
			},
			wantTypes: []string{alert.TypeLargePendingExpenses},
		},
		{
			name:      "conditions stack",
			snapshot:  snapshot(-1000),
			threshold: 50000,
			overdue:   []*loan.Repayment{{ID: 1, DaysLate: 5}},
			open:      []*request.ExpenseRequest{{ID: 9, AmountRequested: 30000}},
			wantTypes: []string{alert.TypeNegativeBalance, alert.TypeLateRepayments, alert.TypeLargePendingExpenses},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := alert.Derive(tt.snapshot, tt.threshold, tt.overdue, tt.open)
			require.Len(t, alerts, len(tt.wantTypes))
			for i, wantType := range tt.wantTypes {
				assert.Equal(t, wantType, alerts[i].Type)
			}
		})
	}
}

func TestDeriveSeverities(t *testing.T) {
	alerts := alert.Derive(snapshot(-5000), 50000, nil, nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, int64(-5000), alerts[0].Amount)

	alerts = alert.Derive(snapshot(30000), 50000, nil, nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.SeverityWarning, alerts[0].Severity)
}

func TestDeriveLateRepaymentsMessage(t *testing.T) {
	overdue := []*loan.Repayment{
		{ID: 1, DaysLate: 3},
		{ID: 2, DaysLate: 12},
		{ID: 3, DaysLate: 7},
	}
	alerts := alert.Derive(snapshot(100000), 50000, overdue, nil)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "3 overdue")
	assert.Contains(t, alerts[0].Message, "12 day(s) late")
}

func TestDeriveLargePendingCarriesRequestID(t *testing.T) {
	open := []*request.ExpenseRequest{
		{ID: 7, AmountRequested: 150000},
	}
	alerts := alert.Derive(snapshot(100000), 50000, nil, open)
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(7), alerts[0].RequestID)
	assert.Equal(t, int64(150000), alerts[0].Amount)
	assert.Equal(t, alert.SeverityInfo, alerts[0].Severity)
}
