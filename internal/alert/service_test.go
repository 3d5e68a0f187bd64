package alert_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frahmantamala/association-treasury/internal/alert"
	"github.com/frahmantamala/association-treasury/internal/loan"
	"github.com/frahmantamala/association-treasury/internal/request"
	"github.com/frahmantamala/association-treasury/internal/treasury"
)

type stubBalance struct{ snapshot *treasury.BalanceSnapshot }

func (s *stubBalance) AvailableBalance(associationID int64) (*treasury.BalanceSnapshot, error) {
	return s.snapshot, nil
}

type stubThresholds struct{ threshold int64 }

func (s *stubThresholds) LowBalanceThreshold(associationID int64) (int64, error) {
	return s.threshold, nil
}

type stubRepayments struct{ overdue []*loan.Repayment }

func (s *stubRepayments) OverdueRepayments(associationID int64) ([]*loan.Repayment, error) {
	return s.overdue, nil
}

type stubOpenRequests struct{ open []*request.ExpenseRequest }

func (s *stubOpenRequests) GetOpenByAssociation(associationID int64) ([]*request.ExpenseRequest, error) {
	return s.open, nil
}

func TestGetAlerts(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	service := alert.NewService(
		&stubBalance{snapshot: &treasury.BalanceSnapshot{AssociationID: 1, AvailableBalance: 30000}},
		&stubThresholds{threshold: 50000},
		&stubRepayments{overdue: []*loan.Repayment{{ID: 1, DaysLate: 4}}},
		&stubOpenRequests{},
		logger,
	)

	alerts, err := service.GetAlerts(1)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, alert.TypeLowBalance, alerts[0].Type)
	assert.Equal(t, alert.TypeLateRepayments, alerts[1].Type)
}

func TestGetAlertsHealthy(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	service := alert.NewService(
		&stubBalance{snapshot: &treasury.BalanceSnapshot{AssociationID: 1, AvailableBalance: 500000}},
		&stubThresholds{threshold: 50000},
		&stubRepayments{},
		&stubOpenRequests{},
		logger,
	)

	alerts, err := service.GetAlerts(1)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
