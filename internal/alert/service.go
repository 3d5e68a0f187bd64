package alert

import (
	"log/slog"

	"github.com/frahmantamala/association-treasury/internal/loan"
	"github.com/frahmantamala/association-treasury/internal/request"
	"github.com/frahmantamala/association-treasury/internal/treasury"
)

type BalanceAPI interface {
	AvailableBalance(associationID int64) (*treasury.BalanceSnapshot, error)
}

type ThresholdAPI interface {
	LowBalanceThreshold(associationID int64) (int64, error)
}

type RepaymentAPI interface {
	OverdueRepayments(associationID int64) ([]*loan.Repayment, error)
}

type OpenRequestsAPI interface {
	GetOpenByAssociation(associationID int64) ([]*request.ExpenseRequest, error)
}

// Service gathers the inputs and delegates to the pure Derive.
type Service struct {
	balance    BalanceAPI
	thresholds ThresholdAPI
	repayments RepaymentAPI
	requests   OpenRequestsAPI
	logger     *slog.Logger
}

func NewService(balance BalanceAPI, thresholds ThresholdAPI, repayments RepaymentAPI, requests OpenRequestsAPI, logger *slog.Logger) *Service {
	return &Service{
		balance:    balance,
		thresholds: thresholds,
		repayments: repayments,
		requests:   requests,
		logger:     logger,
	}
}

func (s *Service) GetAlerts(associationID int64) ([]Alert, error) {
	snapshot, err := s.balance.AvailableBalance(associationID)
	if err != nil {
		s.logger.Error("failed to compute balance for alerts", "error", err, "association_id", associationID)
		return nil, err
	}

	threshold, err := s.thresholds.LowBalanceThreshold(associationID)
	if err != nil {
		return nil, err
	}

	overdue, err := s.repayments.OverdueRepayments(associationID)
	if err != nil {
		return nil, err
	}

	open, err := s.requests.GetOpenByAssociation(associationID)
	if err != nil {
		return nil, err
	}

	alerts := Derive(snapshot, threshold, overdue, open)
	if len(alerts) > 0 {
		s.logger.Info("financial alerts derived",
			"association_id", associationID,
			"count", len(alerts))
	}
	return alerts, nil
}
