package treasury

import (
	"log/slog"
	"time"
)

// Service is the balance engine: every spending decision gates on it.
type Service struct {
	reader LedgerReader
	logger *slog.Logger
}

func NewService(reader LedgerReader, logger *slog.Logger) *Service {
	return &Service{
		reader: reader,
		logger: logger,
	}
}

// AvailableBalance computes
// totalIncome - totalExpensesPaid - outstandingLoanPrincipal
// from a single consistent read.
func (s *Service) AvailableBalance(associationID int64) (*BalanceSnapshot, error) {
	inputs, err := s.reader.Snapshot(associationID)
	if err != nil {
		s.logger.Error("failed to read balance inputs", "error", err, "association_id", associationID)
		return nil, err
	}

	snapshot := &BalanceSnapshot{
		AssociationID:            associationID,
		TotalIncome:              inputs.TotalIncome,
		TotalExpensesPaid:        inputs.TotalExpensesPaid,
		OutstandingLoanPrincipal: inputs.OutstandingLoanPrincipal,
		AvailableBalance:         inputs.TotalIncome - inputs.TotalExpensesPaid - inputs.OutstandingLoanPrincipal,
		ComputedAt:               time.Now(),
	}

	return snapshot, nil
}

// CheckSufficientFunds reports whether the association can commit amount
// right now, with the shortage when it cannot.
func (s *Service) CheckSufficientFunds(associationID, amount int64) (*FundsCheck, error) {
	snapshot, err := s.AvailableBalance(associationID)
	if err != nil {
		return nil, err
	}

	check := &FundsCheck{
		Sufficient:       amount <= snapshot.AvailableBalance,
		AvailableBalance: snapshot.AvailableBalance,
	}
	if !check.Sufficient {
		check.Shortage = amount - snapshot.AvailableBalance
	}

	if !check.Sufficient {
		s.logger.Warn("insufficient funds",
			"association_id", associationID,
			"amount", amount,
			"available_balance", check.AvailableBalance,
			"shortage", check.Shortage)
	}

	return check, nil
}

// FinancialSummary reports balance, pending commitments, projection and a
// per-type expense breakdown over the given window.
func (s *Service) FinancialSummary(associationID int64, window string) (*FinancialSummary, error) {
	now := time.Now()
	since, err := WindowStart(window, now)
	if err != nil {
		return nil, err
	}
	if window == "" {
		window = WindowAll
	}

	snapshot, err := s.AvailableBalance(associationID)
	if err != nil {
		return nil, err
	}

	pending, err := s.reader.PendingExpenseTotal(associationID)
	if err != nil {
		s.logger.Error("failed to read pending expense total", "error", err, "association_id", associationID)
		return nil, err
	}

	upcoming, err := s.reader.UpcomingRepaymentTotal(associationID)
	if err != nil {
		s.logger.Error("failed to read upcoming repayment total", "error", err, "association_id", associationID)
		return nil, err
	}

	windowIncome, err := s.reader.IncomeSince(associationID, since)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.reader.ExpenseBreakdown(associationID, since)
	if err != nil {
		s.logger.Error("failed to read expense breakdown", "error", err, "association_id", associationID)
		return nil, err
	}

	var windowExpenses int64
	for _, amount := range breakdown {
		windowExpenses += amount
	}

	return &FinancialSummary{
		AssociationID:      associationID,
		Window:             window,
		AvailableBalance:   snapshot.AvailableBalance,
		TotalIncome:        windowIncome,
		TotalExpensesPaid:  windowExpenses,
		PendingExpenses:    pending,
		UpcomingRepayments: upcoming,
		ProjectedBalance:   snapshot.AvailableBalance - pending + upcoming,
		ExpenseBreakdown:   breakdown,
		ComputedAt:         now,
	}, nil
}
