package association

import (
	"log/slog"
)

// Service exposes association configuration to the workflow and alerting.
// It implements request.ConfigAPI and request.RoleDirectory.
type Service struct {
	repo             RepositoryAPI
	defaultThreshold int64
	defaultCurrency  string
	logger           *slog.Logger
}

func NewService(repo RepositoryAPI, defaultThreshold int64, defaultCurrency string, logger *slog.Logger) *Service {
	return &Service{
		repo:             repo,
		defaultThreshold: defaultThreshold,
		defaultCurrency:  defaultCurrency,
		logger:           logger,
	}
}

func (s *Service) GetAssociation(id int64) (*Association, error) {
	return s.repo.GetByID(id)
}

func (s *Service) RequiredValidatorsForType(associationID int64, expenseType string) ([]string, error) {
	return s.repo.RequiredRoles(associationID, expenseType)
}

func (s *Service) MaxAmountFor(associationID int64, expenseType string, subtype *string) (*int64, error) {
	return s.repo.MaxAmount(associationID, expenseType, subtype)
}

func (s *Service) DefaultCurrency(associationID int64) (string, error) {
	assoc, err := s.repo.GetByID(associationID)
	if err != nil {
		return "", err
	}
	if assoc.Currency == "" {
		return s.defaultCurrency, nil
	}
	return assoc.Currency, nil
}

func (s *Service) LowBalanceThreshold(associationID int64) (int64, error) {
	assoc, err := s.repo.GetByID(associationID)
	if err != nil {
		return 0, err
	}
	if assoc.LowBalanceThreshold <= 0 {
		return s.defaultThreshold, nil
	}
	return assoc.LowBalanceThreshold, nil
}

func (s *Service) RoleOf(userID, associationID int64) (string, error) {
	return s.repo.RoleOf(userID, associationID)
}
