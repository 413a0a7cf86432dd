// Package service resolves jurisdiction-specific credit values for catalog
// activities. Resolution is a pure lookup: the same activity can earn
// different credit amounts, categories, and validation methods per
// credential jurisdiction.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cpdtrack/internal/catalog/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/platform/sentinel"
)

// Store provides catalog activities and their credit mapping rows.
type Store interface {
	FindActivity(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	ListMappings(ctx context.Context, activityID id.ActivityID) ([]*models.CreditMapping, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Resolve returns every active mapping that applies to the credential's
// country and state: rows whose country equals the credential's region plus
// INTL rows, filtered by state inclusion/exclusion lists. Rows are returned
// as-is; no summation across rows is performed here since categories may
// differ.
func (s *Service) Resolve(ctx context.Context, activityID id.ActivityID, country, state string) ([]models.ResolvedCredit, error) {
	if activityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "activity_id is required")
	}
	if country == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "country is required")
	}

	if _, err := s.store.FindActivity(ctx, activityID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "activity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load activity")
	}

	mappings, err := s.store.ListMappings(ctx, activityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credit mappings")
	}

	resolved := make([]models.ResolvedCredit, 0, len(mappings))
	for _, m := range mappings {
		if !m.AppliesTo(country, state) {
			continue
		}
		resolved = append(resolved, models.ResolvedCredit{
			MappingID:        m.ID,
			Country:          m.Country,
			Credits:          m.Credits,
			Category:         m.Category,
			Structured:       m.Structured,
			ValidationMethod: m.ValidationMethod,
		})
	}
	return resolved, nil
}
