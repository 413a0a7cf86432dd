package service

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	credmodels "cpdtrack/internal/credential/models"
	"cpdtrack/internal/progress/models"
	recmodels "cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/platform/sentinel"
	"cpdtrack/pkg/requestcontext"
)

// hoursTally accumulates completed hours along the three required dimensions.
type hoursTally struct {
	total      float64
	ethics     float64
	structured float64
}

func (t *hoursTally) add(r *recmodels.CpdRecord, hours float64) {
	t.total += hours
	if r.IsEthics() {
		t.ethics += hours
	}
	if r.ActivityType.CountsAsStructured() {
		t.structured += hours
	}
}

// ComputeProgress aggregates the figures for one held credential as of now.
//
// Basis: when the user holds a single credential every completed record
// counts in full; with multiple holdings only the hours explicitly allocated
// to this one count. Users who never split hours across credentials get
// sensible numbers without ever touching the ledger.
func (s *Service) ComputeProgress(ctx context.Context, userID id.UserID, ucID id.UserCredentialID) (*models.Progress, error) {
	ctx, span := s.tracer.Start(ctx, "progress.compute")
	defer span.End()

	if ucID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user_credential_id is required")
	}

	holding, err := s.holdings.FindByID(ctx, ucID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user credential")
	}
	if holding.UserID != userID {
		return nil, dErrors.New(dErrors.CodeNotFound, "user credential not found")
	}

	now := requestcontext.Now(ctx)

	// Rule resolution and hour collection are independent reads.
	var (
		pack  *credmodels.RulePack
		tally hoursTally
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resolved, err := s.resolver.Resolve(gctx, holding.CredentialID, now)
		if err != nil {
			return err
		}
		pack = resolved
		return nil
	})
	g.Go(func() error {
		collected, err := s.collectHours(gctx, userID, holding)
		if err != nil {
			return err
		}
		tally = collected
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Onboarding hours are self-reported prior activity. They count toward
	// the total requirement only; there is no evidence of their category or
	// delivery.
	tally.total += holding.OnboardingHours

	required := pack.Rules
	progress := &models.Progress{
		TotalHoursCompleted:      tally.total,
		EthicsHoursCompleted:     tally.ethics,
		StructuredHoursCompleted: tally.structured,
		HoursRequired:            required.TotalHours,
		EthicsRequired:           required.EthicsHours,
		StructuredRequired:       required.StructuredHours,
		ProgressPercent:          percent(tally.total, required.TotalHours),
		TotalGap:                 gap(required.TotalHours, tally.total),
		EthicsGap:                gap(required.EthicsHours, tally.ethics),
		StructuredGap:            gap(required.StructuredHours, tally.structured),
		DaysUntilDeadline:        daysUntil(holding.RenewalDeadline, now),
	}

	s.logger.DebugContext(ctx, "progress computed",
		"user_credential_id", ucID,
		"percent", progress.ProgressPercent,
		"total_gap", progress.TotalGap,
	)
	return progress, nil
}

func (s *Service) collectHours(ctx context.Context, userID id.UserID, holding *credmodels.UserCredential) (hoursTally, error) {
	var tally hoursTally

	count, err := s.holdings.CountByUser(ctx, userID)
	if err != nil {
		return tally, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count holdings")
	}

	if count <= 1 {
		records, err := s.records.ListCompletedByUser(ctx, userID)
		if err != nil {
			return tally, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list completed records")
		}
		for _, r := range records {
			tally.add(r, r.Hours)
		}
		return tally, nil
	}

	allocations, err := s.allocations.ListByCredential(ctx, holding.ID)
	if err != nil {
		return tally, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list allocations")
	}
	if len(allocations) == 0 {
		return tally, nil
	}

	recordIDs := make([]id.RecordID, len(allocations))
	hoursByRecord := make(map[id.RecordID]float64, len(allocations))
	for i, a := range allocations {
		recordIDs[i] = a.RecordID
		hoursByRecord[a.RecordID] = a.Hours
	}
	records, err := s.records.ListByIDs(ctx, recordIDs)
	if err != nil {
		return tally, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load allocated records")
	}
	for _, r := range records {
		if r.Status != recmodels.StatusCompleted {
			continue
		}
		tally.add(r, hoursByRecord[r.ID])
	}
	return tally, nil
}

// percent computes min(100, round(100 * completed / required)). A zero
// requirement reads as zero progress, never as done.
func percent(completed, required float64) int {
	if required <= 0 {
		return 0
	}
	p := int(math.Round(100 * completed / required))
	if p > 100 {
		return 100
	}
	return p
}

// gap is the positive shortfall, clamped at zero for surpluses.
func gap(required, completed float64) float64 {
	if g := required - completed; g > 0 {
		return g
	}
	return 0
}

// daysUntil is ceil(deadline - now) in days, nil when no deadline is set.
// Negative values are meaningful: the deadline has passed.
func daysUntil(deadline *time.Time, now time.Time) *int {
	if deadline == nil {
		return nil
	}
	days := int(math.Ceil(deadline.Sub(now).Hours() / 24))
	return &days
}
