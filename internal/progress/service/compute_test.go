package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	credmodels "cpdtrack/internal/credential/models"
	credservice "cpdtrack/internal/credential/service"
	credentialStore "cpdtrack/internal/credential/store/credential"
	rulepackStore "cpdtrack/internal/credential/store/rulepack"
	usercredentialStore "cpdtrack/internal/credential/store/usercredential"
	recmodels "cpdtrack/internal/records/models"
	allocationStore "cpdtrack/internal/records/store/allocation"
	recordStore "cpdtrack/internal/records/store/record"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/testutil"
)

// =============================================================================
// Progress Computation Test Suite
// =============================================================================
// Justification for unit tests: progress combines rule resolution, the
// allocation basis switch, onboarding hours, gap clamping, and deadline
// arithmetic. These are the numbers a professional sees on their dashboard;
// each term is pinned against hand-computed figures.

type ProgressSuite struct {
	suite.Suite
	credentials *credentialStore.InMemory
	packs       *rulepackStore.InMemory
	holdings    *usercredentialStore.InMemory
	records     *recordStore.InMemory
	allocations *allocationStore.InMemory
	service     *Service
	userID      id.UserID
	now         time.Time
}

func TestProgressSuite(t *testing.T) {
	suite.Run(t, new(ProgressSuite))
}

func (s *ProgressSuite) SetupTest() {
	s.credentials = credentialStore.NewInMemory()
	s.packs = rulepackStore.NewInMemory()
	s.holdings = usercredentialStore.NewInMemory()
	s.records = recordStore.NewInMemory()
	s.allocations = allocationStore.NewInMemory()
	s.userID = id.UserID(uuid.New())
	s.now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	resolver, err := credservice.New(s.credentials, s.packs)
	s.Require().NoError(err)

	s.service, err = New(s.holdings, resolver, s.records, s.allocations)
	s.Require().NoError(err)
}

// SetupSubTest resets the stores so each s.Run block starts from the fresh
// state its hand-computed figures assume; without it, holdings created in
// earlier subtests flip the service into the multi-holding allocation basis.
func (s *ProgressSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *ProgressSuite) ctx() context.Context {
	return testutil.FrozenContext(s.now)
}

func (s *ProgressSuite) newCredential(base credmodels.Requirements) *credmodels.Credential {
	cred := &credmodels.Credential{
		ID:               id.CredentialID(uuid.New()),
		Name:             "Certified Financial Planner",
		IssuingBody:      "CFP Board",
		Region:           "US",
		Vertical:         "finance",
		BaseRequirements: base,
		CreatedAt:        s.now.AddDate(-2, 0, 0),
		UpdatedAt:        s.now.AddDate(-2, 0, 0),
	}
	s.Require().NoError(s.credentials.Create(context.Background(), cred))
	return cred
}

func (s *ProgressSuite) newHolding(credID id.CredentialID, onboarding float64, deadline *time.Time) *credmodels.UserCredential {
	uc, err := credmodels.NewUserCredential(
		id.UserCredentialID(uuid.New()), s.userID, credID, "US", s.now)
	s.Require().NoError(err)
	uc.OnboardingHours = onboarding
	uc.RenewalDeadline = deadline
	s.Require().NoError(s.holdings.Create(context.Background(), uc))
	return uc
}

func (s *ProgressSuite) addCompleted(hours float64, category string, activityType recmodels.ActivityType) *recmodels.CpdRecord {
	record, err := recmodels.NewRecord(id.RecordID(uuid.New()), s.userID,
		"Completed Activity", hours, s.now.AddDate(0, -1, 0), activityType, s.now)
	s.Require().NoError(err)
	record.Category = category
	record.Complete(s.now)
	s.Require().NoError(s.records.Create(context.Background(), record))
	return record
}

// =============================================================================
// ComputeProgress Tests
// =============================================================================

func (s *ProgressSuite) TestComputeProgress() {
	s.Run("unknown holding reads as not found", func() {
		_, err := s.service.ComputeProgress(s.ctx(), s.userID, id.UserCredentialID(uuid.New()))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("someone else's holding reads as not found", func() {
		cred := s.newCredential(credmodels.Requirements{TotalHours: 30, CycleYears: 2})
		uc := s.newHolding(cred.ID, 0, nil)

		_, err := s.service.ComputeProgress(s.ctx(), id.UserID(uuid.New()), uc.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("single holding counts full record hours plus onboarding", func() {
		// 10 onboarding + 2 ethics + 12 general against 30 required.
		cred := s.newCredential(credmodels.Requirements{TotalHours: 30, EthicsHours: 2, StructuredHours: 15, CycleYears: 2})
		uc := s.newHolding(cred.ID, 10, nil)
		s.addCompleted(2, "ethics", recmodels.ActivityStructured)
		s.addCompleted(12, "general", recmodels.ActivityUnstructured)

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, uc.ID)
		s.NoError(err)
		s.InDelta(24.0, progress.TotalHoursCompleted, 1e-9)
		s.InDelta(2.0, progress.EthicsHoursCompleted, 1e-9)
		s.InDelta(2.0, progress.StructuredHoursCompleted, 1e-9)
		s.Equal(80, progress.ProgressPercent)
		s.InDelta(6.0, progress.TotalGap, 1e-9)
		s.InDelta(0.0, progress.EthicsGap, 1e-9)
	})

	s.Run("in-progress records never count", func() {
		cred := s.newCredential(credmodels.Requirements{TotalHours: 30, CycleYears: 2})
		uc := s.newHolding(cred.ID, 0, nil)
		record, err := recmodels.NewRecord(id.RecordID(uuid.New()), s.userID,
			"Unfinished", 5, s.now, recmodels.ActivityStructured, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.records.Create(context.Background(), record))

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, uc.ID)
		s.NoError(err)
		s.InDelta(0.0, progress.TotalHoursCompleted, 1e-9)
	})

	s.Run("ethics and structured dimensions track their categories", func() {
		cred := s.newCredential(credmodels.Requirements{TotalHours: 30, EthicsHours: 2, StructuredHours: 10, CycleYears: 2})
		uc := s.newHolding(cred.ID, 0, nil)
		s.addCompleted(1, recmodels.CategoryEthics, recmodels.ActivityStructured)
		s.addCompleted(4, "technical", recmodels.ActivityVerifiable)
		s.addCompleted(3, "general", recmodels.ActivityUnstructured)

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, uc.ID)
		s.NoError(err)
		s.InDelta(8.0, progress.TotalHoursCompleted, 1e-9)
		s.InDelta(1.0, progress.EthicsHoursCompleted, 1e-9)
		s.InDelta(5.0, progress.StructuredHoursCompleted, 1e-9)
		s.InDelta(1.0, progress.EthicsGap, 1e-9)
		s.InDelta(5.0, progress.StructuredGap, 1e-9)
	})

	s.Run("surplus clamps gaps and caps percent at 100", func() {
		cred := s.newCredential(credmodels.Requirements{TotalHours: 10, EthicsHours: 1, CycleYears: 1})
		uc := s.newHolding(cred.ID, 0, nil)
		s.addCompleted(12, recmodels.CategoryEthics, recmodels.ActivityStructured)

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, uc.ID)
		s.NoError(err)
		s.Equal(100, progress.ProgressPercent)
		s.InDelta(0.0, progress.TotalGap, 1e-9)
		s.InDelta(0.0, progress.EthicsGap, 1e-9)
	})

	s.Run("zero required hours reads as zero percent", func() {
		cred := s.newCredential(credmodels.Requirements{TotalHours: 0, CycleYears: 1})
		uc := s.newHolding(cred.ID, 0, nil)
		s.addCompleted(5, "technical", recmodels.ActivityStructured)

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, uc.ID)
		s.NoError(err)
		s.Equal(0, progress.ProgressPercent)
	})

	s.Run("requirements come from the pack in force today", func() {
		cred := s.newCredential(credmodels.Requirements{TotalHours: 30, CycleYears: 2})
		pack := &credmodels.RulePack{
			ID:            id.RulePackID(uuid.New()),
			CredentialID:  cred.ID,
			Version:       1,
			Rules:         credmodels.Requirements{TotalHours: 40, EthicsHours: 4, CycleYears: 2},
			EffectiveFrom: s.now.AddDate(0, -6, 0),
			CreatedAt:     s.now.AddDate(0, -6, 0),
		}
		s.Require().NoError(s.packs.Supersede(context.Background(), pack))
		uc := s.newHolding(cred.ID, 0, nil)

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, uc.ID)
		s.NoError(err)
		s.InDelta(40.0, progress.HoursRequired, 1e-9)
		s.InDelta(4.0, progress.EthicsRequired, 1e-9)
	})
}

// =============================================================================
// Deadline Tests
// =============================================================================

func (s *ProgressSuite) TestDeadlines() {
	s.Run("no deadline yields nil days", func() {
		cred := s.newCredential(credmodels.Requirements{TotalHours: 30, CycleYears: 2})
		uc := s.newHolding(cred.ID, 0, nil)

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, uc.ID)
		s.NoError(err)
		s.Nil(progress.DaysUntilDeadline)
	})

	s.Run("future deadline counts down in whole days", func() {
		cred := s.newCredential(credmodels.Requirements{TotalHours: 30, CycleYears: 2})
		deadline := s.now.AddDate(0, 0, 30)
		uc := s.newHolding(cred.ID, 0, &deadline)

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, uc.ID)
		s.NoError(err)
		s.Require().NotNil(progress.DaysUntilDeadline)
		s.Equal(30, *progress.DaysUntilDeadline)
	})

	s.Run("passed deadline goes negative", func() {
		cred := s.newCredential(credmodels.Requirements{TotalHours: 30, CycleYears: 2})
		deadline := s.now.AddDate(0, 0, -10)
		uc := s.newHolding(cred.ID, 0, &deadline)

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, uc.ID)
		s.NoError(err)
		s.Require().NotNil(progress.DaysUntilDeadline)
		s.Negative(*progress.DaysUntilDeadline)
	})
}

// =============================================================================
// Multi-Credential Allocation Basis Tests
// =============================================================================

func (s *ProgressSuite) TestAllocationBasis() {
	s.Run("multiple holdings count only allocated hours", func() {
		credA := s.newCredential(credmodels.Requirements{TotalHours: 30, CycleYears: 2})
		credB := s.newCredential(credmodels.Requirements{TotalHours: 20, CycleYears: 1})
		ucA := s.newHolding(credA.ID, 0, nil)
		ucB := s.newHolding(credB.ID, 0, nil)

		record := s.addCompleted(3, "technical", recmodels.ActivityStructured)
		s.Require().NoError(s.allocations.ReplaceForRecord(context.Background(), record.ID, []recmodels.Allocation{
			{RecordID: record.ID, UserCredentialID: ucA.ID, Hours: 2, CreatedAt: s.now},
			{RecordID: record.ID, UserCredentialID: ucB.ID, Hours: 1, CreatedAt: s.now},
		}))

		progressA, err := s.service.ComputeProgress(s.ctx(), s.userID, ucA.ID)
		s.NoError(err)
		s.InDelta(2.0, progressA.TotalHoursCompleted, 1e-9)

		progressB, err := s.service.ComputeProgress(s.ctx(), s.userID, ucB.ID)
		s.NoError(err)
		s.InDelta(1.0, progressB.TotalHoursCompleted, 1e-9)
	})

	s.Run("unallocated records contribute nothing with multiple holdings", func() {
		credA := s.newCredential(credmodels.Requirements{TotalHours: 30, CycleYears: 2})
		credB := s.newCredential(credmodels.Requirements{TotalHours: 20, CycleYears: 1})
		ucA := s.newHolding(credA.ID, 0, nil)
		s.newHolding(credB.ID, 0, nil)

		s.addCompleted(5, "technical", recmodels.ActivityStructured)

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, ucA.ID)
		s.NoError(err)
		s.InDelta(0.0, progress.TotalHoursCompleted, 1e-9)
	})

	s.Run("allocations to incomplete records are excluded", func() {
		credA := s.newCredential(credmodels.Requirements{TotalHours: 30, CycleYears: 2})
		credB := s.newCredential(credmodels.Requirements{TotalHours: 20, CycleYears: 1})
		ucA := s.newHolding(credA.ID, 0, nil)
		s.newHolding(credB.ID, 0, nil)

		record, err := recmodels.NewRecord(id.RecordID(uuid.New()), s.userID,
			"Unfinished", 4, s.now, recmodels.ActivityStructured, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.records.Create(context.Background(), record))
		s.Require().NoError(s.allocations.ReplaceForRecord(context.Background(), record.ID, []recmodels.Allocation{
			{RecordID: record.ID, UserCredentialID: ucA.ID, Hours: 4, CreatedAt: s.now},
		}))

		progress, err := s.service.ComputeProgress(s.ctx(), s.userID, ucA.ID)
		s.NoError(err)
		s.InDelta(0.0, progress.TotalHoursCompleted, 1e-9)
	})
}
