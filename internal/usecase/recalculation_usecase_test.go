package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"talent-match/internal/domain/scoring"
	"talent-match/internal/repository"

	"github.com/google/uuid"
)

var (
	testPythonID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testSQLID    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

type fakeRequirementRepo struct {
	exists    bool
	existsErr error
	reqs      []scoring.Requirement
	reqsErr   error
}

func (f fakeRequirementRepo) JobExistsByID(context.Context, uuid.UUID) (bool, error) {
	return f.exists, f.existsErr
}

func (f fakeRequirementRepo) FindByJobID(context.Context, uuid.UUID) ([]scoring.Requirement, error) {
	return f.reqs, f.reqsErr
}

type fakeScoreRepo struct {
	scores map[uuid.UUID]map[uuid.UUID]scoring.SkillScore
	err    error
}

func (f fakeScoreRepo) FindValidBySkillIDs(context.Context, []uuid.UUID, time.Time) (map[uuid.UUID]map[uuid.UUID]scoring.SkillScore, error) {
	return f.scores, f.err
}

type fakeCandidateRepo struct {
	pool []repository.CandidateSummary
	err  error
}

func (f fakeCandidateRepo) ListEligible(context.Context) ([]repository.CandidateSummary, error) {
	return f.pool, f.err
}

type fakeMatchBatch struct {
	commitErr  error
	gotUpserts []repository.MatchUpsert
	commits    int
	rollbacks  int
}

func (b *fakeMatchBatch) Commit(_ context.Context, upserts []repository.MatchUpsert) error {
	b.commits++
	if b.commitErr != nil {
		return b.commitErr
	}
	b.gotUpserts = upserts
	return nil
}

func (b *fakeMatchBatch) Rollback(context.Context) {
	b.rollbacks++
}

type fakeMatchRepo struct {
	repository.MatchRepository

	beginErr error
	batch    fakeMatchBatch
	gotJobID uuid.UUID
	begins   int
}

func (f *fakeMatchRepo) BeginRecalculation(_ context.Context, jobID uuid.UUID) (repository.MatchBatch, error) {
	f.begins++
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.gotJobID = jobID
	return &f.batch, nil
}

type fakeNotifier struct {
	jobID uuid.UUID
	res   RecalculationResult
	calls int
}

func (f *fakeNotifier) RecalculationCompleted(jobID uuid.UUID, res RecalculationResult) {
	f.jobID = jobID
	f.res = res
	f.calls++
}

func testRequirements() []scoring.Requirement {
	return []scoring.Requirement{
		{SkillID: testPythonID, SkillName: "Python", Weight: 0.6, MinimumScore: 80, Required: true},
		{SkillID: testSQLID, SkillName: "SQL", Weight: 0.4, MinimumScore: 60, Required: true},
	}
}

func candidate(id string, createdAt time.Time) repository.CandidateSummary {
	return repository.CandidateSummary{
		UserID:            uuid.MustParse(id),
		ProfileVisibility: "public",
		AccountCreatedAt:  createdAt,
	}
}

func valid(skillID uuid.UUID, score float64) scoring.SkillScore {
	return scoring.SkillScore{SkillID: skillID, Score: score, ValidUntil: time.Now().Add(24 * time.Hour)}
}

func TestRecalculate_JobNotFound(t *testing.T) {
	uc := NewRecalculationUsecase(fakeRequirementRepo{exists: false}, fakeScoreRepo{}, fakeCandidateRepo{}, &fakeMatchRepo{}, nil, 4, 0, nil)

	_, err := uc.Recalculate(context.Background(), uuid.New())
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	_, err = uc.Recalculate(context.Background(), uuid.Nil)
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound for nil id, got %v", err)
	}
}

func TestRecalculate_NoActiveRequirements(t *testing.T) {
	uc := NewRecalculationUsecase(fakeRequirementRepo{exists: true}, fakeScoreRepo{}, fakeCandidateRepo{}, &fakeMatchRepo{}, nil, 4, 0, nil)
	_, err := uc.Recalculate(context.Background(), uuid.New())
	if !errors.Is(err, ErrNoActiveRequirements) {
		t.Fatalf("expected ErrNoActiveRequirements, got %v", err)
	}

	zeroWeight := fakeRequirementRepo{exists: true, reqs: []scoring.Requirement{
		{SkillID: testPythonID, Weight: 0, Required: true},
	}}
	uc = NewRecalculationUsecase(zeroWeight, fakeScoreRepo{}, fakeCandidateRepo{}, &fakeMatchRepo{}, nil, 4, 0, nil)
	_, err = uc.Recalculate(context.Background(), uuid.New())
	if !errors.Is(err, ErrNoActiveRequirements) {
		t.Fatalf("expected ErrNoActiveRequirements for zero weights, got %v", err)
	}
}

func TestRecalculate_RanksDenseAndTieBroken(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	strong := candidate("aaaaaaaa-0000-0000-0000-000000000001", base.Add(48*time.Hour))
	later := candidate("aaaaaaaa-0000-0000-0000-000000000002", base.Add(24*time.Hour))
	earlier := candidate("aaaaaaaa-0000-0000-0000-000000000003", base)

	scores := map[uuid.UUID]map[uuid.UUID]scoring.SkillScore{
		strong.UserID: {
			testPythonID: valid(testPythonID, 100),
			testSQLID:    valid(testSQLID, 70),
		},
		later.UserID:   {testPythonID: valid(testPythonID, 90)},
		earlier.UserID: {testPythonID: valid(testPythonID, 90)},
	}

	matchRepo := &fakeMatchRepo{}
	notifier := &fakeNotifier{}
	uc := NewRecalculationUsecase(
		fakeRequirementRepo{exists: true, reqs: testRequirements()},
		fakeScoreRepo{scores: scores},
		fakeCandidateRepo{pool: []repository.CandidateSummary{strong, later, earlier}},
		matchRepo,
		notifier,
		4, 0, nil,
	)

	jobID := uuid.New()
	res, err := uc.Recalculate(context.Background(), jobID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.MatchesWritten != 3 {
		t.Fatalf("expected 3 matches written, got %d", res.MatchesWritten)
	}
	if matchRepo.gotJobID != jobID {
		t.Fatalf("wrong job id written")
	}

	got := matchRepo.batch.gotUpserts
	if len(got) != 3 {
		t.Fatalf("expected 3 upserts, got %d", len(got))
	}
	for i, u := range got {
		if u.Rank != i+1 {
			t.Fatalf("rank at position %d = %d, want %d", i, u.Rank, i+1)
		}
	}
	if got[0].UserID != strong.UserID || got[0].OverallScore != 88.00 {
		t.Fatalf("expected strong candidate at rank 1 with 88.00, got %s %v", got[0].UserID, got[0].OverallScore)
	}
	if got[1].UserID != earlier.UserID {
		t.Fatalf("expected earlier account to win the tie at rank 2, got %s", got[1].UserID)
	}
	if got[1].OverallScore != 54.00 || got[2].OverallScore != 54.00 {
		t.Fatalf("expected tied candidates at 54.00, got %v and %v", got[1].OverallScore, got[2].OverallScore)
	}
	if got[2].UserID != later.UserID {
		t.Fatalf("expected later account at rank 3, got %s", got[2].UserID)
	}

	if notifier.calls != 1 || notifier.jobID != jobID {
		t.Fatalf("expected one notification for job")
	}
}

func TestRecalculate_Deterministic(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pool := make([]repository.CandidateSummary, 0, 20)
	scores := map[uuid.UUID]map[uuid.UUID]scoring.SkillScore{}
	for i := 0; i < 20; i++ {
		c := repository.CandidateSummary{UserID: uuid.New(), AccountCreatedAt: base}
		pool = append(pool, c)
		scores[c.UserID] = map[uuid.UUID]scoring.SkillScore{
			testPythonID: valid(testPythonID, float64(40+i%5)),
		}
	}

	run := func() []repository.MatchUpsert {
		matchRepo := &fakeMatchRepo{}
		uc := NewRecalculationUsecase(
			fakeRequirementRepo{exists: true, reqs: testRequirements()},
			fakeScoreRepo{scores: scores},
			fakeCandidateRepo{pool: pool},
			matchRepo,
			nil,
			8, 0, nil,
		)
		if _, err := uc.Recalculate(context.Background(), uuid.New()); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		return matchRepo.batch.gotUpserts
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("run sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].UserID != second[i].UserID || first[i].Rank != second[i].Rank || first[i].OverallScore != second[i].OverallScore {
			t.Fatalf("runs diverge at position %d", i)
		}
	}
}

type countingRequirementRepo struct {
	fakeRequirementRepo
	calls int
}

func (f *countingRequirementRepo) JobExistsByID(ctx context.Context, jobID uuid.UUID) (bool, error) {
	f.calls++
	return f.fakeRequirementRepo.JobExistsByID(ctx, jobID)
}

type countingCandidateRepo struct {
	fakeCandidateRepo
	calls int
}

func (f *countingCandidateRepo) ListEligible(ctx context.Context) ([]repository.CandidateSummary, error) {
	f.calls++
	return f.fakeCandidateRepo.ListEligible(ctx)
}

// A busy job is rejected the moment its slot cannot be claimed: no job
// lookup, no candidate pool load, no scoring happens for the loser.
func TestRecalculate_CalculationInProgressRejectedBeforeLoading(t *testing.T) {
	matchRepo := &fakeMatchRepo{beginErr: repository.ErrCalculationInProgress}
	reqRepo := &countingRequirementRepo{fakeRequirementRepo: fakeRequirementRepo{exists: true, reqs: testRequirements()}}
	candRepo := &countingCandidateRepo{fakeCandidateRepo: fakeCandidateRepo{
		pool: []repository.CandidateSummary{candidate("aaaaaaaa-0000-0000-0000-000000000001", time.Now())},
	}}
	uc := NewRecalculationUsecase(reqRepo, fakeScoreRepo{}, candRepo, matchRepo, nil, 4, 0, nil)

	_, err := uc.Recalculate(context.Background(), uuid.New())
	if !errors.Is(err, ErrCalculationInProgress) {
		t.Fatalf("expected ErrCalculationInProgress, got %v", err)
	}
	if reqRepo.calls != 0 {
		t.Fatalf("busy job must be rejected before the job lookup, got %d calls", reqRepo.calls)
	}
	if candRepo.calls != 0 {
		t.Fatalf("busy job must be rejected before the pool load, got %d calls", candRepo.calls)
	}
}

// Errors after the slot is claimed must release it.
func TestRecalculate_SlotReleasedOnFailure(t *testing.T) {
	matchRepo := &fakeMatchRepo{}
	uc := NewRecalculationUsecase(
		fakeRequirementRepo{exists: true, reqsErr: errors.New("connection reset")},
		fakeScoreRepo{},
		fakeCandidateRepo{},
		matchRepo,
		nil,
		4, 0, nil,
	)

	_, err := uc.Recalculate(context.Background(), uuid.New())
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if matchRepo.begins != 1 {
		t.Fatalf("expected the slot to be claimed once, begins=%d", matchRepo.begins)
	}
	if matchRepo.batch.commits != 0 {
		t.Fatalf("failed run must not commit")
	}
	if matchRepo.batch.rollbacks == 0 {
		t.Fatalf("failed run must release the slot")
	}
}

func TestRecalculate_PersistenceFailure(t *testing.T) {
	matchRepo := &fakeMatchRepo{batch: fakeMatchBatch{commitErr: errors.New("connection reset")}}
	notifier := &fakeNotifier{}
	uc := NewRecalculationUsecase(
		fakeRequirementRepo{exists: true, reqs: testRequirements()},
		fakeScoreRepo{},
		fakeCandidateRepo{pool: []repository.CandidateSummary{candidate("aaaaaaaa-0000-0000-0000-000000000001", time.Now())}},
		matchRepo,
		notifier,
		4, 0, nil,
	)

	_, err := uc.Recalculate(context.Background(), uuid.New())
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if notifier.calls != 0 {
		t.Fatalf("failed run must not notify")
	}
}

func TestRecalculate_EmptyPoolWritesNothingButSucceeds(t *testing.T) {
	matchRepo := &fakeMatchRepo{}
	uc := NewRecalculationUsecase(
		fakeRequirementRepo{exists: true, reqs: testRequirements()},
		fakeScoreRepo{},
		fakeCandidateRepo{},
		matchRepo,
		nil,
		4, 0, nil,
	)

	res, err := uc.Recalculate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.MatchesWritten != 0 {
		t.Fatalf("expected 0 matches written, got %d", res.MatchesWritten)
	}
	if matchRepo.batch.commits != 1 {
		t.Fatalf("expected the empty set to still be written (rank reset), commits=%d", matchRepo.batch.commits)
	}
}

func TestRecalculate_CandidateWithoutScoresGetsZeroRecord(t *testing.T) {
	matchRepo := &fakeMatchRepo{}
	uc := NewRecalculationUsecase(
		fakeRequirementRepo{exists: true, reqs: testRequirements()},
		fakeScoreRepo{},
		fakeCandidateRepo{pool: []repository.CandidateSummary{candidate("aaaaaaaa-0000-0000-0000-000000000001", time.Now())}},
		matchRepo,
		nil,
		4, 0, nil,
	)

	res, err := uc.Recalculate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.MatchesWritten != 1 {
		t.Fatalf("expected 1 match written, got %d", res.MatchesWritten)
	}
	u := matchRepo.batch.gotUpserts[0]
	if u.OverallScore != 0 || u.RequirementsMet {
		t.Fatalf("expected zero score and unmet requirements, got %v met=%v", u.OverallScore, u.RequirementsMet)
	}
	if len(u.Breakdown) != 2 {
		t.Fatalf("expected full breakdown for zero-score candidate")
	}
}
