package usecase

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"talent-match/internal/domain/scoring"
	"talent-match/internal/repository"
	"talent-match/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrJobNotFound           = errors.New("job not found")
	ErrNoActiveRequirements  = errors.New("no active requirements for job")
	ErrCalculationInProgress = errors.New("calculation already in progress")
	ErrInternal              = errors.New("internal error")
)

type RecalculationResult struct {
	MatchesWritten int
	Duration       time.Duration
}

// Notifier is told about completed recalculations so caches can be dropped
// and connected clients refreshed. Failures there never fail the run.
type Notifier interface {
	RecalculationCompleted(jobID uuid.UUID, res RecalculationResult)
}

type RecalculationUsecase interface {
	Recalculate(ctx context.Context, jobID uuid.UUID) (RecalculationResult, error)
}

type Recalculation struct {
	requirements repository.RequirementRepository
	scores       repository.SkillScoreRepository
	candidates   repository.CandidateRepository
	matches      repository.MatchRepository
	notifier     Notifier

	workers int
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewRecalculationUsecase(
	requirements repository.RequirementRepository,
	scores repository.SkillScoreRepository,
	candidates repository.CandidateRepository,
	matches repository.MatchRepository,
	notifier Notifier,
	workers int,
	timeout time.Duration,
	logger *zap.Logger,
) *Recalculation {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recalculation{
		requirements: requirements,
		scores:       scores,
		candidates:   candidates,
		matches:      matches,
		notifier:     notifier,
		workers:      workers,
		timeout:      timeout,
		logger:       logger,
		now:          time.Now,
	}
}

type scoredCandidate struct {
	candidate repository.CandidateSummary
	result    scoring.Result
}

// Recalculate scores the whole eligible pool against one job and replaces
// that job's ranked set in a single transaction. The job's recalculation
// slot is claimed first and held through load, score and write, so a second
// request for the same job is rejected immediately. The candidate pool and
// all skill scores are snapshotted up front so the result is deterministic
// for fixed inputs.
func (u *Recalculation) Recalculate(ctx context.Context, jobID uuid.UUID) (RecalculationResult, error) {
	if jobID == uuid.Nil {
		return RecalculationResult{}, ErrJobNotFound
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	start := u.now()
	now := start.UTC()

	// Claim the job's recalculation slot before loading anything. An
	// overlapping run is rejected here, not after the expensive load and
	// score phase, and holding the slot until the write commits means a
	// staler snapshot can never overwrite a fresher one.
	batch, err := u.matches.BeginRecalculation(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrCalculationInProgress) {
			return RecalculationResult{}, ErrCalculationInProgress
		}
		return RecalculationResult{}, u.failure(jobID, "acquire job slot", err)
	}
	defer batch.Rollback(context.Background())

	exists, err := u.requirements.JobExistsByID(ctx, jobID)
	if err != nil {
		return RecalculationResult{}, u.failure(jobID, "load job", err)
	}
	if !exists {
		return RecalculationResult{}, ErrJobNotFound
	}

	reqs, err := u.requirements.FindByJobID(ctx, jobID)
	if err != nil {
		return RecalculationResult{}, u.failure(jobID, "load requirements", err)
	}
	active := make([]scoring.Requirement, 0, len(reqs))
	skillIDs := make([]uuid.UUID, 0, len(reqs))
	for _, r := range reqs {
		if r.Weight <= 0 {
			continue
		}
		active = append(active, r)
		skillIDs = append(skillIDs, r.SkillID)
	}
	if len(active) == 0 {
		return RecalculationResult{}, ErrNoActiveRequirements
	}

	pool, err := u.candidates.ListEligible(ctx)
	if err != nil {
		return RecalculationResult{}, u.failure(jobID, "load candidate pool", err)
	}

	scoresByUser, err := u.scores.FindValidBySkillIDs(ctx, skillIDs, now)
	if err != nil {
		return RecalculationResult{}, u.failure(jobID, "load skill scores", err)
	}

	scored := make([]scoredCandidate, len(pool))
	wp := worker.NewPool(u.workers, len(pool))
	for i, cand := range pool {
		i, cand := i, cand
		wp.Submit(func(context.Context) error {
			res, err := scoring.Score(active, scoresByUser[cand.UserID], now)
			if err != nil {
				return err
			}
			scored[i] = scoredCandidate{candidate: cand, result: res}
			return nil
		})
	}
	wp.Close()
	for r := range wp.Run(ctx) {
		if r.Err != nil {
			u.logger.Error("scoring failed",
				zap.String("job_id", jobID.String()),
				zap.Error(r.Err),
			)
			return RecalculationResult{}, ErrInternal
		}
	}
	if err := ctx.Err(); err != nil {
		return RecalculationResult{}, u.failure(jobID, "score candidates", err)
	}

	sortScored(scored)

	upserts := make([]repository.MatchUpsert, 0, len(scored))
	for i, sc := range scored {
		upserts = append(upserts, repository.MatchUpsert{
			UserID:          sc.candidate.UserID,
			OverallScore:    sc.result.OverallScore,
			Rank:            i + 1,
			RequirementsMet: sc.result.RequirementsMet,
			Breakdown:       sc.result.Breakdown,
		})
	}

	if err := batch.Commit(ctx, upserts); err != nil {
		return RecalculationResult{}, u.failure(jobID, "write matches", err)
	}

	res := RecalculationResult{
		MatchesWritten: len(upserts),
		Duration:       u.now().Sub(start),
	}

	u.logger.Info("recalculation completed",
		zap.String("job_id", jobID.String()),
		zap.Int("matches_written", res.MatchesWritten),
		zap.Duration("duration", res.Duration),
	)

	if u.notifier != nil {
		u.notifier.RecalculationCompleted(jobID, res)
	}

	return res, nil
}

// sortScored orders candidates by score descending with a total tie-break:
// more required skills met, more skills met overall, older account, then
// userID bytes so no two candidates ever compare equal.
func sortScored(scored []scoredCandidate) {
	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.result.OverallScore != b.result.OverallScore {
			return a.result.OverallScore > b.result.OverallScore
		}
		if a.result.RequiredMet != b.result.RequiredMet {
			return a.result.RequiredMet > b.result.RequiredMet
		}
		if a.result.AnyMet != b.result.AnyMet {
			return a.result.AnyMet > b.result.AnyMet
		}
		if !a.candidate.AccountCreatedAt.Equal(b.candidate.AccountCreatedAt) {
			return a.candidate.AccountCreatedAt.Before(b.candidate.AccountCreatedAt)
		}
		return bytes.Compare(a.candidate.UserID[:], b.candidate.UserID[:]) < 0
	})
}

// failure classifies an error for operators: a timeout wants a manual retry,
// a store error wants infrastructure attention, anything else is a bug.
func (u *Recalculation) failure(jobID uuid.UUID, step string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		u.logger.Warn("recalculation timed out",
			zap.String("job_id", jobID.String()),
			zap.String("step", step),
		)
	case errors.Is(err, context.Canceled):
		u.logger.Warn("recalculation canceled by caller",
			zap.String("job_id", jobID.String()),
			zap.String("step", step),
		)
	default:
		u.logger.Warn("recalculation failed at data store",
			zap.String("job_id", jobID.String()),
			zap.String("step", step),
			zap.Error(err),
		)
	}
	return ErrInternal
}
