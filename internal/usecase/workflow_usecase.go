package usecase

import (
	"context"
	"errors"
	"time"

	"talent-match/internal/domain/match"
	"talent-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrTransitionDenied = errors.New("status transition denied")
)

type WorkflowUsecase interface {
	UpdateStatus(ctx context.Context, matchID uuid.UUID, status string) (match.Record, error)
	RecordView(ctx context.Context, matchID uuid.UUID) (match.Record, error)
	RecordContact(ctx context.Context, matchID uuid.UUID) (match.Record, error)
}

type Workflow struct {
	matches repository.MatchRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewWorkflowUsecase(matches repository.MatchRepository, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{matches: matches, logger: logger, now: time.Now}
}

func (u *Workflow) UpdateStatus(ctx context.Context, matchID uuid.UUID, status string) (match.Record, error) {
	if matchID == uuid.Nil {
		return match.Record{}, ErrMatchNotFound
	}
	st, ok := match.ParseStatus(status)
	if !ok || st == match.StatusMatched {
		return match.Record{}, ErrInvalidStatus
	}

	if err := u.matches.UpdateStatus(ctx, matchID, st); err != nil {
		switch {
		case errors.Is(err, repository.ErrMatchNotFound):
			return match.Record{}, ErrMatchNotFound
		case errors.Is(err, repository.ErrStatusTransitionDenied):
			return match.Record{}, ErrTransitionDenied
		default:
			u.logger.Warn("status update failed", zap.String("match_id", matchID.String()), zap.Error(err))
			return match.Record{}, ErrInternal
		}
	}

	return u.reload(ctx, matchID)
}

// RecordView marks the employer having opened the candidate's detail view.
// The timestamp is set once; repeat views are no-ops apart from status
// catching up from matched.
func (u *Workflow) RecordView(ctx context.Context, matchID uuid.UUID) (match.Record, error) {
	if matchID == uuid.Nil {
		return match.Record{}, ErrMatchNotFound
	}
	if err := u.matches.MarkViewed(ctx, matchID, u.now()); err != nil {
		if errors.Is(err, repository.ErrMatchNotFound) {
			return match.Record{}, ErrMatchNotFound
		}
		u.logger.Warn("mark viewed failed", zap.String("match_id", matchID.String()), zap.Error(err))
		return match.Record{}, ErrInternal
	}
	return u.reload(ctx, matchID)
}

func (u *Workflow) RecordContact(ctx context.Context, matchID uuid.UUID) (match.Record, error) {
	if matchID == uuid.Nil {
		return match.Record{}, ErrMatchNotFound
	}
	if err := u.matches.MarkContacted(ctx, matchID, u.now()); err != nil {
		if errors.Is(err, repository.ErrMatchNotFound) {
			return match.Record{}, ErrMatchNotFound
		}
		u.logger.Warn("mark contacted failed", zap.String("match_id", matchID.String()), zap.Error(err))
		return match.Record{}, ErrInternal
	}
	return u.reload(ctx, matchID)
}

func (u *Workflow) reload(ctx context.Context, matchID uuid.UUID) (match.Record, error) {
	rec, err := u.matches.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repository.ErrMatchNotFound) {
			return match.Record{}, ErrMatchNotFound
		}
		u.logger.Warn("match reload failed", zap.String("match_id", matchID.String()), zap.Error(err))
		return match.Record{}, ErrInternal
	}
	return rec, nil
}
