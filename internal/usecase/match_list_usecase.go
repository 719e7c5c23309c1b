package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talent-match/internal/domain/match"
	"talent-match/internal/domain/scoring"
	"talent-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidInput = errors.New("invalid input")

// ListingCache is the slice of the redis wrapper the listing path needs.
type ListingCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any) error
	JobVersion(ctx context.Context, jobID uuid.UUID) int64
}

type MatchListParams struct {
	Status   string
	MinScore *float64
	Page     int
	Limit    int
}

type JobCandidateItem struct {
	MatchID           uuid.UUID                `json:"match_id"`
	UserID            uuid.UUID                `json:"user_id"`
	DisplayName       string                   `json:"display_name"`
	ProfileVisibility string                   `json:"profile_visibility"`
	OverallScore      float64                  `json:"overall_score"`
	Rank              *int                     `json:"rank"`
	RequirementsMet   bool                     `json:"requirements_met"`
	Breakdown         []scoring.BreakdownEntry `json:"skill_breakdown"`
	Status            match.Status             `json:"status"`
	ViewedAt          *time.Time               `json:"viewed_at"`
	ContactedAt       *time.Time               `json:"contacted_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

type BrowseJobItem struct {
	MatchID         uuid.UUID    `json:"match_id"`
	JobID           uuid.UUID    `json:"job_id"`
	JobTitle        string       `json:"job_title"`
	OverallScore    float64      `json:"overall_score"`
	RequirementsMet bool         `json:"requirements_met"`
	Status          match.Status `json:"status"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type MatchListUsecase interface {
	ListJobCandidates(ctx context.Context, jobID uuid.UUID, p MatchListParams) ([]JobCandidateItem, error)
	BrowseJobs(ctx context.Context, userID uuid.UUID, page, limit int) ([]BrowseJobItem, error)
}

type MatchList struct {
	matches      repository.MatchRepository
	requirements repository.RequirementRepository
	cache        ListingCache

	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

func NewMatchListUsecase(
	matches repository.MatchRepository,
	requirements repository.RequirementRepository,
	cache ListingCache,
	defaultLimit, maxLimit int,
	logger *zap.Logger,
) *MatchList {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchList{
		matches:      matches,
		requirements: requirements,
		cache:        cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger,
	}
}

func (u *MatchList) ListJobCandidates(ctx context.Context, jobID uuid.UUID, p MatchListParams) ([]JobCandidateItem, error) {
	if jobID == uuid.Nil {
		return nil, ErrJobNotFound
	}

	var status *match.Status
	if p.Status != "" {
		st, ok := match.ParseStatus(p.Status)
		if !ok {
			return nil, ErrInvalidInput
		}
		status = &st
	}
	if p.MinScore != nil && (*p.MinScore < 0 || *p.MinScore > 100) {
		return nil, ErrInvalidInput
	}

	page, limit, err := u.normalizePage(p.Page, p.Limit)
	if err != nil {
		return nil, err
	}

	var key string
	if u.cache != nil {
		key = jobCandidatesCacheKey(jobID, u.cache.JobVersion(ctx, jobID), p.Status, p.MinScore, page, limit)
		var cached []JobCandidateItem
		if hit, err := u.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	exists, err := u.requirements.JobExistsByID(ctx, jobID)
	if err != nil {
		u.logger.Warn("job lookup failed", zap.String("job_id", jobID.String()), zap.Error(err))
		return nil, ErrInternal
	}
	if !exists {
		return nil, ErrJobNotFound
	}

	rows, err := u.matches.ListByJob(ctx, jobID, repository.MatchListFilter{
		Status:   status,
		MinScore: p.MinScore,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		u.logger.Warn("candidate listing failed", zap.String("job_id", jobID.String()), zap.Error(err))
		return nil, ErrInternal
	}

	out := make([]JobCandidateItem, 0, len(rows))
	for _, r := range rows {
		item := JobCandidateItem{
			MatchID:           r.Match.ID,
			UserID:            r.Match.UserID,
			DisplayName:       r.DisplayName,
			ProfileVisibility: r.ProfileVisibility,
			OverallScore:      r.Match.OverallScore,
			Rank:              r.Match.Rank,
			RequirementsMet:   r.Match.RequirementsMet,
			Breakdown:         r.Match.Breakdown,
			Status:            r.Match.Status,
			ViewedAt:          r.Match.ViewedAt,
			ContactedAt:       r.Match.ContactedAt,
			UpdatedAt:         r.Match.UpdatedAt,
		}
		// Identity of anonymous profiles is withheld until the collaborator
		// that owns visibility reveals it; the token itself passes through.
		if r.ProfileVisibility == "anonymous" {
			item.DisplayName = ""
		}
		out = append(out, item)
	}

	if u.cache != nil && key != "" {
		_ = u.cache.SetJSON(ctx, key, out)
	}

	return out, nil
}

func (u *MatchList) BrowseJobs(ctx context.Context, userID uuid.UUID, page, limit int) ([]BrowseJobItem, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	page, limit, err := u.normalizePage(page, limit)
	if err != nil {
		return nil, err
	}

	rows, err := u.matches.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		u.logger.Warn("browse jobs failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, ErrInternal
	}

	out := make([]BrowseJobItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, BrowseJobItem{
			MatchID:         r.Match.ID,
			JobID:           r.Match.JobID,
			JobTitle:        r.JobTitle,
			OverallScore:    r.Match.OverallScore,
			RequirementsMet: r.Match.RequirementsMet,
			Status:          r.Match.Status,
			UpdatedAt:       r.Match.UpdatedAt,
		})
	}
	return out, nil
}

func (u *MatchList) normalizePage(page, limit int) (int, int, error) {
	if page < 0 || limit < 0 {
		return 0, 0, ErrInvalidInput
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = u.defaultLimit
	}
	if limit > u.maxLimit {
		limit = u.maxLimit
	}
	return page, limit, nil
}

func jobCandidatesCacheKey(jobID uuid.UUID, version int64, status string, minScore *float64, page, limit int) string {
	ms := ""
	if minScore != nil {
		ms = fmt.Sprintf("%.2f", *minScore)
	}
	return fmt.Sprintf("match:job:%s:v%d:s=%s:ms=%s:p=%d:l=%d", jobID, version, status, ms, page, limit)
}
