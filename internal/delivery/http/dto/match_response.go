package dto

import (
	"time"

	"talent-match/internal/domain/match"
	"talent-match/internal/domain/scoring"

	"github.com/google/uuid"
)

type MatchRecordResponse struct {
	MatchID         uuid.UUID                `json:"match_id"`
	JobID           uuid.UUID                `json:"job_id"`
	UserID          uuid.UUID                `json:"user_id"`
	OverallScore    float64                  `json:"overall_score"`
	Rank            *int                     `json:"rank"`
	RequirementsMet bool                     `json:"requirements_met"`
	Breakdown       []scoring.BreakdownEntry `json:"skill_breakdown"`
	Status          string                   `json:"status"`
	ViewedAt        *time.Time               `json:"viewed_at"`
	ContactedAt     *time.Time               `json:"contacted_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

func NewMatchRecordResponse(rec match.Record) MatchRecordResponse {
	return MatchRecordResponse{
		MatchID:         rec.ID,
		JobID:           rec.JobID,
		UserID:          rec.UserID,
		OverallScore:    rec.OverallScore,
		Rank:            rec.Rank,
		RequirementsMet: rec.RequirementsMet,
		Breakdown:       rec.Breakdown,
		Status:          string(rec.Status),
		ViewedAt:        rec.ViewedAt,
		ContactedAt:     rec.ContactedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

type MatchStatusRequest struct {
	Status string `json:"status"`
}
