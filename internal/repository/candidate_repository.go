package repository

import (
	"context"
	"time"

	"talent-match/internal/database"

	"github.com/google/uuid"
)

type CandidateSummary struct {
	UserID            uuid.UUID
	DisplayName       string
	ProfileVisibility string
	AccountCreatedAt  time.Time
}

type CandidateRepository interface {
	ListEligible(ctx context.Context) ([]CandidateSummary, error)
}

type PostgresCandidateRepository struct {
	db database.DB
}

func NewPostgresCandidateRepository(db database.DB) *PostgresCandidateRepository {
	return &PostgresCandidateRepository{db: db}
}

// ListEligible snapshots the candidate pool once per recalculation run.
// Inactive accounts and fully private profiles never enter the pool.
func (r *PostgresCandidateRepository) ListEligible(ctx context.Context) ([]CandidateSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, COALESCE(display_name, ''), COALESCE(profile_visibility, 'public'), created_at
		 FROM users
		 WHERE is_active = TRUE AND COALESCE(profile_visibility, 'public') <> 'private'
		 ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CandidateSummary, 0)
	for rows.Next() {
		var cs CandidateSummary
		if err := rows.Scan(&cs.UserID, &cs.DisplayName, &cs.ProfileVisibility, &cs.AccountCreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
