package repository

import (
	"context"
	"time"

	"talent-match/internal/database"
	"talent-match/internal/domain/scoring"

	"github.com/google/uuid"
)

type SkillScoreRepository interface {
	FindValidBySkillIDs(ctx context.Context, skillIDs []uuid.UUID, now time.Time) (map[uuid.UUID]map[uuid.UUID]scoring.SkillScore, error)
}

type PostgresSkillScoreRepository struct {
	db database.DB
}

func NewPostgresSkillScoreRepository(db database.DB) *PostgresSkillScoreRepository {
	return &PostgresSkillScoreRepository{db: db}
}

// FindValidBySkillIDs loads every candidate's unexpired scores for the given
// skill set in one query, keyed by user then skill. One round trip regardless
// of pool size keeps recalculation linear in candidates x requirements.
func (r *PostgresSkillScoreRepository) FindValidBySkillIDs(ctx context.Context, skillIDs []uuid.UUID, now time.Time) (map[uuid.UUID]map[uuid.UUID]scoring.SkillScore, error) {
	if len(skillIDs) == 0 {
		return map[uuid.UUID]map[uuid.UUID]scoring.SkillScore{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT user_id, skill_id, score, expires_at
		 FROM user_skill_scores
		 WHERE skill_id = ANY($1) AND expires_at > $2`,
		skillIDs, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[uuid.UUID]map[uuid.UUID]scoring.SkillScore{}
	for rows.Next() {
		var userID uuid.UUID
		var ss scoring.SkillScore
		if err := rows.Scan(&userID, &ss.SkillID, &ss.Score, &ss.ValidUntil); err != nil {
			return nil, err
		}
		byUser, ok := out[userID]
		if !ok {
			byUser = map[uuid.UUID]scoring.SkillScore{}
			out[userID] = byUser
		}
		byUser[ss.SkillID] = ss
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
