package repository

import (
	"context"

	"talent-match/internal/database"
	"talent-match/internal/domain/scoring"

	"github.com/google/uuid"
)

type RequirementRepository interface {
	JobExistsByID(ctx context.Context, jobID uuid.UUID) (bool, error)
	FindByJobID(ctx context.Context, jobID uuid.UUID) ([]scoring.Requirement, error)
}

type PostgresRequirementRepository struct {
	db database.DB
}

func NewPostgresRequirementRepository(db database.DB) *PostgresRequirementRepository {
	return &PostgresRequirementRepository{db: db}
}

func (r *PostgresRequirementRepository) JobExistsByID(ctx context.Context, jobID uuid.UUID) (bool, error) {
	var exists bool
	row := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, jobID)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRequirementRepository) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]scoring.Requirement, error) {
	rows, err := r.db.Query(ctx,
		`SELECT jsr.skill_id, s.name, jsr.weight, jsr.minimum_score, jsr.required
		 FROM job_skill_requirements jsr
		 JOIN skills s ON s.id = jsr.skill_id
		 WHERE jsr.job_id = $1
		 ORDER BY jsr.weight DESC, jsr.skill_id ASC`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]scoring.Requirement, 0)
	for rows.Next() {
		var req scoring.Requirement
		if err := rows.Scan(&req.SkillID, &req.SkillName, &req.Weight, &req.MinimumScore, &req.Required); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
