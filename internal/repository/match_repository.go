package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"talent-match/internal/database"
	"talent-match/internal/domain/match"
	"talent-match/internal/domain/scoring"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrCalculationInProgress  = errors.New("calculation already in progress")
	ErrStatusTransitionDenied = errors.New("status transition denied")
)

type MatchUpsert struct {
	UserID          uuid.UUID
	OverallScore    float64
	Rank            int
	RequirementsMet bool
	Breakdown       []scoring.BreakdownEntry
}

type MatchListFilter struct {
	Status   *match.Status
	MinScore *float64
	Limit    int
	Offset   int
}

type JobCandidateRow struct {
	Match             match.Record
	DisplayName       string
	ProfileVisibility string
}

type CandidateJobRow struct {
	Match    match.Record
	JobTitle string
}

type MatchRepository interface {
	BeginRecalculation(ctx context.Context, jobID uuid.UUID) (MatchBatch, error)
	ListByJob(ctx context.Context, jobID uuid.UUID, f MatchListFilter) ([]JobCandidateRow, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]CandidateJobRow, error)
	FindByID(ctx context.Context, id uuid.UUID) (match.Record, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status match.Status) error
	MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkContacted(ctx context.Context, id uuid.UUID, at time.Time) error
}

// MatchBatch is an open transaction that holds a job's recalculation slot
// from BeginRecalculation until Commit or Rollback. The caller does its
// load and scoring work between the two, so at most one recalculation per
// job is in flight end to end, not just during the write.
type MatchBatch interface {
	Commit(ctx context.Context, upserts []MatchUpsert) error
	Rollback(ctx context.Context)
}

type PostgresMatchRepository struct {
	db database.DB
}

func NewPostgresMatchRepository(db database.DB) *PostgresMatchRepository {
	return &PostgresMatchRepository{db: db}
}

// BeginRecalculation opens the transaction a recalculation writes into and
// takes the job's advisory lock inside it. The try-lock rejects an
// overlapping run up front, before the caller has loaded or scored
// anything; the lock is released when the transaction ends either way.
func (r *PostgresMatchRepository) BeginRecalculation(ctx context.Context, jobID uuid.UUID) (MatchBatch, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}

	var locked bool
	row := tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock(hashtextextended($1::text, 0))`, jobID)
	if err := row.Scan(&locked); err != nil {
		_ = tx.Rollback(context.Background())
		return nil, err
	}
	if !locked {
		_ = tx.Rollback(context.Background())
		return nil, ErrCalculationInProgress
	}

	return &matchBatch{tx: tx, jobID: jobID}, nil
}

type matchBatch struct {
	tx    database.Tx
	jobID uuid.UUID
}

// Commit writes one recalculation result and commits the transaction opened
// by BeginRecalculation. Workflow columns (status, viewed_at, contacted_at)
// are deliberately absent from the update list: recalculation must never
// clobber employer actions. Rows for candidates that dropped out of the
// eligible pool keep their history but lose their rank.
func (b *matchBatch) Commit(ctx context.Context, upserts []MatchUpsert) error {
	now := time.Now().UTC()
	keep := make([]uuid.UUID, 0, len(upserts))
	for _, u := range upserts {
		if u.UserID == uuid.Nil {
			continue
		}
		breakdown, err := json.Marshal(u.Breakdown)
		if err != nil {
			_ = b.tx.Rollback(context.Background())
			return err
		}
		_, err = b.tx.Exec(ctx,
			`INSERT INTO matches (
				id, job_id, user_id, overall_score, rank, requirements_met, skill_breakdown, status, created_at, updated_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
			ON CONFLICT (job_id, user_id) DO UPDATE SET
				overall_score = EXCLUDED.overall_score,
				rank = EXCLUDED.rank,
				requirements_met = EXCLUDED.requirements_met,
				skill_breakdown = EXCLUDED.skill_breakdown,
				updated_at = EXCLUDED.updated_at`,
			uuid.New(),
			b.jobID,
			u.UserID,
			u.OverallScore,
			u.Rank,
			u.RequirementsMet,
			breakdown,
			string(match.StatusMatched),
			now,
		)
		if err != nil {
			_ = b.tx.Rollback(context.Background())
			return err
		}
		keep = append(keep, u.UserID)
	}

	_, err := b.tx.Exec(ctx,
		`UPDATE matches SET rank = NULL, updated_at = $3
		 WHERE job_id = $1 AND rank IS NOT NULL AND NOT (user_id = ANY($2))`,
		b.jobID, keep, now,
	)
	if err != nil {
		_ = b.tx.Rollback(context.Background())
		return err
	}

	return b.tx.Commit(ctx)
}

// Rollback releases the job's slot without writing. Safe to defer past a
// successful Commit: rolling back a finished transaction is a no-op error
// that is ignored.
func (b *matchBatch) Rollback(ctx context.Context) {
	_ = b.tx.Rollback(ctx)
}

const matchColumns = `m.id, m.job_id, m.user_id, m.overall_score, m.rank, m.requirements_met,
	 m.skill_breakdown, m.status, m.viewed_at, m.contacted_at, m.created_at, m.updated_at`

func (r *PostgresMatchRepository) ListByJob(ctx context.Context, jobID uuid.UUID, f MatchListFilter) ([]JobCandidateRow, error) {
	conds := []string{
		"m.job_id = $1",
		"m.rank IS NOT NULL",
		"u.is_active = TRUE",
		"COALESCE(u.profile_visibility, 'public') <> 'private'",
	}
	args := []any{jobID}

	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("m.status = $%d", len(args)))
	}
	if f.MinScore != nil {
		args = append(args, *f.MinScore)
		conds = append(conds, fmt.Sprintf("m.overall_score >= $%d", len(args)))
	}

	args = append(args, f.Limit)
	limitArg := len(args)
	args = append(args, f.Offset)
	offsetArg := len(args)

	query := fmt.Sprintf(
		`SELECT %s, COALESCE(u.display_name, ''), COALESCE(u.profile_visibility, 'public')
		 FROM matches m
		 JOIN users u ON u.id = m.user_id
		 WHERE %s
		 ORDER BY m.rank ASC
		 LIMIT $%d OFFSET $%d`,
		matchColumns, strings.Join(conds, " AND "), limitArg, offsetArg,
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]JobCandidateRow, 0)
	for rows.Next() {
		var rec match.Record
		var breakdown []byte
		var jc JobCandidateRow
		if err := rows.Scan(
			&rec.ID, &rec.JobID, &rec.UserID, &rec.OverallScore, &rec.Rank, &rec.RequirementsMet,
			&breakdown, &rec.Status, &rec.ViewedAt, &rec.ContactedAt, &rec.CreatedAt, &rec.UpdatedAt,
			&jc.DisplayName, &jc.ProfileVisibility,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(breakdown, &rec.Breakdown); err != nil {
			return nil, err
		}
		jc.Match = rec
		out = append(out, jc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresMatchRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]CandidateJobRow, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s, COALESCE(j.title, '')
		 FROM matches m
		 JOIN jobs j ON j.id = m.job_id
		 WHERE m.user_id = $1
		 ORDER BY m.overall_score DESC, m.job_id ASC
		 LIMIT $2 OFFSET $3`, matchColumns),
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CandidateJobRow, 0)
	for rows.Next() {
		var rec match.Record
		var breakdown []byte
		var cj CandidateJobRow
		if err := rows.Scan(
			&rec.ID, &rec.JobID, &rec.UserID, &rec.OverallScore, &rec.Rank, &rec.RequirementsMet,
			&breakdown, &rec.Status, &rec.ViewedAt, &rec.ContactedAt, &rec.CreatedAt, &rec.UpdatedAt,
			&cj.JobTitle,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(breakdown, &rec.Breakdown); err != nil {
			return nil, err
		}
		cj.Match = rec
		out = append(out, cj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresMatchRepository) FindByID(ctx context.Context, id uuid.UUID) (match.Record, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM matches m WHERE m.id = $1`, matchColumns),
		id,
	)

	var rec match.Record
	var breakdown []byte
	if err := row.Scan(
		&rec.ID, &rec.JobID, &rec.UserID, &rec.OverallScore, &rec.Rank, &rec.RequirementsMet,
		&breakdown, &rec.Status, &rec.ViewedAt, &rec.ContactedAt, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return match.Record{}, ErrMatchNotFound
		}
		return match.Record{}, err
	}
	if err := json.Unmarshal(breakdown, &rec.Breakdown); err != nil {
		return match.Record{}, err
	}
	return rec, nil
}

// UpdateStatus guards the transition in SQL so a concurrent change cannot
// slip an illegal move through between read and write.
func (r *PostgresMatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status match.Status) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE matches SET status = $2, updated_at = $3
		 WHERE id = $1 AND status = ANY($4)`,
		id, string(status), time.Now().UTC(), allowedFrom(status),
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		exists, err := r.matchExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return ErrMatchNotFound
		}
		return ErrStatusTransitionDenied
	}
	return nil
}

func (r *PostgresMatchRepository) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE matches SET
			viewed_at = COALESCE(viewed_at, $2),
			status = CASE WHEN status = 'matched' THEN 'viewed' ELSE status END,
			updated_at = $2
		 WHERE id = $1`,
		id, at.UTC(),
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (r *PostgresMatchRepository) MarkContacted(ctx context.Context, id uuid.UUID, at time.Time) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE matches SET
			contacted_at = COALESCE(contacted_at, $2),
			status = CASE WHEN status IN ('matched', 'viewed') THEN 'contacted' ELSE status END,
			updated_at = $2
		 WHERE id = $1`,
		id, at.UTC(),
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (r *PostgresMatchRepository) matchExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	row := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM matches WHERE id = $1)`, id)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// allowedFrom lists the statuses a match may hold for the target status to be
// a legal forward move, mirroring match.CanTransition.
func allowedFrom(to match.Status) []string {
	from := make([]string, 0, 4)
	for _, s := range []match.Status{match.StatusMatched, match.StatusViewed, match.StatusContacted, match.StatusShortlisted} {
		if match.CanTransition(s, to) {
			from = append(from, string(s))
		}
	}
	return from
}
