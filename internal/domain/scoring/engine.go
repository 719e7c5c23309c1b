package scoring

import (
	"bytes"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrZeroTotalWeight signals a job whose requirement weights sum to zero.
// Such a job cannot be scored and must be skipped by the caller.
var ErrZeroTotalWeight = errors.New("total requirement weight is zero")

type Requirement struct {
	SkillID      uuid.UUID
	SkillName    string
	Weight       float64
	MinimumScore float64
	Required     bool
}

// SkillScore is a candidate's proficiency for one skill. A score past
// ValidUntil counts as if the candidate had no score at all.
type SkillScore struct {
	SkillID    uuid.UUID
	Score      float64
	ValidUntil time.Time
}

type BreakdownEntry struct {
	SkillID        uuid.UUID `json:"skill_id"`
	SkillName      string    `json:"skill_name"`
	Weight         float64   `json:"weight"`
	CandidateScore *float64  `json:"candidate_score"`
	MinimumScore   float64   `json:"minimum_score"`
	Required       bool      `json:"required"`
	Met            bool      `json:"met"`
}

type Result struct {
	OverallScore    float64
	RequirementsMet bool
	RequiredMet     int
	AnyMet          int
	Breakdown       []BreakdownEntry
}

// Score evaluates one candidate against a job's weighted requirements.
// Contributions are weight-normalized so scaling every weight by the same
// positive constant leaves the overall score unchanged.
func Score(reqs []Requirement, candidateScores map[uuid.UUID]SkillScore, now time.Time) (Result, error) {
	active := make([]Requirement, 0, len(reqs))
	totalWeight := 0.0
	for _, r := range reqs {
		if r.SkillID == uuid.Nil || r.Weight <= 0 {
			continue
		}
		active = append(active, r)
		totalWeight += r.Weight
	}
	if totalWeight == 0 {
		return Result{}, ErrZeroTotalWeight
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].Weight != active[j].Weight {
			return active[i].Weight > active[j].Weight
		}
		return bytes.Compare(active[i].SkillID[:], active[j].SkillID[:]) < 0
	})

	res := Result{
		RequirementsMet: true,
		Breakdown:       make([]BreakdownEntry, 0, len(active)),
	}

	sum := 0.0
	for _, r := range active {
		entry := BreakdownEntry{
			SkillID:      r.SkillID,
			SkillName:    r.SkillName,
			Weight:       r.Weight,
			MinimumScore: r.MinimumScore,
			Required:     r.Required,
		}

		ss, ok := candidateScores[r.SkillID]
		if ok && ss.ValidUntil.After(now) {
			score := clamp(ss.Score, 0, 100)
			entry.CandidateScore = &score
			entry.Met = score >= r.MinimumScore
			sum += r.Weight * (score / 100)
		} else {
			// Absent or expired: no contribution. An optional gap is not
			// a failure, a required one is.
			entry.Met = !r.Required
		}

		// Tie-break counters only count mets backed by an actual score;
		// a vacuously met optional requirement is no evidence of skill.
		if entry.Met && entry.CandidateScore != nil {
			res.AnyMet++
			if r.Required {
				res.RequiredMet++
			}
		}
		if r.Required && !entry.Met {
			res.RequirementsMet = false
		}

		res.Breakdown = append(res.Breakdown, entry)
	}

	res.OverallScore = clamp(round2(sum/totalWeight*100), 0, 100)
	return res, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
