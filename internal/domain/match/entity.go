package match

import (
	"time"

	"talent-match/internal/domain/scoring"

	"github.com/google/uuid"
)

type Status string

const (
	StatusMatched     Status = "matched"
	StatusViewed      Status = "viewed"
	StatusContacted   Status = "contacted"
	StatusShortlisted Status = "shortlisted"
	StatusRejected    Status = "rejected"
	StatusHired       Status = "hired"
)

type Record struct {
	ID              uuid.UUID
	JobID           uuid.UUID
	UserID          uuid.UUID
	OverallScore    float64
	Rank            *int
	RequirementsMet bool
	Breakdown       []scoring.BreakdownEntry
	Status          Status
	ViewedAt        *time.Time
	ContactedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusMatched, StatusViewed, StatusContacted, StatusShortlisted, StatusRejected, StatusHired:
		return Status(s), true
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusHired
}

// CanTransition reports whether an employer may move a match from one status
// to another. Progress is forward-only but the business process does not
// require every step: rejecting straight from matched is allowed. matched is
// unreachable (set exclusively on first calculation) and terminal states
// never change.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	fromOrd, ok := statusOrder(from)
	if !ok {
		return false
	}
	toOrd, ok := statusOrder(to)
	if !ok {
		return false
	}
	return toOrd > fromOrd
}

func statusOrder(s Status) (int, bool) {
	switch s {
	case StatusMatched:
		return 0, true
	case StatusViewed:
		return 1, true
	case StatusContacted:
		return 2, true
	case StatusShortlisted:
		return 3, true
	case StatusRejected, StatusHired:
		return 4, true
	}
	return 0, false
}
