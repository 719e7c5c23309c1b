package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MatchRecalculatedEvent struct {
	Type           string `json:"type"`
	JobID          string `json:"job_id"`
	MatchesWritten int    `json:"matches_written"`
	Timestamp      string `json:"timestamp"`
}

// NotifyMatchRecalculated tells connected employer UIs that a job's ranked
// set changed so they can refetch.
func (h *Hub) NotifyMatchRecalculated(jobID uuid.UUID, matchesWritten int) {
	if h == nil || jobID == uuid.Nil {
		return
	}

	evt := MatchRecalculatedEvent{
		Type:           "match_recalculated",
		JobID:          jobID.String(),
		MatchesWritten: matchesWritten,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}

	h.Broadcast(b)
}
