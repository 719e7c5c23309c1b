package dto

type RecalculationResponse struct {
	MatchesWritten int   `json:"matches_written"`
	DurationMs     int64 `json:"duration_ms"`
}
