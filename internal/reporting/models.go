package reporting

import "time"

// TimeRange bounds a summary by record start time. Zero values mean unbounded.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type SummaryRequest struct {
	Range TimeRange `json:"range"`
}

// Summary aggregates call records for the dashboard.
type Summary struct {
	TotalCalls      int `json:"total_calls"`
	ActiveCalls     int `json:"active_calls"`
	TerminatedCalls int `json:"terminated_calls"`

	// EscalatedCalls counts records with at least one notified channel.
	EscalatedCalls int `json:"escalated_calls"`

	ByImportance map[string]int `json:"by_importance"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	GeneratedAt time.Time `json:"generated_at"`
}
