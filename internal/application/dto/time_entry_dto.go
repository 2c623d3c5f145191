package dto

import "time"

// CreateTimeEntryRequest body para POST /api/time-entries. Sin StoppedAt la entrada queda corriendo.
type CreateTimeEntryRequest struct {
	ProjectID   string     `json:"project_id"`
	TaskID      *string    `json:"task_id,omitempty"`
	Description string     `json:"description"`
	Billable    *bool      `json:"billable,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty"`
}

// StopTimeEntryRequest body opcional para POST /api/time-entries/:id/stop.
type StopTimeEntryRequest struct {
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

// ListTimeEntriesRequest query de GET /api/time-entries.
type ListTimeEntriesRequest struct {
	ListRequest
	ProjectID string `query:"project_id"`
	UserID    string `query:"user_id"`
	From      string `query:"from"`
	To        string `query:"to"`
	Unbilled  bool   `query:"unbilled"`
}

// TimeEntryResponse entrada de tiempo.
type TimeEntryResponse struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	TaskID          *string    `json:"task_id,omitempty"`
	UserID          *string    `json:"user_id,omitempty"`
	Description     string     `json:"description"`
	StartedAt       time.Time  `json:"started_at"`
	StoppedAt       *time.Time `json:"stopped_at,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	Billable        bool       `json:"billable"`
	HourlyRateCents *int64     `json:"hourly_rate_cents,omitempty"`
	AmountCents     *int64     `json:"amount_cents,omitempty"`
	Running         bool       `json:"running"`
	CreatedAt       time.Time  `json:"created_at"`
}
