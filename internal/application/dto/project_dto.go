package dto

import "time"

// CreateProjectRequest body para POST /api/projects.
type CreateProjectRequest struct {
	ClientID        *string    `json:"client_id,omitempty"`
	Name            string     `json:"name"`
	Code            string     `json:"code"`
	Status          string     `json:"status,omitempty"`
	HourlyRateCents *int64     `json:"hourly_rate_cents,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
}

// UpdateProjectRequest body para PATCH /api/projects/:id (campos nil no cambian).
type UpdateProjectRequest struct {
	ClientID        *string    `json:"client_id,omitempty"`
	Name            *string    `json:"name,omitempty"`
	Code            *string    `json:"code,omitempty"`
	Status          *string    `json:"status,omitempty"`
	HourlyRateCents *int64     `json:"hourly_rate_cents,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
}

// ListProjectsRequest query de GET /api/projects.
type ListProjectsRequest struct {
	ListRequest
	Status   string `query:"status"`
	ClientID string `query:"client_id"`
}

// ProjectResponse proyecto con el rol efectivo del usuario que consulta.
type ProjectResponse struct {
	ID              string          `json:"id"`
	TeamID          string          `json:"team_id"`
	ClientID        *string         `json:"client_id,omitempty"`
	Client          *ClientResponse `json:"client,omitempty"`
	Name            string          `json:"name"`
	Code            string          `json:"code"`
	Status          string          `json:"status"`
	HourlyRateCents *int64          `json:"hourly_rate_cents,omitempty"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	EffectiveRole   string          `json:"effective_role"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SetProjectMemberRequest body para PUT /api/projects/:id/members/:userId.
type SetProjectMemberRequest struct {
	Role string `json:"role"`
}

// ProjectMemberResponse miembro de proyecto.
type ProjectMemberResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

// CreateTaskRequest body para POST /api/projects/:id/tasks.
type CreateTaskRequest struct {
	Name            string `json:"name"`
	HourlyRateCents *int64 `json:"hourly_rate_cents,omitempty"`
}

// TaskResponse tarea.
type TaskResponse struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	Name            string    `json:"name"`
	HourlyRateCents *int64    `json:"hourly_rate_cents,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
