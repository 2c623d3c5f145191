package dto

import "time"

// CreateTeamRequest body para POST /api/teams.
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// TeamResponse equipo creado.
type TeamResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AddTeamMemberRequest body para POST /api/team/members.
type AddTeamMemberRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// UpdateTeamMemberRequest body para PATCH /api/team/members/:userId.
type UpdateTeamMemberRequest struct {
	Role string `json:"role"`
}

// TeamMemberResponse miembro del equipo.
type TeamMemberResponse struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateClientRequest body para POST /api/clients.
type CreateClientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ClientResponse cliente en respuestas.
type ClientResponse struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
