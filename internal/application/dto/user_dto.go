package dto

import "time"

// RegisterRequest entrada para registro (auth).
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest entrada para login. TeamID opcional: equipo activo del token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TeamID   string `json:"team_id,omitempty"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	InstanceRole string    `json:"instance_role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// MembershipResponse equipo al que pertenece el usuario y su rol.
type MembershipResponse struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	Role     string `json:"role"`
}

// MeResponse identidad del token más el equipo activo.
type MeResponse struct {
	User         UserResponse         `json:"user"`
	ActiveTeamID string               `json:"active_team_id,omitempty"`
	TeamRole     string               `json:"team_role,omitempty"`
	Teams        []MembershipResponse `json:"teams"`
}

// SetInstanceRoleRequest body para PATCH /api/admin/users/:id/role.
type SetInstanceRoleRequest struct {
	Role string `json:"role"`
}
