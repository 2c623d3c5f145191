package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
)

// ProjectStatus es el estado de ciclo de vida de un proyecto.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

// ParseProjectStatus valida el valor exacto.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch ProjectStatus(s) {
	case ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusArchived:
		return ProjectStatus(s), nil
	}
	return "", fmt.Errorf("invalid project status %q", s)
}

// Project pertenece a un equipo y opcionalmente a un cliente.
type Project struct {
	ID              string
	TeamID          string
	ClientID        *string
	Name            string
	Code            string
	Status          ProjectStatus
	HourlyRateCents *int64
	StartDate       *time.Time
	DueDate         *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProjectMember es la asignación explícita (proyecto, usuario) con rol de proyecto.
type ProjectMember struct {
	ProjectID string
	UserID    string
	Role      authz.ProjectRole
	CreatedAt time.Time
	UpdatedAt time.Time
}
