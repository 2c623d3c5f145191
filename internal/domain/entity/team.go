package entity

import (
	"time"

	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
)

// Team es el límite de tenant: todo dato de dominio pertenece a exactamente un equipo.
type Team struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TeamMember es la pertenencia (equipo, usuario) con su rol de equipo.
type TeamMember struct {
	TeamID    string
	UserID    string
	Role      authz.TeamRole
	CreatedAt time.Time
	UpdatedAt time.Time

	// Datos de solo lectura que vienen de joins.
	UserName  string
	UserEmail string
	TeamName  string
}
