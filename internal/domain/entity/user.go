package entity

import (
	"time"

	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
)

// User representa un usuario de la instancia. Su rol de instancia es independiente
// de los roles que tenga en cada equipo.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // hash opaco, nunca plano en dominio después de persistir
	InstanceRole authz.InstanceRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin indica si el usuario es administrador de la instancia.
func (u *User) IsAdmin() bool { return u.InstanceRole == authz.InstanceRoleAdmin }
