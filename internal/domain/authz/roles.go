// Package authz contiene el modelo de roles (instancia, equipo, proyecto) y el
// resolvedor de permisos efectivos. Es lógica pura: no hace I/O.
package authz

import (
	"encoding"
	"errors"
)

// ErrInvalidRole se devuelve al parsear un rol desconocido.
var ErrInvalidRole = errors.New("invalid role")

// ── Rol de instancia ──────────────────────────────────────────────────────────

// InstanceRole es el rol global de un usuario.
type InstanceRole int

const (
	InstanceRoleUser InstanceRole = iota
	InstanceRoleAdmin
)

var instanceRoleNames = [...]string{
	InstanceRoleUser:  "USER",
	InstanceRoleAdmin: "ADMIN",
}

func (r InstanceRole) String() string {
	if r < 0 || int(r) >= len(instanceRoleNames) {
		return "unknown"
	}
	return instanceRoleNames[r]
}

// ParseInstanceRole parsea el valor exacto (sensible a mayúsculas).
func ParseInstanceRole(s string) (InstanceRole, error) {
	for i, name := range instanceRoleNames {
		if name == s {
			return InstanceRole(i), nil
		}
	}
	return InstanceRoleUser, ErrInvalidRole
}

// ── Rol de equipo ─────────────────────────────────────────────────────────────

// TeamRole es el rol de un usuario dentro de un equipo. El ordinal coincide con
// el rango: OWNER(5) > ADMIN(4) > MEMBER(3) > BILLING(2) > VIEWER(1) > ninguno(0).
type TeamRole int

const (
	TeamRoleNone TeamRole = iota
	TeamRoleViewer
	TeamRoleBilling
	TeamRoleMember
	TeamRoleAdmin
	TeamRoleOwner
)

var teamRoleNames = [...]string{
	TeamRoleNone:    "",
	TeamRoleViewer:  "VIEWER",
	TeamRoleBilling: "BILLING",
	TeamRoleMember:  "MEMBER",
	TeamRoleAdmin:   "ADMIN",
	TeamRoleOwner:   "OWNER",
}

var teamRoleRank = [...]int{
	TeamRoleNone:    0,
	TeamRoleViewer:  1,
	TeamRoleBilling: 2,
	TeamRoleMember:  3,
	TeamRoleAdmin:   4,
	TeamRoleOwner:   5,
}

// TeamRoles lista los roles asignables en orden de rango ascendente.
var TeamRoles = []TeamRole{TeamRoleViewer, TeamRoleBilling, TeamRoleMember, TeamRoleAdmin, TeamRoleOwner}

func (r TeamRole) valid() bool { return r >= TeamRoleNone && int(r) < len(teamRoleNames) }

func (r TeamRole) String() string {
	if !r.valid() {
		return "unknown"
	}
	return teamRoleNames[r]
}

// Rank devuelve el rango numérico; roles fuera de la tabla valen 0.
func (r TeamRole) Rank() int {
	if !r.valid() {
		return 0
	}
	return teamRoleRank[r]
}

// AtLeast indica si r tiene rango mayor o igual que min. Sin rol nunca cumple.
func (r TeamRole) AtLeast(min TeamRole) bool {
	if r.Rank() == 0 {
		return false
	}
	return r.Rank() >= min.Rank()
}

// ParseTeamRole parsea el valor exacto. La cadena vacía no es un rol asignable.
func ParseTeamRole(s string) (TeamRole, error) {
	for _, r := range TeamRoles {
		if teamRoleNames[r] == s {
			return r, nil
		}
	}
	return TeamRoleNone, ErrInvalidRole
}

// ── Rol de proyecto ───────────────────────────────────────────────────────────

// ProjectRole es el rol dentro de un proyecto. ProjectRoleNone representa
// "sin rol" tanto en la fila project_members como en el resultado resuelto.
type ProjectRole int

const (
	ProjectRoleNone ProjectRole = iota
	ProjectRoleViewer
	ProjectRoleContributor
	ProjectRoleManager
)

var projectRoleNames = [...]string{
	ProjectRoleNone:        "",
	ProjectRoleViewer:      "VIEWER",
	ProjectRoleContributor: "CONTRIBUTOR",
	ProjectRoleManager:     "MANAGER",
}

// ProjectRoles lista los roles asignables.
var ProjectRoles = []ProjectRole{ProjectRoleViewer, ProjectRoleContributor, ProjectRoleManager}

func (r ProjectRole) valid() bool { return r >= ProjectRoleNone && int(r) < len(projectRoleNames) }

func (r ProjectRole) String() string {
	if !r.valid() {
		return "unknown"
	}
	return projectRoleNames[r]
}

// ParseProjectRole parsea el valor exacto.
func ParseProjectRole(s string) (ProjectRole, error) {
	for _, r := range ProjectRoles {
		if projectRoleNames[r] == s {
			return r, nil
		}
	}
	return ProjectRoleNone, ErrInvalidRole
}

var (
	_ encoding.TextMarshaler   = InstanceRole(0)
	_ encoding.TextUnmarshaler = (*InstanceRole)(nil)
	_ encoding.TextMarshaler   = TeamRole(0)
	_ encoding.TextUnmarshaler = (*TeamRole)(nil)
	_ encoding.TextMarshaler   = ProjectRole(0)
	_ encoding.TextUnmarshaler = (*ProjectRole)(nil)
)

// MarshalText implements encoding.TextMarshaler.
func (r InstanceRole) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *InstanceRole) UnmarshalText(text []byte) error {
	v, err := ParseInstanceRole(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalText implements encoding.TextMarshaler. Sin rol se serializa como "".
func (r TeamRole) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *TeamRole) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = TeamRoleNone
		return nil
	}
	v, err := ParseTeamRole(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalText implements encoding.TextMarshaler. Sin rol se serializa como "".
func (r ProjectRole) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ProjectRole) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = ProjectRoleNone
		return nil
	}
	v, err := ParseProjectRole(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
