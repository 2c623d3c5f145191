package repository

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

// TeamRepository define el puerto de persistencia para equipos y membresías.
type TeamRepository interface {
	Create(ctx context.Context, team *entity.Team) error
	GetByID(ctx context.Context, id string) (*entity.Team, error)
	// ListForUser devuelve las membresías del usuario con el nombre del equipo.
	ListForUser(ctx context.Context, userID string) ([]*entity.TeamMember, error)

	AddMember(ctx context.Context, m *entity.TeamMember) error
	GetMember(ctx context.Context, teamID, userID string) (*entity.TeamMember, error)
	// GetMemberRole devuelve TeamRoleNone (sin error) si el usuario no pertenece al equipo.
	GetMemberRole(ctx context.Context, teamID, userID string) (authz.TeamRole, error)
	UpdateMemberRole(ctx context.Context, teamID, userID string, role authz.TeamRole) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	ListMembers(ctx context.Context, teamID string, p ListParams) ([]*entity.TeamMember, querybuilder.Page, error)
	// LockOwners bloquea (FOR UPDATE) las filas OWNER del equipo y devuelve sus user IDs.
	LockOwners(ctx context.Context, teamID string) ([]string, error)
}
