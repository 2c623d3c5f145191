package repository

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

// ProjectRepository define el puerto de persistencia para proyectos y sus miembros.
// Toda lectura va filtrada por team_id.
type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error
	Update(ctx context.Context, project *entity.Project) error
	GetByID(ctx context.Context, teamID, id string) (*entity.Project, error)
	GetByIDs(ctx context.Context, teamID string, ids []string) ([]*entity.Project, error)
	List(ctx context.Context, teamID string, f ProjectFilter) ([]*entity.Project, querybuilder.Page, error)

	// RolesForUser devuelve el rol de proyecto del usuario para cada proyecto con fila.
	RolesForUser(ctx context.Context, userID string, projectIDs []string) (map[string]authz.ProjectRole, error)
	UpsertMember(ctx context.Context, m *entity.ProjectMember) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	MembersByProjectIDs(ctx context.Context, projectIDs []string) ([]*entity.ProjectMember, error)
}
