package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

var _ repository.ProjectRepository = (*ProjectRepo)(nil)

const projectColumns = `p.id, p.team_id, p.client_id, p.name, p.code, p.status, p.hourly_rate_cents,
	p.start_date, p.due_date, p.created_at, p.updated_at`

var projectSortColumns = map[string]string{
	"name":       "p.name",
	"code":       "p.code",
	"status":     "p.status",
	"created_at": "p.created_at",
	"updated_at": "p.updated_at",
	"start_date": "p.start_date",
	"due_date":   "p.due_date",
}

// ProjectRepo implementación del puerto ProjectRepository sobre PostgreSQL.
type ProjectRepo struct {
	q Querier
}

// NewProjectRepository construye el adaptador de persistencia para proyectos.
func NewProjectRepository(q Querier) *ProjectRepo {
	return &ProjectRepo{q: q}
}

// Create persiste un proyecto. Código repetido dentro del equipo es ErrDuplicate.
func (r *ProjectRepo) Create(ctx context.Context, p *entity.Project) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO projects (id, team_id, client_id, name, code, status, hourly_rate_cents, start_date, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.TeamID, p.ClientID, p.Name, p.Code, string(p.Status), p.HourlyRateCents,
		p.StartDate, p.DueDate, p.CreatedAt, p.UpdatedAt,
	)
	return mapError(err, "insert project")
}

// Update persiste los campos editables.
func (r *ProjectRepo) Update(ctx context.Context, p *entity.Project) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE projects
		SET client_id = $3, name = $4, code = $5, status = $6, hourly_rate_cents = $7,
		    start_date = $8, due_date = $9, updated_at = $10
		WHERE team_id = $1 AND id = $2`,
		p.TeamID, p.ID, p.ClientID, p.Name, p.Code, string(p.Status), p.HourlyRateCents,
		p.StartDate, p.DueDate, p.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update project")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("project")
	}
	return nil
}

// GetByID obtiene un proyecto del equipo.
func (r *ProjectRepo) GetByID(ctx context.Context, teamID, id string) (*entity.Project, error) {
	if !isUUID(id) {
		return nil, domain.NotFound("project")
	}
	rows, err := collect(ctx, r.q, "get project by id",
		`SELECT `+projectColumns+` FROM projects p WHERE p.team_id = $1 AND p.id = $2`,
		rowToProject, teamID, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NotFound("project")
	}
	return rows[0], nil
}

// GetByIDs obtiene los proyectos del equipo entre ids.
func (r *ProjectRepo) GetByIDs(ctx context.Context, teamID string, ids []string) ([]*entity.Project, error) {
	return collect(ctx, r.q, "get projects by ids",
		`SELECT `+projectColumns+` FROM projects p WHERE p.team_id = $1 AND p.id = ANY($2::uuid[])`,
		rowToProject, teamID, uuids(ids))
}

// List lista proyectos del equipo. Con VisibleToUserID solo devuelve los que
// tienen fila en project_members para ese usuario.
func (r *ProjectRepo) List(ctx context.Context, teamID string, f repository.ProjectFilter) ([]*entity.Project, querybuilder.Page, error) {
	filters := []querybuilder.Fragment{querybuilder.Where("p.team_id = ?", teamID)}
	if f.Status != "" {
		filters = append(filters, querybuilder.Where("p.status = ?", f.Status))
	}
	if f.ClientID != "" {
		if !isUUID(f.ClientID) {
			return []*entity.Project{}, querybuilder.NewPage(0, 0, 0), nil
		}
		filters = append(filters, querybuilder.Where("p.client_id = ?", f.ClientID))
	}
	if f.VisibleToUserID != "" {
		filters = append(filters, querybuilder.Where(
			"EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = ?)",
			f.VisibleToUserID,
		))
	}
	o := applyParams(querybuilder.Options{
		Select:       projectColumns,
		From:         "projects p",
		Filters:      filters,
		Search:       &querybuilder.Search{Columns: []string{"p.name", "p.code"}},
		SortColumns:  projectSortColumns,
		DefaultSort:  "created_at",
		DefaultOrder: querybuilder.Desc,
		Tiebreaker:   "p.id",
	}, f.ListParams)
	return runList(ctx, r.q, "list projects", o, rowToProject)
}

// RolesForUser devuelve el rol del usuario en cada proyecto con fila.
func (r *ProjectRepo) RolesForUser(ctx context.Context, userID string, projectIDs []string) (map[string]authz.ProjectRole, error) {
	out := make(map[string]authz.ProjectRole, len(projectIDs))
	if !isUUID(userID) {
		return out, nil
	}
	members, err := collect(ctx, r.q, "project roles for user",
		`SELECT project_id, user_id, role, created_at, updated_at
		 FROM project_members WHERE user_id = $1 AND project_id = ANY($2::uuid[])`,
		rowToProjectMember, userID, uuids(projectIDs))
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		out[m.ProjectID] = m.Role
	}
	return out, nil
}

// UpsertMember crea o actualiza la asignación (proyecto, usuario).
func (r *ProjectRepo) UpsertMember(ctx context.Context, m *entity.ProjectMember) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at`,
		m.ProjectID, m.UserID, m.Role.String(), m.CreatedAt, m.UpdatedAt,
	)
	return mapError(err, "upsert project member")
}

// RemoveMember elimina la asignación.
func (r *ProjectRepo) RemoveMember(ctx context.Context, projectID, userID string) error {
	if !isUUID(userID) {
		return domain.NotFound("project member")
	}
	tag, err := r.q.Exec(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID,
	)
	if err != nil {
		return mapError(err, "delete project member")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("project member")
	}
	return nil
}

// MembersByProjectIDs devuelve las asignaciones de los proyectos indicados.
func (r *ProjectRepo) MembersByProjectIDs(ctx context.Context, projectIDs []string) ([]*entity.ProjectMember, error) {
	return collect(ctx, r.q, "project members by project ids",
		`SELECT project_id, user_id, role, created_at, updated_at
		 FROM project_members WHERE project_id = ANY($1::uuid[])
		 ORDER BY created_at, user_id`,
		rowToProjectMember, uuids(projectIDs))
}

func rowToProject(row pgx.CollectableRow) (*entity.Project, error) {
	var (
		p      entity.Project
		status string
	)
	err := row.Scan(&p.ID, &p.TeamID, &p.ClientID, &p.Name, &p.Code, &status, &p.HourlyRateCents,
		&p.StartDate, &p.DueDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = entity.ProjectStatus(status)
	return &p, nil
}

func rowToProjectMember(row pgx.CollectableRow) (*entity.ProjectMember, error) {
	var (
		m    entity.ProjectMember
		role string
	)
	if err := row.Scan(&m.ProjectID, &m.UserID, &role, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	pr, err := authz.ParseProjectRole(role)
	if err != nil {
		return nil, fmt.Errorf("scan project member %s/%s: %w", m.ProjectID, m.UserID, err)
	}
	m.Role = pr
	return &m, nil
}
