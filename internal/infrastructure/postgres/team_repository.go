package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

var _ repository.TeamRepository = (*TeamRepo)(nil)

const memberColumns = `tm.team_id, tm.user_id, tm.role, tm.created_at, tm.updated_at, u.name, u.email, t.name`

// Orden por rol según rango, no alfabético.
const teamRoleRankExpr = `CASE tm.role WHEN 'OWNER' THEN 5 WHEN 'ADMIN' THEN 4 WHEN 'MEMBER' THEN 3 WHEN 'BILLING' THEN 2 ELSE 1 END`

var memberSortColumns = map[string]string{
	"role":       teamRoleRankExpr,
	"created_at": "tm.created_at",
	"name":       "u.name",
	"email":      "u.email",
}

// TeamRepo implementación del puerto TeamRepository sobre PostgreSQL.
type TeamRepo struct {
	q Querier
}

// NewTeamRepository construye el adaptador de persistencia para equipos.
func NewTeamRepository(q Querier) *TeamRepo {
	return &TeamRepo{q: q}
}

// Create persiste un equipo.
func (r *TeamRepo) Create(ctx context.Context, team *entity.Team) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO teams (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		team.ID, team.Name, team.CreatedAt, team.UpdatedAt,
	)
	return mapError(err, "insert team")
}

// GetByID obtiene un equipo por ID.
func (r *TeamRepo) GetByID(ctx context.Context, id string) (*entity.Team, error) {
	if !isUUID(id) {
		return nil, domain.NotFound("team")
	}
	var t entity.Team
	err := r.q.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM teams WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err, "team", "get team by id")
	}
	return &t, nil
}

// ListForUser devuelve las membresías del usuario, la más antigua primero.
func (r *TeamRepo) ListForUser(ctx context.Context, userID string) ([]*entity.TeamMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		JOIN teams t ON t.id = tm.team_id
		WHERE tm.user_id = $1
		ORDER BY tm.created_at, tm.team_id`
	return collect(ctx, r.q, "list teams for user", query, rowToMember, userID)
}

// AddMember inserta una membresía. Una membresía repetida es ErrDuplicate.
func (r *TeamRepo) AddMember(ctx context.Context, m *entity.TeamMember) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.TeamID, m.UserID, m.Role.String(), m.CreatedAt, m.UpdatedAt,
	)
	return mapError(err, "insert team member")
}

// GetMember obtiene la membresía (equipo, usuario) con datos del usuario.
func (r *TeamRepo) GetMember(ctx context.Context, teamID, userID string) (*entity.TeamMember, error) {
	if !isUUID(teamID) || !isUUID(userID) {
		return nil, domain.NotFound("team member")
	}
	query := `
		SELECT ` + memberColumns + `
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		JOIN teams t ON t.id = tm.team_id
		WHERE tm.team_id = $1 AND tm.user_id = $2`
	m, err := scanMember(r.q.QueryRow(ctx, query, teamID, userID))
	if err != nil {
		return nil, notFoundOr(err, "team member", "get team member")
	}
	return m, nil
}

// GetMemberRole devuelve el rol del usuario en el equipo o TeamRoleNone.
func (r *TeamRepo) GetMemberRole(ctx context.Context, teamID, userID string) (authz.TeamRole, error) {
	if !isUUID(teamID) || !isUUID(userID) {
		return authz.TeamRoleNone, nil
	}
	var role string
	err := r.q.QueryRow(ctx,
		`SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.TeamRoleNone, nil
		}
		return authz.TeamRoleNone, mapError(err, "get team member role")
	}
	return authz.ParseTeamRole(role)
}

// UpdateMemberRole cambia el rol de una membresía existente.
func (r *TeamRepo) UpdateMemberRole(ctx context.Context, teamID, userID string, role authz.TeamRole) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE team_members SET role = $3, updated_at = now() WHERE team_id = $1 AND user_id = $2`,
		teamID, userID, role.String(),
	)
	if err != nil {
		return mapError(err, "update team member role")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("team member")
	}
	return nil
}

// RemoveMember elimina la membresía y las asignaciones del usuario en proyectos del equipo.
func (r *TeamRepo) RemoveMember(ctx context.Context, teamID, userID string) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM project_members pm
		USING projects p
		WHERE pm.project_id = p.id AND p.team_id = $1 AND pm.user_id = $2`,
		teamID, userID,
	)
	if err != nil {
		return mapError(err, "delete project memberships")
	}
	tag, err := r.q.Exec(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID,
	)
	if err != nil {
		return mapError(err, "delete team member")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("team member")
	}
	return nil
}

// ListMembers lista los miembros del equipo con búsqueda por nombre/email.
func (r *TeamRepo) ListMembers(ctx context.Context, teamID string, p repository.ListParams) ([]*entity.TeamMember, querybuilder.Page, error) {
	o := applyParams(querybuilder.Options{
		Select:       memberColumns,
		From:         "team_members tm JOIN users u ON u.id = tm.user_id JOIN teams t ON t.id = tm.team_id",
		Filters:      []querybuilder.Fragment{querybuilder.Where("tm.team_id = ?", teamID)},
		Search:       &querybuilder.Search{Columns: []string{"u.name", "u.email"}},
		SortColumns:  memberSortColumns,
		DefaultSort:  "created_at",
		DefaultOrder: querybuilder.Asc,
		Tiebreaker:   "tm.user_id",
	}, p)
	return runList(ctx, r.q, "list team members", o, rowToMember)
}

// LockOwners bloquea las filas OWNER del equipo y devuelve sus user IDs.
func (r *TeamRepo) LockOwners(ctx context.Context, teamID string) ([]string, error) {
	query := `SELECT user_id FROM team_members WHERE team_id = $1 AND role = 'OWNER' ORDER BY user_id FOR UPDATE`
	return collect(ctx, r.q, "lock team owners", query, pgx.RowTo[string], teamID)
}

func scanMember(row pgx.Row) (*entity.TeamMember, error) {
	var (
		m    entity.TeamMember
		role string
	)
	if err := row.Scan(&m.TeamID, &m.UserID, &role, &m.CreatedAt, &m.UpdatedAt, &m.UserName, &m.UserEmail, &m.TeamName); err != nil {
		return nil, err
	}
	tr, err := authz.ParseTeamRole(role)
	if err != nil {
		return nil, fmt.Errorf("scan team member %s/%s: %w", m.TeamID, m.UserID, err)
	}
	m.Role = tr
	return &m, nil
}

func rowToMember(row pgx.CollectableRow) (*entity.TeamMember, error) { return scanMember(row) }
