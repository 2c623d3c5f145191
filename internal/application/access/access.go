// Package access aplica el resolvedor de permisos a la petición en curso: toma el
// rol de equipo del contexto y los roles de proyecto por lote desde los loaders.
package access

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/application/reqctx"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
)

// ProjectGuard es una de las funciones Can* de authz.
type ProjectGuard func(authz.ProjectRole) bool

// EffectiveRoles resuelve el rol efectivo para cada proyecto con un solo fetch de
// project_members. OWNER/ADMIN no consultan roles de proyecto.
func EffectiveRoles(ctx context.Context, projects []*entity.Project) ([]authz.ProjectRole, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]authz.ProjectRole, len(projects))
	if r.TeamRole == authz.TeamRoleOwner || r.TeamRole == authz.TeamRoleAdmin {
		for i := range out {
			out[i] = authz.ResolveEffectiveProjectRole(r.TeamRole, authz.ProjectRoleNone)
		}
		return out, nil
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	roles, err := r.Loaders.ProjectRoles.LoadMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, res := range roles {
		out[i] = authz.ResolveEffectiveProjectRole(r.TeamRole, res.Value)
	}
	return out, nil
}

// EffectiveRole resuelve el rol efectivo para un proyecto.
func EffectiveRole(ctx context.Context, project *entity.Project) (authz.ProjectRole, error) {
	roles, err := EffectiveRoles(ctx, []*entity.Project{project})
	if err != nil {
		return authz.ProjectRoleNone, err
	}
	return roles[0], nil
}

// RequireProject carga el proyecto del equipo activo y exige guard sobre el rol efectivo.
// Un proyecto que el usuario no puede ver se reporta como NotFound; uno visible
// sin el permiso pedido, como Forbidden.
func RequireProject(ctx context.Context, projectID string, guard ProjectGuard) (*entity.Project, authz.ProjectRole, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, authz.ProjectRoleNone, err
	}
	p, found, err := r.Loaders.Projects.Load(ctx, projectID)
	if err != nil {
		return nil, authz.ProjectRoleNone, err
	}
	if !found {
		return nil, authz.ProjectRoleNone, domain.NotFound("project")
	}
	role, err := EffectiveRole(ctx, p)
	if err != nil {
		return nil, authz.ProjectRoleNone, err
	}
	if !authz.CanViewProject(role) {
		return nil, authz.ProjectRoleNone, domain.NotFound("project")
	}
	if guard != nil && !guard(role) {
		return nil, role, domain.Forbidden("insufficient project role")
	}
	return p, role, nil
}

// VisibleToUser devuelve el userID con el que filtrar listados de proyectos: solo
// MEMBER ve únicamente los proyectos donde tiene fila. Vacío significa sin filtro.
func VisibleToUser(r *reqctx.Request) string {
	if r.TeamRole == authz.TeamRoleMember {
		return r.UserID
	}
	return ""
}
