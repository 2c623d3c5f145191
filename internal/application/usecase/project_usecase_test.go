package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/application/loader"
	"github.com/jhoicas/Tiempo-api/internal/application/usecase"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

type stubProjectRepo struct {
	repository.ProjectRepository
	rows       []*entity.Project
	lastFilter repository.ProjectFilter
	upserted   []*entity.ProjectMember
}

func (s *stubProjectRepo) List(_ context.Context, _ string, f repository.ProjectFilter) ([]*entity.Project, querybuilder.Page, error) {
	s.lastFilter = f
	return s.rows, querybuilder.NewPage(0, 20, len(s.rows)), nil
}

func (s *stubProjectRepo) Update(_ context.Context, p *entity.Project) error {
	for i, row := range s.rows {
		if row.ID == p.ID {
			cp := *p
			s.rows[i] = &cp
			return nil
		}
	}
	return domain.NotFound("project")
}

func (s *stubProjectRepo) UpsertMember(_ context.Context, m *entity.ProjectMember) error {
	s.upserted = append(s.upserted, m)
	return nil
}

// projectSources sirve proyectos y roles desde memoria y cuenta los fetch de roles.
func projectSources(projects []*entity.Project, roles map[string]authz.ProjectRole, roleFetches *int) loader.Sources {
	return loader.Sources{
		Projects: func(_ context.Context, _ string, ids []string) ([]*entity.Project, error) {
			var out []*entity.Project
			for _, p := range projects {
				for _, id := range ids {
					if p.ID == id {
						out = append(out, p)
					}
				}
			}
			return out, nil
		},
		ProjectRoles: func(_ context.Context, _ string, ids []string) (map[string]authz.ProjectRole, error) {
			if roleFetches != nil {
				*roleFetches++
			}
			out := map[string]authz.ProjectRole{}
			for _, id := range ids {
				if r, ok := roles[id]; ok {
					out[id] = r
				}
			}
			return out, nil
		},
	}
}

func rate(v int64) *int64 { return &v }

// Escenario: MEMBER sin fila en project_members no ve el proyecto.
func TestGetProject_MemberSinFilaEsNotFound(t *testing.T) {
	p := &entity.Project{ID: "p1", TeamID: teamID, Name: "Web", Code: "WEB", Status: entity.ProjectStatusActive}
	ctx := requestCtx("u3", authz.TeamRoleMember, projectSources([]*entity.Project{p}, nil, nil))
	uc := usecase.NewProjectUseCase(&stubProjectRepo{}, nil, nil)

	_, err := uc.Get(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetProject_ViewerVeConRolViewer(t *testing.T) {
	p := &entity.Project{ID: "p1", TeamID: teamID, Name: "Web", Code: "WEB", Status: entity.ProjectStatusActive}
	ctx := requestCtx("u4", authz.TeamRoleViewer, projectSources([]*entity.Project{p}, nil, nil))
	uc := usecase.NewProjectUseCase(&stubProjectRepo{}, nil, nil)

	resp, err := uc.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "VIEWER", resp.EffectiveRole)
}

func TestUpdateProject_ContributorNoGestiona(t *testing.T) {
	p := &entity.Project{ID: "p1", TeamID: teamID, Name: "Web", Code: "WEB", Status: entity.ProjectStatusActive}
	roles := map[string]authz.ProjectRole{"p1": authz.ProjectRoleContributor}
	ctx := requestCtx("u3", authz.TeamRoleMember, projectSources([]*entity.Project{p}, roles, nil))
	uc := usecase.NewProjectUseCase(&stubProjectRepo{}, nil, nil)

	name := "Otro"
	_, err := uc.Update(ctx, "p1", dto.UpdateProjectRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// Escenario: cargar, actualizar y volver a cargar en la misma petición devuelve el valor nuevo.
func TestUpdateProject_GetPosteriorVeElCambio(t *testing.T) {
	repo := &stubProjectRepo{rows: []*entity.Project{
		{ID: "p1", TeamID: teamID, Name: "Viejo", Code: "WEB", Status: entity.ProjectStatusActive},
	}}
	ctx := requestCtx("u1", authz.TeamRoleAdmin, projectSources(repo.rows, nil, nil))
	uc := usecase.NewProjectUseCase(repo, nil, nil)

	before, err := uc.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Viejo", before.Name)

	name := "Nuevo"
	_, err = uc.Update(ctx, "p1", dto.UpdateProjectRequest{Name: &name})
	require.NoError(t, err)

	after, err := uc.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Nuevo", after.Name)
}

func TestListProjects_MemberFiltraYResuelveRolesEnUnFetch(t *testing.T) {
	rows := []*entity.Project{
		{ID: "p1", TeamID: teamID, Name: "A", Code: "A", Status: entity.ProjectStatusActive},
		{ID: "p2", TeamID: teamID, Name: "B", Code: "B", Status: entity.ProjectStatusActive},
		{ID: "p3", TeamID: teamID, Name: "C", Code: "C", Status: entity.ProjectStatusActive},
	}
	roles := map[string]authz.ProjectRole{
		"p1": authz.ProjectRoleViewer,
		"p2": authz.ProjectRoleManager,
		"p3": authz.ProjectRoleContributor,
	}
	fetches := 0
	repo := &stubProjectRepo{rows: rows}
	ctx := requestCtx("u3", authz.TeamRoleMember, projectSources(rows, roles, &fetches))
	uc := usecase.NewProjectUseCase(repo, nil, nil)

	resp, err := uc.List(ctx, dto.ListProjectsRequest{})
	require.NoError(t, err)
	assert.Equal(t, "u3", repo.lastFilter.VisibleToUserID)
	assert.Equal(t, 1, fetches)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "CONTRIBUTOR", resp.Items[0].EffectiveRole)
	assert.Equal(t, "MANAGER", resp.Items[1].EffectiveRole)
	assert.Equal(t, "CONTRIBUTOR", resp.Items[2].EffectiveRole)
}

func TestListProjects_AdminSinFiltroNiFetch(t *testing.T) {
	rows := []*entity.Project{{ID: "p1", TeamID: teamID, Name: "A", Code: "A", Status: entity.ProjectStatusActive}}
	fetches := 0
	repo := &stubProjectRepo{rows: rows}
	ctx := requestCtx("u2", authz.TeamRoleAdmin, projectSources(rows, nil, &fetches))
	uc := usecase.NewProjectUseCase(repo, nil, nil)

	resp, err := uc.List(ctx, dto.ListProjectsRequest{})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.VisibleToUserID)
	assert.Zero(t, fetches)
	assert.Equal(t, "MANAGER", resp.Items[0].EffectiveRole)
}

func TestCreateProject_SoloGestionDeEquipo(t *testing.T) {
	uc := usecase.NewProjectUseCase(&stubProjectRepo{}, nil, nil)
	ctx := requestCtx("u3", authz.TeamRoleMember, loader.Sources{})
	_, err := uc.Create(ctx, dto.CreateProjectRequest{Name: "Web", Code: "WEB"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSetProjectMember_UsuarioFueraDelEquipo(t *testing.T) {
	p := &entity.Project{ID: "p1", TeamID: teamID, Name: "Web", Code: "WEB", Status: entity.ProjectStatusActive, HourlyRateCents: rate(10000)}
	repo := &stubProjectRepo{}
	teams := newMemTeamRepo(member("u1", authz.TeamRoleOwner))
	ctx := requestCtx("u1", authz.TeamRoleOwner, projectSources([]*entity.Project{p}, nil, nil))
	uc := usecase.NewProjectUseCase(repo, nil, teams)

	_, err := uc.SetMember(ctx, "p1", "extraño", dto.SetProjectMemberRequest{Role: "CONTRIBUTOR"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, repo.upserted)

	teams.members[teamID+"/u5"] = member("u5", authz.TeamRoleMember)
	resp, err := uc.SetMember(ctx, "p1", "u5", dto.SetProjectMemberRequest{Role: "CONTRIBUTOR"})
	require.NoError(t, err)
	assert.Equal(t, "CONTRIBUTOR", resp.Role)
	require.Len(t, repo.upserted, 1)
}
