package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Tiempo-api/internal/application/access"
	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/application/reqctx"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

// ProjectUseCase gestiona proyectos, sus miembros y tareas.
// Los permisos se resuelven con el rol efectivo (equipo × proyecto).
type ProjectUseCase struct {
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	teams    repository.TeamRepository
}

// NewProjectUseCase construye el caso de uso.
func NewProjectUseCase(projects repository.ProjectRepository, tasks repository.TaskRepository, teams repository.TeamRepository) *ProjectUseCase {
	return &ProjectUseCase{projects: projects, tasks: tasks, teams: teams}
}

// Create crea un proyecto. Requiere OWNER o ADMIN del equipo.
func (uc *ProjectUseCase) Create(ctx context.Context, in dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireTeamManagement(r.TeamRole); err != nil {
		return nil, err
	}
	now := time.Now()
	p := &entity.Project{
		ID:              uuid.New().String(),
		TeamID:          r.TeamID,
		Name:            strings.TrimSpace(in.Name),
		Code:            strings.TrimSpace(in.Code),
		Status:          entity.ProjectStatusActive,
		HourlyRateCents: in.HourlyRateCents,
		StartDate:       in.StartDate,
		DueDate:         in.DueDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.Status != "" {
		if p.Status, err = entity.ParseProjectStatus(in.Status); err != nil {
			return nil, domain.Validation("%s", err.Error())
		}
	}
	client, err := uc.resolveClient(ctx, r, in.ClientID)
	if err != nil {
		return nil, err
	}
	p.ClientID = in.ClientID
	if err := validateProject(p); err != nil {
		return nil, err
	}
	if err := uc.projects.Create(ctx, p); err != nil {
		return nil, mapProjectDuplicate(err, p.Code)
	}
	r.Loaders.Projects.Prime(p.ID, p)
	return toProjectResponse(p, client, authz.ProjectRoleManager), nil
}

// Update aplica los campos no nulos. Requiere rol efectivo MANAGER.
func (uc *ProjectUseCase) Update(ctx context.Context, id string, in dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	current, role, err := access.RequireProject(ctx, id, authz.CanManageProject)
	if err != nil {
		return nil, err
	}
	p := *current
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Code != nil {
		p.Code = strings.TrimSpace(*in.Code)
	}
	if in.Status != nil {
		if p.Status, err = entity.ParseProjectStatus(*in.Status); err != nil {
			return nil, domain.Validation("%s", err.Error())
		}
	}
	if in.HourlyRateCents != nil {
		p.HourlyRateCents = in.HourlyRateCents
	}
	if in.StartDate != nil {
		p.StartDate = in.StartDate
	}
	if in.DueDate != nil {
		p.DueDate = in.DueDate
	}
	if in.ClientID != nil {
		if *in.ClientID == "" {
			p.ClientID = nil
		} else {
			p.ClientID = in.ClientID
		}
	}
	client, err := uc.resolveClient(ctx, r, p.ClientID)
	if err != nil {
		return nil, err
	}
	if err := validateProject(&p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now()
	if err := uc.projects.Update(ctx, &p); err != nil {
		return nil, mapProjectDuplicate(err, p.Code)
	}
	r.Loaders.Projects.Prime(p.ID, &p)
	return toProjectResponse(&p, client, role), nil
}

// Get devuelve el proyecto con el rol efectivo del usuario.
func (uc *ProjectUseCase) Get(ctx context.Context, id string) (*dto.ProjectResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	p, role, err := access.RequireProject(ctx, id, authz.CanViewProject)
	if err != nil {
		return nil, err
	}
	client, err := uc.resolveClient(ctx, r, p.ClientID)
	if err != nil {
		return nil, err
	}
	return toProjectResponse(p, client, role), nil
}

// List lista los proyectos visibles. MEMBER solo ve proyectos donde tiene fila;
// clientes y roles se resuelven por lote (una consulta cada uno).
func (uc *ProjectUseCase) List(ctx context.Context, in dto.ListProjectsRequest) (*dto.ListResponse[dto.ProjectResponse], error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	f := repository.ProjectFilter{
		ListParams:      listParams(in.ListRequest),
		Status:          in.Status,
		ClientID:        in.ClientID,
		VisibleToUserID: access.VisibleToUser(r),
	}
	rows, page, err := uc.projects.List(ctx, r.TeamID, f)
	if err != nil {
		return nil, err
	}
	roles, err := access.EffectiveRoles(ctx, rows)
	if err != nil {
		return nil, err
	}
	var clientIDs []string
	for _, p := range rows {
		if p.ClientID != nil {
			clientIDs = append(clientIDs, *p.ClientID)
		}
	}
	clients := map[string]*entity.Client{}
	if len(clientIDs) > 0 {
		res, err := r.Loaders.Clients.LoadMany(ctx, clientIDs)
		if err != nil {
			return nil, err
		}
		for i, c := range res {
			if c.Found {
				clients[clientIDs[i]] = c.Value
			}
		}
	}

	out := &dto.ListResponse[dto.ProjectResponse]{Items: make([]dto.ProjectResponse, 0, len(rows)), Page: page}
	for i, p := range rows {
		var c *entity.Client
		if p.ClientID != nil {
			c = clients[*p.ClientID]
		}
		out.Items = append(out.Items, *toProjectResponse(p, c, roles[i]))
	}
	return out, nil
}

// ListMembers lista las asignaciones explícitas del proyecto.
func (uc *ProjectUseCase) ListMembers(ctx context.Context, projectID string) ([]dto.ProjectMemberResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if _, _, err := access.RequireProject(ctx, projectID, authz.CanViewProject); err != nil {
		return nil, err
	}
	members, err := r.Loaders.ProjectMembersByProject.LoadByForeignKey(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	users, err := r.Loaders.Users.LoadMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProjectMemberResponse, 0, len(members))
	for i, m := range members {
		resp := dto.ProjectMemberResponse{UserID: m.UserID, Role: m.Role.String()}
		if users[i].Found {
			resp.Name = users[i].Value.Name
			resp.Email = users[i].Value.Email
		}
		out = append(out, resp)
	}
	return out, nil
}

// SetMember asigna (o cambia) el rol de proyecto de un miembro del equipo.
func (uc *ProjectUseCase) SetMember(ctx context.Context, projectID, userID string, in dto.SetProjectMemberRequest) (*dto.ProjectMemberResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if _, _, err := access.RequireProject(ctx, projectID, authz.CanManageProject); err != nil {
		return nil, err
	}
	role, err := authz.ParseProjectRole(in.Role)
	if err != nil {
		return nil, domain.Validation("invalid project role %q", in.Role)
	}
	teamRole, err := uc.teams.GetMemberRole(ctx, r.TeamID, userID)
	if err != nil {
		return nil, err
	}
	if teamRole == authz.TeamRoleNone {
		return nil, domain.Validation("user is not a member of the team")
	}
	now := time.Now()
	m := &entity.ProjectMember{ProjectID: projectID, UserID: userID, Role: role, CreatedAt: now, UpdatedAt: now}
	if err := uc.projects.UpsertMember(ctx, m); err != nil {
		return nil, err
	}
	uc.clearMembership(r, projectID, userID)
	return &dto.ProjectMemberResponse{UserID: userID, Role: role.String()}, nil
}

// RemoveMember elimina la asignación explícita.
func (uc *ProjectUseCase) RemoveMember(ctx context.Context, projectID, userID string) error {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return err
	}
	if _, _, err := access.RequireProject(ctx, projectID, authz.CanManageProject); err != nil {
		return err
	}
	if err := uc.projects.RemoveMember(ctx, projectID, userID); err != nil {
		return err
	}
	uc.clearMembership(r, projectID, userID)
	return nil
}

// CreateTask crea una tarea en el proyecto. Requiere rol efectivo MANAGER.
func (uc *ProjectUseCase) CreateTask(ctx context.Context, projectID string, in dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if _, _, err := access.RequireProject(ctx, projectID, authz.CanManageProject); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Validation("task name is required")
	}
	if in.HourlyRateCents != nil && *in.HourlyRateCents < 0 {
		return nil, domain.Validation("hourly rate must not be negative")
	}
	now := time.Now()
	t := &entity.Task{
		ID:              uuid.New().String(),
		TeamID:          r.TeamID,
		ProjectID:       projectID,
		Name:            name,
		HourlyRateCents: in.HourlyRateCents,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	r.Loaders.Tasks.Prime(t.ID, t)
	resp := toTaskResponse(t)
	return &resp, nil
}

// ListTasks lista las tareas de un proyecto visible.
func (uc *ProjectUseCase) ListTasks(ctx context.Context, projectID string) ([]dto.TaskResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if _, _, err := access.RequireProject(ctx, projectID, authz.CanViewProject); err != nil {
		return nil, err
	}
	rows, err := uc.tasks.ListByProject(ctx, r.TeamID, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TaskResponse, 0, len(rows))
	for _, t := range rows {
		out = append(out, toTaskResponse(t))
	}
	return out, nil
}

func (uc *ProjectUseCase) clearMembership(r *reqctx.Request, projectID, userID string) {
	r.Loaders.ProjectMembersByProject.Clear(projectID)
	if userID == r.UserID {
		r.Loaders.ProjectRoles.Clear(projectID)
	}
}

// resolveClient valida que el cliente exista en el equipo activo.
func (uc *ProjectUseCase) resolveClient(ctx context.Context, r *reqctx.Request, clientID *string) (*entity.Client, error) {
	if clientID == nil || *clientID == "" {
		return nil, nil
	}
	c, found, err := r.Loaders.Clients.Load(ctx, *clientID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.NotFound("client")
	}
	return c, nil
}

func validateProject(p *entity.Project) error {
	switch {
	case p.Name == "":
		return domain.Validation("project name is required")
	case p.Code == "":
		return domain.Validation("project code is required")
	case p.HourlyRateCents != nil && *p.HourlyRateCents < 0:
		return domain.Validation("hourly rate must not be negative")
	case p.StartDate != nil && p.DueDate != nil && p.DueDate.Before(*p.StartDate):
		return domain.Validation("due date must not be before start date")
	}
	return nil
}

func mapProjectDuplicate(err error, code string) error {
	if errors.Is(err, domain.ErrDuplicate) {
		return domain.Conflict("PROJECT_CODE_TAKEN", "project code %q already exists", code)
	}
	return err
}

func toProjectResponse(p *entity.Project, c *entity.Client, role authz.ProjectRole) *dto.ProjectResponse {
	resp := &dto.ProjectResponse{
		ID:              p.ID,
		TeamID:          p.TeamID,
		ClientID:        p.ClientID,
		Name:            p.Name,
		Code:            p.Code,
		Status:          string(p.Status),
		HourlyRateCents: p.HourlyRateCents,
		StartDate:       p.StartDate,
		DueDate:         p.DueDate,
		EffectiveRole:   role.String(),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if c != nil {
		cr := ToClientResponse(c)
		resp.Client = &cr
	}
	return resp
}

func toTaskResponse(t *entity.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:              t.ID,
		ProjectID:       t.ProjectID,
		Name:            t.Name,
		HourlyRateCents: t.HourlyRateCents,
		CreatedAt:       t.CreatedAt,
	}
}
