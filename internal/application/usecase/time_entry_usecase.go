package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Tiempo-api/internal/application/access"
	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/application/reqctx"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

// TimeEntryUseCase registra tiempo: iniciar/crear, detener, listar y borrar entradas.
type TimeEntryUseCase struct {
	repo repository.TimeEntryRepository
	now  func() time.Time
}

// NewTimeEntryUseCase construye el caso de uso.
func NewTimeEntryUseCase(repo repository.TimeEntryRepository) *TimeEntryUseCase {
	return &TimeEntryUseCase{repo: repo, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *TimeEntryUseCase) WithClock(now func() time.Time) *TimeEntryUseCase {
	uc.now = now
	return uc
}

// Create inicia una entrada (sin StoppedAt) o registra una manual ya detenida.
// Requiere rol efectivo CONTRIBUTOR o MANAGER. Un usuario tiene a lo sumo una
// entrada corriendo por equipo.
func (uc *TimeEntryUseCase) Create(ctx context.Context, in dto.CreateTimeEntryRequest) (*dto.TimeEntryResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	project, _, err := access.RequireProject(ctx, in.ProjectID, authz.CanLogTime)
	if err != nil {
		return nil, err
	}
	task, err := uc.loadTask(ctx, r, project.ID, in.TaskID)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	userID := r.UserID
	e := &entity.TimeEntry{
		ID:          uuid.New().String(),
		TeamID:      r.TeamID,
		ProjectID:   project.ID,
		TaskID:      in.TaskID,
		UserID:      &userID,
		Description: strings.TrimSpace(in.Description),
		StartedAt:   now,
		Billable:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Billable != nil {
		e.Billable = *in.Billable
	}
	if in.StartedAt != nil {
		e.StartedAt = in.StartedAt.UTC()
	}
	if e.StartedAt.After(now) {
		return nil, domain.Validation("start time must not be in the future")
	}
	if in.StoppedAt != nil {
		if err := e.Stop(in.StoppedAt.UTC(), entity.ResolveRate(task, project)); err != nil {
			return nil, err
		}
	}

	if err := uc.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("time_entry_id", e.ID).Bool("running", e.IsRunning()).Msg("entrada de tiempo creada")
	resp := ToTimeEntryResponse(e)
	return &resp, nil
}

// Stop finaliza una entrada corriendo. El autor puede detener la suya si aún
// registra tiempo en el proyecto; un MANAGER puede detener cualquiera.
func (uc *TimeEntryUseCase) Stop(ctx context.Context, id string, in dto.StopTimeEntryRequest) (*dto.TimeEntryResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	e, err := uc.repo.GetByID(ctx, r.TeamID, id)
	if err != nil {
		return nil, err
	}
	project, role, err := access.RequireProject(ctx, e.ProjectID, authz.CanViewProject)
	if err != nil {
		return nil, err
	}
	if err := requireEntryWrite(r, e, role); err != nil {
		return nil, err
	}
	task, err := uc.loadTask(ctx, r, project.ID, e.TaskID)
	if err != nil {
		return nil, err
	}
	stoppedAt := uc.now().UTC()
	if in.StoppedAt != nil {
		stoppedAt = in.StoppedAt.UTC()
	}
	if err := e.Stop(stoppedAt, entity.ResolveRate(task, project)); err != nil {
		return nil, err
	}
	e.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Finalize(ctx, e); err != nil {
		return nil, err
	}
	resp := ToTimeEntryResponse(e)
	return &resp, nil
}

// List lista entradas del equipo filtrando por proyecto, usuario y rango sobre started_at.
// MEMBER solo ve entradas de proyectos donde tiene fila.
func (uc *TimeEntryUseCase) List(ctx context.Context, in dto.ListTimeEntriesRequest) (*dto.ListResponse[dto.TimeEntryResponse], error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	from, err := parseTimeParam("from", in.From, false)
	if err != nil {
		return nil, err
	}
	to, err := parseTimeParam("to", in.To, true)
	if err != nil {
		return nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.Validation("from must not be after to")
	}
	f := repository.TimeEntryFilter{
		ListParams:      listParams(in.ListRequest),
		ProjectID:       in.ProjectID,
		UserID:          in.UserID,
		VisibleToUserID: access.VisibleToUser(r),
		From:            from,
		To:              to,
		Unbilled:        in.Unbilled,
	}
	rows, page, err := uc.repo.List(ctx, r.TeamID, f)
	if err != nil {
		return nil, err
	}
	out := &dto.ListResponse[dto.TimeEntryResponse]{Items: make([]dto.TimeEntryResponse, 0, len(rows)), Page: page}
	for _, e := range rows {
		out.Items = append(out.Items, ToTimeEntryResponse(e))
	}
	return out, nil
}

// Delete borra una entrada. Una entrada facturada está referenciada por la factura
// y el borrado falla con DependencyViolation.
func (uc *TimeEntryUseCase) Delete(ctx context.Context, id string) error {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return err
	}
	e, err := uc.repo.GetByID(ctx, r.TeamID, id)
	if err != nil {
		return err
	}
	_, role, err := access.RequireProject(ctx, e.ProjectID, authz.CanViewProject)
	if err != nil {
		return err
	}
	if err := requireEntryWrite(r, e, role); err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, r.TeamID, id); err != nil {
		if domain.KindOf(err) == domain.KindDependencyViolation {
			return domain.DependencyViolation("time entry is linked to an invoice")
		}
		return err
	}
	return nil
}

func (uc *TimeEntryUseCase) loadTask(ctx context.Context, r *reqctx.Request, projectID string, taskID *string) (*entity.Task, error) {
	if taskID == nil || *taskID == "" {
		return nil, nil
	}
	t, found, err := r.Loaders.Tasks.Load(ctx, *taskID)
	if err != nil {
		return nil, err
	}
	if !found || t.ProjectID != projectID {
		return nil, domain.NotFound("task")
	}
	return t, nil
}

func requireEntryWrite(r *reqctx.Request, e *entity.TimeEntry, role authz.ProjectRole) error {
	if authz.CanManageProject(role) {
		return nil
	}
	if e.UserID != nil && *e.UserID == r.UserID && authz.CanLogTime(role) {
		return nil
	}
	return domain.Forbidden("cannot modify this time entry")
}

// parseTimeParam acepta RFC3339 o YYYY-MM-DD. Una fecha sin hora como límite
// superior cubre el día completo.
func parseTimeParam(name, s string, upper bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, domain.Validation("invalid %s: expected RFC3339 or YYYY-MM-DD", name)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// ToTimeEntryResponse convierte la entidad al DTO.
func ToTimeEntryResponse(e *entity.TimeEntry) dto.TimeEntryResponse {
	return dto.TimeEntryResponse{
		ID:              e.ID,
		ProjectID:       e.ProjectID,
		TaskID:          e.TaskID,
		UserID:          e.UserID,
		Description:     e.Description,
		StartedAt:       e.StartedAt,
		StoppedAt:       e.StoppedAt,
		DurationSeconds: e.DurationSeconds,
		Billable:        e.Billable,
		HourlyRateCents: e.HourlyRateCents,
		AmountCents:     e.AmountCents,
		Running:         e.IsRunning(),
		CreatedAt:       e.CreatedAt,
	}
}
