package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

var _ repository.TaskRepository = (*TaskRepo)(nil)

const taskColumns = `id, team_id, project_id, name, hourly_rate_cents, created_at, updated_at`

// TaskRepo implementación del puerto TaskRepository sobre PostgreSQL.
type TaskRepo struct {
	q Querier
}

// NewTaskRepository construye el adaptador de persistencia para tareas.
func NewTaskRepository(q Querier) *TaskRepo {
	return &TaskRepo{q: q}
}

// Create persiste una tarea.
func (r *TaskRepo) Create(ctx context.Context, t *entity.Task) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO tasks (id, team_id, project_id, name, hourly_rate_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.TeamID, t.ProjectID, t.Name, t.HourlyRateCents, t.CreatedAt, t.UpdatedAt,
	)
	return mapError(err, "insert task")
}

// GetByID obtiene una tarea del equipo.
func (r *TaskRepo) GetByID(ctx context.Context, teamID, id string) (*entity.Task, error) {
	if !isUUID(id) {
		return nil, domain.NotFound("task")
	}
	rows, err := collect(ctx, r.q, "get task by id",
		`SELECT `+taskColumns+` FROM tasks WHERE team_id = $1 AND id = $2`, rowToTask, teamID, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NotFound("task")
	}
	return rows[0], nil
}

// GetByIDs obtiene las tareas del equipo entre ids.
func (r *TaskRepo) GetByIDs(ctx context.Context, teamID string, ids []string) ([]*entity.Task, error) {
	return collect(ctx, r.q, "get tasks by ids",
		`SELECT `+taskColumns+` FROM tasks WHERE team_id = $1 AND id = ANY($2::uuid[])`,
		rowToTask, teamID, uuids(ids))
}

// ListByProject lista las tareas de un proyecto por nombre.
func (r *TaskRepo) ListByProject(ctx context.Context, teamID, projectID string) ([]*entity.Task, error) {
	return collect(ctx, r.q, "list tasks",
		`SELECT `+taskColumns+` FROM tasks WHERE team_id = $1 AND project_id = $2 ORDER BY name, id`,
		rowToTask, teamID, projectID)
}

func rowToTask(row pgx.CollectableRow) (*entity.Task, error) {
	var t entity.Task
	if err := row.Scan(&t.ID, &t.TeamID, &t.ProjectID, &t.Name, &t.HourlyRateCents, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
