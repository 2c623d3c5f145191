package repository

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
)

// TaskRepository define el puerto de persistencia para Task.
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	GetByID(ctx context.Context, teamID, id string) (*entity.Task, error)
	GetByIDs(ctx context.Context, teamID string, ids []string) ([]*entity.Task, error)
	ListByProject(ctx context.Context, teamID, projectID string) ([]*entity.Task, error)
}
