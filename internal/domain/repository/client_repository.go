package repository

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

// ClientRepository define el puerto de persistencia para Client.
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	GetByID(ctx context.Context, teamID, id string) (*entity.Client, error)
	GetByIDs(ctx context.Context, teamID string, ids []string) ([]*entity.Client, error)
	List(ctx context.Context, teamID string, p ListParams) ([]*entity.Client, querybuilder.Page, error)
}
