package repository

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

// UserRepository define el puerto de persistencia para User (DIP).
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.User, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, p ListParams) ([]*entity.User, querybuilder.Page, error)
	UpdateInstanceRole(ctx context.Context, id string, role authz.InstanceRole) error
	// LockAdmins bloquea (FOR UPDATE) las filas ADMIN y devuelve sus IDs. Solo dentro de una tx.
	LockAdmins(ctx context.Context) ([]string, error)
	// LockRegistration serializa los registros hasta el fin de la tx. Solo dentro de una tx.
	LockRegistration(ctx context.Context) error
}
