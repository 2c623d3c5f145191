package usecase

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

// TeamTxRunner ejecuta fn dentro de una transacción con el repositorio de equipos atado a la tx.
type TeamTxRunner interface {
	RunTeam(ctx context.Context, fn func(teams repository.TeamRepository) error) error
}

// UserTxRunner ejecuta fn dentro de una transacción con el repositorio de usuarios atado a la tx.
type UserTxRunner interface {
	RunUsers(ctx context.Context, fn func(users repository.UserRepository) error) error
}
