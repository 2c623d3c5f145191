package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Tiempo-api/internal/application/auth"
	"github.com/jhoicas/Tiempo-api/internal/application/billing"
	"github.com/jhoicas/Tiempo-api/internal/application/usecase"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

var (
	_ usecase.TeamTxRunner    = (*TxRunner)(nil)
	_ usecase.UserTxRunner    = (*TxRunner)(nil)
	_ auth.UserTxRunner       = (*TxRunner)(nil)
	_ billing.BillingTxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunTeam ejecuta fn con el repositorio de equipos atado a la tx (guardas de último OWNER).
func (r *TxRunner) RunTeam(ctx context.Context, fn func(teams repository.TeamRepository) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewTeamRepository(tx))
	})
}

// RunUsers ejecuta fn con el repositorio de usuarios atado a la tx (registro y guarda de último ADMIN).
func (r *TxRunner) RunUsers(ctx context.Context, fn func(users repository.UserRepository) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewUserRepository(tx))
	})
}

// RunBilling inicia una transacción con los repos de facturación y de entradas de tiempo.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	entryRepo repository.TimeEntryRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewInvoiceRepository(tx), NewTimeEntryRepository(tx))
	})
}

// run inicia la transacción, ejecuta fn y hace Commit; ante error o panic hace Rollback.
func (r *TxRunner) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "commit transaction")
	}
	return nil
}
