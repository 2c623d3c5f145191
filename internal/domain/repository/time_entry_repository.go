package repository

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

// TimeEntryRepository define el puerto de persistencia para TimeEntry.
type TimeEntryRepository interface {
	Create(ctx context.Context, e *entity.TimeEntry) error
	// Finalize persiste stopped_at, duración, tarifa y monto de una entrada detenida.
	Finalize(ctx context.Context, e *entity.TimeEntry) error
	Delete(ctx context.Context, teamID, id string) error
	GetByID(ctx context.Context, teamID, id string) (*entity.TimeEntry, error)
	GetByIDs(ctx context.Context, teamID string, ids []string) ([]*entity.TimeEntry, error)
	// FindRunning devuelve la entrada en curso del usuario o nil.
	FindRunning(ctx context.Context, teamID, userID string) (*entity.TimeEntry, error)
	List(ctx context.Context, teamID string, f TimeEntryFilter) ([]*entity.TimeEntry, querybuilder.Page, error)
	// ByInvoiceItemIDs agrupa por invoice_item_id las entradas enlazadas.
	ByInvoiceItemIDs(ctx context.Context, itemIDs []string) (map[string][]*entity.TimeEntry, error)
}
