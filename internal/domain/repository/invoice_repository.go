package repository

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/domain/billing"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

// InvoiceRepository define el puerto de persistencia para facturas, ítems y enlaces
// factura-entrada de tiempo.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update persiste cabecera y estado (no los totales; ver UpdateTotals).
	Update(ctx context.Context, invoice *entity.Invoice) error
	Delete(ctx context.Context, teamID, id string) error
	GetByID(ctx context.Context, teamID, id string) (*entity.Invoice, error)
	GetByIDs(ctx context.Context, teamID string, ids []string) ([]*entity.Invoice, error)
	// LockByID lee la factura con SELECT ... FOR UPDATE. Solo dentro de una tx.
	LockByID(ctx context.Context, teamID, id string) (*entity.Invoice, error)
	NextNumber(ctx context.Context, teamID string) (string, error)
	List(ctx context.Context, teamID string, f InvoiceFilter) ([]*entity.Invoice, querybuilder.Page, error)

	CreateItem(ctx context.Context, item *entity.InvoiceItem) error
	UpdateItem(ctx context.Context, item *entity.InvoiceItem) error
	DeleteItem(ctx context.Context, invoiceID, itemID string) error
	GetItem(ctx context.Context, invoiceID, itemID string) (*entity.InvoiceItem, error)
	ListItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error)
	ItemsByInvoiceIDs(ctx context.Context, invoiceIDs []string) ([]*entity.InvoiceItem, error)
	ItemAmounts(ctx context.Context, invoiceID string) ([]int64, error)
	UpdateTotals(ctx context.Context, invoiceID string, t billing.Totals) error

	// FindBilled devuelve las entradas ya enlazadas a una factura distinta de excludeInvoiceID.
	FindBilled(ctx context.Context, timeEntryIDs []string, excludeInvoiceID string) ([]entity.BilledTimeEntry, error)
	// InsertLinks inserta enlaces omitiendo los que ya existen en la misma factura.
	InsertLinks(ctx context.Context, invoiceID string, itemID *string, timeEntryIDs []string) error
	ListLinks(ctx context.Context, invoiceID string) ([]*entity.InvoiceTimeEntry, error)
	DeleteLink(ctx context.Context, invoiceID, timeEntryID string) (*entity.InvoiceTimeEntry, error)
	DeleteLinksByItem(ctx context.Context, itemID string) error
	DeleteLinksByInvoice(ctx context.Context, invoiceID string) error
	// LinkedSeconds suma duration_seconds de las entradas enlazadas al ítem.
	LinkedSeconds(ctx context.Context, itemID string) (int64, error)
}
