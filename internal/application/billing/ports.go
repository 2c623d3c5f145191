package billing

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

// BillingTxRunner ejecuta fn dentro de una transacción con los repositorios de
// facturación y de entradas de tiempo atados a la misma tx.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		entryRepo repository.TimeEntryRepository,
	) error) error
}

// InvoicePDFGenerator renderiza una factura a PDF. Los detalles del render quedan
// en el adaptador de infraestructura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, doc *InvoiceDocument) ([]byte, error)
}

// InvoiceDocument es la factura completa tal como se lee para mostrarla o renderizarla.
type InvoiceDocument struct {
	Invoice *entity.Invoice
	Client  *entity.Client
	Items   []*entity.InvoiceItem
	Links   []*entity.InvoiceTimeEntry
}

// TimeEntryIDsByItem agrupa los enlaces por ítem; los enlaces sin ítem quedan en unassigned.
func (d *InvoiceDocument) TimeEntryIDsByItem() (byItem map[string][]string, unassigned []string) {
	byItem = make(map[string][]string, len(d.Items))
	for _, l := range d.Links {
		if l.InvoiceItemID == nil {
			unassigned = append(unassigned, l.TimeEntryID)
			continue
		}
		byItem[*l.InvoiceItemID] = append(byItem[*l.InvoiceItemID], l.TimeEntryID)
	}
	return byItem, unassigned
}
