package billing

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
)

// loadDocument lee factura, cliente, ítems y enlaces. Las tres lecturas que
// dependen de la cabecera corren en paralelo.
func (e *Engine) loadDocument(ctx context.Context, invoiceID string) (*InvoiceDocument, error) {
	r, err := authorize(ctx)
	if err != nil {
		return nil, err
	}
	inv, found, err := r.Loaders.Invoices.Load(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.NotFound("invoice")
	}

	doc := &InvoiceDocument{Invoice: inv}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := r.Loaders.InvoiceItemsByInvoice.LoadByForeignKey(gctx, inv.ID)
		doc.Items = items
		return err
	})
	g.Go(func() error {
		links, err := e.invoiceRepo.ListLinks(gctx, inv.ID)
		doc.Links = links
		return err
	})
	g.Go(func() error {
		c, ok, err := r.Loaders.Clients.Load(gctx, inv.ClientID)
		if ok {
			doc.Client = c
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return doc, nil
}

func toInvoiceResponse(doc *InvoiceDocument) *dto.InvoiceResponse {
	resp := toInvoiceSummary(doc.Invoice, doc.Client)
	byItem, unassigned := doc.TimeEntryIDsByItem()
	resp.Items = make([]dto.InvoiceItemResponse, 0, len(doc.Items))
	for _, it := range doc.Items {
		ids := byItem[it.ID]
		if ids == nil {
			ids = []string{}
		}
		resp.Items = append(resp.Items, dto.InvoiceItemResponse{
			ID:           it.ID,
			Description:  it.Description,
			Quantity:     it.Quantity,
			RateCents:    it.RateCents,
			AmountCents:  it.AmountCents,
			TimeEntryIDs: ids,
		})
	}
	resp.UnassignedTimeEntryIDs = unassigned
	return resp
}

func toInvoiceSummary(inv *entity.Invoice, c *entity.Client) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:             inv.ID,
		TeamID:         inv.TeamID,
		ClientID:       inv.ClientID,
		Number:         inv.Number,
		Status:         string(inv.Status),
		IssueDate:      inv.IssueDate,
		DueDate:        inv.DueDate,
		Notes:          inv.Notes,
		SubtotalCents:  inv.SubtotalCents,
		TaxRatePercent: inv.TaxRatePercent,
		TaxAmountCents: inv.TaxAmountCents,
		TotalCents:     inv.TotalCents,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
	if c != nil {
		resp.ClientName = c.Name
	}
	return resp
}
