package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/billing"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

// CreateInvoice crea una factura en borrador para un cliente del equipo.
// Sin número se genera el siguiente INV-000n del equipo.
func (e *Engine) CreateInvoice(ctx context.Context, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	r, err := authorize(ctx)
	if err != nil {
		return nil, err
	}
	client, found, err := r.Loaders.Clients.Load(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.NotFound("client")
	}

	now := e.now().UTC()
	inv := &entity.Invoice{
		ID:             uuid.New().String(),
		TeamID:         r.TeamID,
		ClientID:       client.ID,
		Number:         strings.TrimSpace(in.Number),
		Status:         entity.InvoiceStatusDraft,
		IssueDate:      now.Truncate(24 * time.Hour),
		DueDate:        in.DueDate,
		Notes:          in.Notes,
		TaxRatePercent: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.IssueDate != nil {
		inv.IssueDate = *in.IssueDate
	}
	if in.TaxRatePercent != nil {
		inv.TaxRatePercent = in.TaxRatePercent.Round(billing.TaxRateScale)
	}
	if err := validateHeader(inv); err != nil {
		return nil, err
	}

	err = e.txRunner.RunBilling(ctx, func(invoices repository.InvoiceRepository, _ repository.TimeEntryRepository) error {
		if inv.Number == "" {
			n, err := invoices.NextNumber(ctx, r.TeamID)
			if err != nil {
				return err
			}
			inv.Number = n
		}
		return invoices.Create(ctx, inv)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Conflict("INVOICE_NUMBER_TAKEN", "invoice number %s already exists", inv.Number)
		}
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("invoice_id", inv.ID).Str("number", inv.Number).Msg("factura creada")
	r.Loaders.Invoices.Prime(inv.ID, inv)
	return e.GetInvoiceWithItems(ctx, inv.ID)
}

// UpdateInvoice cambia fechas, notas y porcentaje de impuesto de un borrador.
func (e *Engine) UpdateInvoice(ctx context.Context, invoiceID string, in dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	_, err := e.mutate(ctx, invoiceID, true, func(tx txRepos, inv *entity.Invoice) error {
		if in.IssueDate != nil {
			inv.IssueDate = *in.IssueDate
		}
		if in.DueDate != nil {
			inv.DueDate = in.DueDate
		}
		if in.Notes != nil {
			inv.Notes = *in.Notes
		}
		if in.TaxRatePercent != nil {
			inv.TaxRatePercent = in.TaxRatePercent.Round(billing.TaxRateScale)
		}
		if err := validateHeader(inv); err != nil {
			return err
		}
		inv.UpdatedAt = e.now()
		return tx.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return e.GetInvoiceWithItems(ctx, invoiceID)
}

// UpdateInvoiceItem edita una línea. La cantidad de un ítem con entradas enlazadas
// es derivada y no se puede fijar a mano; un cambio de tarifa recalcula el monto.
func (e *Engine) UpdateInvoiceItem(ctx context.Context, invoiceID, itemID string, in dto.UpdateInvoiceItemRequest) (*dto.InvoiceResponse, error) {
	_, err := e.mutate(ctx, invoiceID, true, func(tx txRepos, inv *entity.Invoice) error {
		item, err := tx.invoices.GetItem(ctx, inv.ID, itemID)
		if err != nil {
			return err
		}
		if in.Description != nil {
			if *in.Description == "" {
				return domain.Validation("description is required")
			}
			item.Description = *in.Description
		}
		if in.RateCents != nil {
			if *in.RateCents < 0 {
				return domain.Validation("rate_cents must not be negative")
			}
			item.RateCents = *in.RateCents
		}
		linked, err := hasLinks(ctx, tx, inv.ID, item.ID)
		if err != nil {
			return err
		}
		if linked {
			if in.Quantity != nil {
				return domain.Validation("quantity is derived from linked time entries")
			}
			return syncItemQuantity(ctx, tx, item, e.now())
		}
		if in.Quantity != nil {
			if in.Quantity.IsNegative() {
				return domain.Validation("quantity must not be negative")
			}
			item.Quantity = *in.Quantity
		}
		item.Recompute()
		item.UpdatedAt = e.now()
		return tx.invoices.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return e.GetInvoiceWithItems(ctx, invoiceID)
}

// DeleteInvoiceItem borra una línea y libera sus entradas enlazadas.
func (e *Engine) DeleteInvoiceItem(ctx context.Context, invoiceID, itemID string) (*dto.InvoiceResponse, error) {
	_, err := e.mutate(ctx, invoiceID, true, func(tx txRepos, inv *entity.Invoice) error {
		if _, err := tx.invoices.GetItem(ctx, inv.ID, itemID); err != nil {
			return err
		}
		if err := tx.invoices.DeleteLinksByItem(ctx, itemID); err != nil {
			return err
		}
		return tx.invoices.DeleteItem(ctx, inv.ID, itemID)
	})
	if err != nil {
		return nil, err
	}
	return e.GetInvoiceWithItems(ctx, invoiceID)
}

// SendInvoice pasa el borrador a enviada.
func (e *Engine) SendInvoice(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	return e.transition(ctx, invoiceID, entity.InvoiceStatusSent)
}

// MarkInvoicePaid pasa una factura enviada a pagada.
func (e *Engine) MarkInvoicePaid(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	return e.transition(ctx, invoiceID, entity.InvoiceStatusPaid)
}

// CancelInvoice anula un borrador o una factura enviada y libera sus entradas
// para que se puedan facturar de nuevo.
func (e *Engine) CancelInvoice(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	return e.transition(ctx, invoiceID, entity.InvoiceStatusCancelled)
}

func (e *Engine) transition(ctx context.Context, invoiceID string, next entity.InvoiceStatus) (*dto.InvoiceResponse, error) {
	_, err := e.mutate(ctx, invoiceID, false, func(tx txRepos, inv *entity.Invoice) error {
		if !inv.Status.CanTransitionTo(next) {
			if next == entity.InvoiceStatusSent {
				return domain.Conflict(domain.ErrInvoiceNotDraft.Code, "invoice must be draft to send")
			}
			return domain.Conflict("INVALID_STATUS_TRANSITION", "cannot change invoice status from %s to %s", inv.Status, next)
		}
		if next == entity.InvoiceStatusCancelled {
			if err := tx.invoices.DeleteLinksByInvoice(ctx, inv.ID); err != nil {
				return err
			}
		}
		inv.Status = next
		inv.UpdatedAt = e.now()
		return tx.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("invoice_id", invoiceID).Str("status", string(next)).Msg("estado de factura actualizado")
	return e.GetInvoiceWithItems(ctx, invoiceID)
}

// DeleteInvoice borra un borrador junto con sus ítems y enlaces.
func (e *Engine) DeleteInvoice(ctx context.Context, invoiceID string) error {
	r, err := authorize(ctx)
	if err != nil {
		return err
	}
	err = e.txRunner.RunBilling(ctx, func(invoices repository.InvoiceRepository, _ repository.TimeEntryRepository) error {
		inv, err := invoices.LockByID(ctx, r.TeamID, invoiceID)
		if err != nil {
			return err
		}
		if !inv.IsDraft() {
			return domain.ErrInvoiceNotDraft
		}
		if err := invoices.DeleteLinksByInvoice(ctx, inv.ID); err != nil {
			return err
		}
		return invoices.Delete(ctx, r.TeamID, inv.ID)
	})
	if err != nil {
		return err
	}
	r.Loaders.Invoices.Clear(invoiceID)
	r.Loaders.InvoiceItemsByInvoice.Clear(invoiceID)
	return nil
}

// ListInvoices lista las facturas del equipo (filtro por estado, cliente y rango de issue_date).
func (e *Engine) ListInvoices(ctx context.Context, in dto.ListInvoicesRequest) (*dto.ListResponse[dto.InvoiceResponse], error) {
	r, err := authorize(ctx)
	if err != nil {
		return nil, err
	}
	if in.Status != "" {
		if _, err := entity.ParseInvoiceStatus(in.Status); err != nil {
			return nil, domain.Validation("%s", err.Error())
		}
	}
	from, err := parseDate("from", in.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("to", in.To)
	if err != nil {
		return nil, err
	}
	f := repository.InvoiceFilter{
		ListParams: repository.ListParams{
			Search:  in.Search,
			OrderBy: in.OrderBy,
			Order:   in.Order,
			Offset:  in.Offset,
			Limit:   in.Limit,
		},
		Status:   in.Status,
		ClientID: in.ClientID,
		From:     from,
		To:       to,
	}
	rows, page, err := e.invoiceRepo.List(ctx, r.TeamID, f)
	if err != nil {
		return nil, err
	}
	clientIDs := make([]string, len(rows))
	for i, inv := range rows {
		clientIDs[i] = inv.ClientID
	}
	clients, err := r.Loaders.Clients.LoadMany(ctx, clientIDs)
	if err != nil {
		return nil, err
	}
	out := &dto.ListResponse[dto.InvoiceResponse]{Items: make([]dto.InvoiceResponse, 0, len(rows)), Page: page}
	for i, inv := range rows {
		var c *entity.Client
		if clients[i].Found {
			c = clients[i].Value
		}
		out.Items = append(out.Items, *toInvoiceSummary(inv, c))
	}
	return out, nil
}

func hasLinks(ctx context.Context, tx txRepos, invoiceID, itemID string) (bool, error) {
	links, err := tx.invoices.ListLinks(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	for _, l := range links {
		if l.InvoiceItemID != nil && *l.InvoiceItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func validateHeader(inv *entity.Invoice) error {
	if !billing.ValidTaxRate(inv.TaxRatePercent) {
		return domain.Validation("tax_rate_percent must be between 0 and 100")
	}
	if inv.DueDate != nil && inv.DueDate.Before(inv.IssueDate) {
		return domain.Validation("due date must not be before issue date")
	}
	return nil
}

func parseDate(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, domain.Validation("invalid %s: expected YYYY-MM-DD", name)
	}
	return &t, nil
}
