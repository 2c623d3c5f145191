// Package billing implementa el motor de consistencia de facturas: ítems, enlaces
// factura-entrada de tiempo y totales derivados, siempre dentro de una transacción
// que bloquea la fila de la factura.
package billing

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/application/reqctx"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/billing"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

const codeAlreadyBilled = "TIME_ENTRY_ALREADY_BILLED"

// Engine es el motor de facturación. Las lecturas fuera de transacción usan
// invoiceRepo; las mutaciones pasan por txRunner.
type Engine struct {
	txRunner    BillingTxRunner
	invoiceRepo repository.InvoiceRepository
	onConflict  func(code string)
	now         func() time.Time
}

// Option configura el Engine.
type Option func(*Engine)

// WithConflictHook registra fn para cada conflicto de facturación (métricas).
func WithConflictHook(fn func(code string)) Option {
	return func(e *Engine) { e.onConflict = fn }
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine construye el motor.
func NewEngine(txRunner BillingTxRunner, invoiceRepo repository.InvoiceRepository, opts ...Option) *Engine {
	e := &Engine{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		onConflict:  func(string) {},
		now:         time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// txRepos son los repositorios atados a la transacción en curso.
type txRepos struct {
	invoices repository.InvoiceRepository
	entries  repository.TimeEntryRepository
}

// linkRace marca que el INSERT de enlaces perdió contra otra transacción.
type linkRace struct {
	ids []string
	err error
}

func (e *linkRace) Error() string { return e.err.Error() }
func (e *linkRace) Unwrap() error { return e.err }

// authorize exige acceso de facturación antes de cualquier sentencia.
func authorize(ctx context.Context) (*reqctx.Request, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireInvoiceAccess(r.TeamRole); err != nil {
		return nil, err
	}
	return r, nil
}

// mutate es el único camino de escritura sobre una factura existente:
// bloquea la fila (FOR UPDATE), exige borrador si draftOnly, ejecuta fn y
// recalcula totales como último paso antes del commit.
func (e *Engine) mutate(ctx context.Context, invoiceID string, draftOnly bool, fn func(tx txRepos, inv *entity.Invoice) error) (*entity.Invoice, error) {
	r, err := authorize(ctx)
	if err != nil {
		return nil, err
	}
	var out *entity.Invoice
	err = e.txRunner.RunBilling(ctx, func(invoices repository.InvoiceRepository, entries repository.TimeEntryRepository) error {
		inv, err := invoices.LockByID(ctx, r.TeamID, invoiceID)
		if err != nil {
			return err
		}
		if draftOnly && !inv.IsDraft() {
			return domain.ErrInvoiceNotDraft
		}
		if fn != nil {
			if err := fn(txRepos{invoices: invoices, entries: entries}, inv); err != nil {
				return err
			}
		}
		if err := recalculate(ctx, invoices, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, e.mapError(ctx, invoiceID, err)
	}
	r.Loaders.Invoices.Clear(invoiceID)
	r.Loaders.InvoiceItemsByInvoice.Clear(invoiceID)
	return out, nil
}

// recalculate: subtotal = Σ amount de ítems; tax y total derivados del porcentaje.
func recalculate(ctx context.Context, invoices repository.InvoiceRepository, inv *entity.Invoice) error {
	amounts, err := invoices.ItemAmounts(ctx, inv.ID)
	if err != nil {
		return err
	}
	totals := billing.ComputeTotals(amounts, inv.TaxRatePercent)
	if err := invoices.UpdateTotals(ctx, inv.ID, totals); err != nil {
		return err
	}
	inv.ApplyTotals(totals)
	return nil
}

// mapError traduce la pérdida de una carrera por el UNIQUE de time_entry_id al
// mismo conflicto que produce la verificación previa, releyendo fuera de la tx
// ya revertida qué factura ganó.
func (e *Engine) mapError(ctx context.Context, invoiceID string, err error) error {
	var race *linkRace
	if errors.As(err, &race) {
		billed, ferr := e.invoiceRepo.FindBilled(ctx, race.ids, invoiceID)
		if ferr == nil && len(billed) > 0 {
			err = alreadyBilled(billed[0])
		} else {
			err = domain.ErrTimeEntryAlreadyBilled
		}
		zerolog.Ctx(ctx).Warn().Str("invoice_id", invoiceID).Msg("conflicto concurrente al enlazar entradas de tiempo")
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindConflict {
		e.onConflict(de.ResponseCode())
	}
	return err
}

func alreadyBilled(b entity.BilledTimeEntry) error {
	return domain.Conflict(codeAlreadyBilled, "time entry %s is already billed on invoice %s", b.TimeEntryID, b.InvoiceNumber)
}

// linkEntries valida y enlaza las entradas a la factura (y al ítem si se indica):
// deben existir en el equipo, estar detenidas y no estar en otra factura.
// Los enlaces ya presentes en esta misma factura se omiten.
func linkEntries(ctx context.Context, tx txRepos, inv *entity.Invoice, itemID *string, ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return domain.Validation("time_entry_ids must not be empty")
	}
	found, err := tx.entries.GetByIDs(ctx, inv.TeamID, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*entity.TimeEntry, len(found))
	for _, te := range found {
		byID[te.ID] = te
	}
	for _, id := range ids {
		te, ok := byID[id]
		if !ok {
			return domain.NotFound("time entry")
		}
		if te.IsRunning() {
			return domain.Validation("time entry %s is still running", id)
		}
		if !te.Billable {
			return domain.Validation("time entry %s is not billable", id)
		}
	}
	billed, err := tx.invoices.FindBilled(ctx, ids, inv.ID)
	if err != nil {
		return err
	}
	if len(billed) > 0 {
		return alreadyBilled(billed[0])
	}
	if err := tx.invoices.InsertLinks(ctx, inv.ID, itemID, ids); err != nil {
		if errors.Is(err, domain.ErrTimeEntryAlreadyBilled) {
			return &linkRace{ids: ids, err: err}
		}
		return err
	}
	return nil
}

// syncItemQuantity reemplaza la cantidad del ítem con las horas del conjunto
// completo de entradas enlazadas y persiste el ítem.
func syncItemQuantity(ctx context.Context, tx txRepos, item *entity.InvoiceItem, now time.Time) error {
	seconds, err := tx.invoices.LinkedSeconds(ctx, item.ID)
	if err != nil {
		return err
	}
	item.SetQuantityFromSeconds(seconds)
	item.UpdatedAt = now
	return tx.invoices.UpdateItem(ctx, item)
}

// AddInvoiceItem agrega una línea. Con TimeEntryIDs la cantidad se deriva de las
// entradas enlazadas; sin ellas se usa la cantidad indicada.
func (e *Engine) AddInvoiceItem(ctx context.Context, invoiceID string, in dto.AddInvoiceItemRequest) (*dto.InvoiceResponse, error) {
	if _, err := authorize(ctx); err != nil {
		return nil, err
	}
	if in.Description == "" {
		return nil, domain.Validation("description is required")
	}
	if in.RateCents < 0 {
		return nil, domain.Validation("rate_cents must not be negative")
	}
	if len(in.TimeEntryIDs) == 0 && in.Quantity.IsNegative() {
		return nil, domain.Validation("quantity must not be negative")
	}
	_, err := e.mutate(ctx, invoiceID, true, func(tx txRepos, inv *entity.Invoice) error {
		now := e.now()
		item := &entity.InvoiceItem{
			ID:          uuid.New().String(),
			InvoiceID:   inv.ID,
			Description: in.Description,
			Quantity:    in.Quantity,
			RateCents:   in.RateCents,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if len(in.TimeEntryIDs) > 0 {
			item.Quantity = decimal.Zero
		}
		item.Recompute()
		if err := tx.invoices.CreateItem(ctx, item); err != nil {
			return err
		}
		if len(in.TimeEntryIDs) == 0 {
			return nil
		}
		if err := linkEntries(ctx, tx, inv, &item.ID, in.TimeEntryIDs); err != nil {
			return err
		}
		return syncItemQuantity(ctx, tx, item, now)
	})
	if err != nil {
		return nil, err
	}
	return e.GetInvoiceWithItems(ctx, invoiceID)
}

// AddTimeEntriesToInvoiceItem enlaza entradas al ítem y reemplaza su cantidad con
// el total del conjunto enlazado. Repetir la llamada con los mismos IDs no cambia nada.
func (e *Engine) AddTimeEntriesToInvoiceItem(ctx context.Context, invoiceID, itemID string, timeEntryIDs []string) (*dto.InvoiceResponse, error) {
	_, err := e.mutate(ctx, invoiceID, true, func(tx txRepos, inv *entity.Invoice) error {
		item, err := tx.invoices.GetItem(ctx, inv.ID, itemID)
		if err != nil {
			return err
		}
		if err := linkEntries(ctx, tx, inv, &item.ID, timeEntryIDs); err != nil {
			return err
		}
		return syncItemQuantity(ctx, tx, item, e.now())
	})
	if err != nil {
		return nil, err
	}
	return e.GetInvoiceWithItems(ctx, invoiceID)
}

// RemoveTimeEntryFromInvoice quita el enlace y recalcula la cantidad del ítem con
// las entradas restantes. El ítem no se borra aunque quede en cero.
func (e *Engine) RemoveTimeEntryFromInvoice(ctx context.Context, invoiceID, timeEntryID string) (*dto.InvoiceResponse, error) {
	_, err := e.mutate(ctx, invoiceID, true, func(tx txRepos, inv *entity.Invoice) error {
		link, err := tx.invoices.DeleteLink(ctx, inv.ID, timeEntryID)
		if err != nil {
			return err
		}
		if link.InvoiceItemID == nil {
			return nil
		}
		item, err := tx.invoices.GetItem(ctx, inv.ID, *link.InvoiceItemID)
		if err != nil {
			return err
		}
		return syncItemQuantity(ctx, tx, item, e.now())
	})
	if err != nil {
		return nil, err
	}
	return e.GetInvoiceWithItems(ctx, invoiceID)
}

// RecalculateInvoiceTotals recalcula los campos derivados. Es idempotente y se
// permite en cualquier estado.
func (e *Engine) RecalculateInvoiceTotals(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	if _, err := e.mutate(ctx, invoiceID, false, nil); err != nil {
		return nil, err
	}
	return e.GetInvoiceWithItems(ctx, invoiceID)
}

// GetInvoiceWithItems devuelve la factura con sus ítems y los IDs de entradas enlazadas.
func (e *Engine) GetInvoiceWithItems(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	doc, err := e.loadDocument(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(doc), nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
