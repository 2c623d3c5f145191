package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/billing"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const invoiceColumns = `i.id, i.team_id, i.client_id, i.number, i.status, i.issue_date, i.due_date, i.notes,
	i.subtotal_cents, i.tax_rate_percent, i.tax_amount_cents, i.total_cents, i.created_at, i.updated_at`

const itemColumns = `it.id, it.invoice_id, it.description, it.quantity, it.rate_cents, it.amount_cents, it.created_at, it.updated_at`

const invoiceNumberPrefix = "INV-"

var invoiceSortColumns = map[string]string{
	"number":      "i.number",
	"status":      "i.status",
	"issue_date":  "i.issue_date",
	"due_date":    "i.due_date",
	"total_cents": "i.total_cents",
	"created_at":  "i.created_at",
}

// InvoiceRepo implementación del puerto InvoiceRepository sobre PostgreSQL.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador de persistencia para facturas.
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera. Número repetido dentro del equipo es ErrDuplicate.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO invoices (id, team_id, client_id, number, status, issue_date, due_date, notes,
			subtotal_cents, tax_rate_percent, tax_amount_cents, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		inv.ID, inv.TeamID, inv.ClientID, inv.Number, string(inv.Status), inv.IssueDate, inv.DueDate, inv.Notes,
		inv.SubtotalCents, inv.TaxRatePercent, inv.TaxAmountCents, inv.TotalCents, inv.CreatedAt, inv.UpdatedAt,
	)
	return mapError(err, "insert invoice")
}

// Update persiste cabecera y estado.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE invoices
		SET client_id = $3, number = $4, status = $5, issue_date = $6, due_date = $7, notes = $8,
		    tax_rate_percent = $9, updated_at = $10
		WHERE team_id = $1 AND id = $2`,
		inv.TeamID, inv.ID, inv.ClientID, inv.Number, string(inv.Status), inv.IssueDate, inv.DueDate, inv.Notes,
		inv.TaxRatePercent, inv.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update invoice")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("invoice")
	}
	return nil
}

// Delete elimina la factura; ítems y enlaces caen en cascada.
func (r *InvoiceRepo) Delete(ctx context.Context, teamID, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE team_id = $1 AND id = $2`, teamID, id)
	if err != nil {
		return mapError(err, "delete invoice")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("invoice")
	}
	return nil
}

// GetByID obtiene una factura del equipo.
func (r *InvoiceRepo) GetByID(ctx context.Context, teamID, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.team_id = $1 AND i.id = $2`, teamID, id)
}

// LockByID lee la factura con SELECT ... FOR UPDATE.
func (r *InvoiceRepo) LockByID(ctx context.Context, teamID, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.team_id = $1 AND i.id = $2 FOR UPDATE`, teamID, id)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query, teamID, id string) (*entity.Invoice, error) {
	if !isUUID(id) {
		return nil, domain.NotFound("invoice")
	}
	rows, err := collect(ctx, r.q, "get invoice", query, rowToInvoice, teamID, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NotFound("invoice")
	}
	return rows[0], nil
}

// GetByIDs obtiene las facturas del equipo entre ids.
func (r *InvoiceRepo) GetByIDs(ctx context.Context, teamID string, ids []string) ([]*entity.Invoice, error) {
	return collect(ctx, r.q, "get invoices by ids",
		`SELECT `+invoiceColumns+` FROM invoices i WHERE i.team_id = $1 AND i.id = ANY($2::uuid[])`,
		rowToInvoice, teamID, uuids(ids))
}

// NextNumber devuelve el siguiente número INV-NNNN del equipo. El advisory lock
// serializa la numeración por equipo hasta el fin de la tx.
func (r *InvoiceRepo) NextNumber(ctx context.Context, teamID string) (string, error) {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "invoice-number:"+teamID); err != nil {
		return "", mapError(err, "lock invoice numbering")
	}
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(substring(number FROM '^INV-([0-9]+)$')::bigint), 0) + 1
		FROM invoices WHERE team_id = $1`, teamID,
	).Scan(&n)
	if err != nil {
		return "", mapError(err, "next invoice number")
	}
	return fmt.Sprintf("%s%04d", invoiceNumberPrefix, n), nil
}

// List lista facturas del equipo con rango sobre issue_date.
func (r *InvoiceRepo) List(ctx context.Context, teamID string, f repository.InvoiceFilter) ([]*entity.Invoice, querybuilder.Page, error) {
	filters := []querybuilder.Fragment{querybuilder.Where("i.team_id = ?", teamID)}
	if f.Status != "" {
		filters = append(filters, querybuilder.Where("i.status = ?", f.Status))
	}
	if f.ClientID != "" {
		if !isUUID(f.ClientID) {
			return []*entity.Invoice{}, querybuilder.NewPage(0, 0, 0), nil
		}
		filters = append(filters, querybuilder.Where("i.client_id = ?", f.ClientID))
	}
	o := applyParams(querybuilder.Options{
		Select:       invoiceColumns,
		From:         "invoices i",
		Filters:      filters,
		Search:       &querybuilder.Search{Columns: []string{"i.number", "i.notes"}},
		Date:         &querybuilder.DateRange{Column: "i.issue_date", From: f.From, To: f.To},
		SortColumns:  invoiceSortColumns,
		DefaultSort:  "issue_date",
		DefaultOrder: querybuilder.Desc,
		Tiebreaker:   "i.id",
	}, f.ListParams)
	return runList(ctx, r.q, "list invoices", o, rowToInvoice)
}

// ── Ítems ─────────────────────────────────────────────────────────────────────

// CreateItem persiste un ítem.
func (r *InvoiceRepo) CreateItem(ctx context.Context, it *entity.InvoiceItem) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO invoice_items (id, invoice_id, description, quantity, rate_cents, amount_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		it.ID, it.InvoiceID, it.Description, it.Quantity, it.RateCents, it.AmountCents, it.CreatedAt, it.UpdatedAt,
	)
	return mapError(err, "insert invoice item")
}

// UpdateItem persiste descripción, cantidad, tarifa y monto.
func (r *InvoiceRepo) UpdateItem(ctx context.Context, it *entity.InvoiceItem) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE invoice_items
		SET description = $3, quantity = $4, rate_cents = $5, amount_cents = $6, updated_at = $7
		WHERE invoice_id = $1 AND id = $2`,
		it.InvoiceID, it.ID, it.Description, it.Quantity, it.RateCents, it.AmountCents, it.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update invoice item")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("invoice item")
	}
	return nil
}

// DeleteItem elimina un ítem de la factura.
func (r *InvoiceRepo) DeleteItem(ctx context.Context, invoiceID, itemID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1 AND id = $2`, invoiceID, itemID)
	if err != nil {
		return mapError(err, "delete invoice item")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("invoice item")
	}
	return nil
}

// GetItem obtiene un ítem de la factura.
func (r *InvoiceRepo) GetItem(ctx context.Context, invoiceID, itemID string) (*entity.InvoiceItem, error) {
	if !isUUID(itemID) {
		return nil, domain.NotFound("invoice item")
	}
	rows, err := collect(ctx, r.q, "get invoice item",
		`SELECT `+itemColumns+` FROM invoice_items it WHERE it.invoice_id = $1 AND it.id = $2`,
		rowToItem, invoiceID, itemID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NotFound("invoice item")
	}
	return rows[0], nil
}

// ListItems lista los ítems en orden de creación.
func (r *InvoiceRepo) ListItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	return r.ItemsByInvoiceIDs(ctx, []string{invoiceID})
}

// ItemsByInvoiceIDs devuelve los ítems de las facturas indicadas.
func (r *InvoiceRepo) ItemsByInvoiceIDs(ctx context.Context, invoiceIDs []string) ([]*entity.InvoiceItem, error) {
	return collect(ctx, r.q, "invoice items by invoice ids",
		`SELECT `+itemColumns+` FROM invoice_items it
		 WHERE it.invoice_id = ANY($1::uuid[])
		 ORDER BY it.created_at, it.id`,
		rowToItem, uuids(invoiceIDs))
}

// ItemAmounts devuelve amount_cents de cada ítem; es la única entrada de los totales.
func (r *InvoiceRepo) ItemAmounts(ctx context.Context, invoiceID string) ([]int64, error) {
	return collect(ctx, r.q, "invoice item amounts",
		`SELECT amount_cents FROM invoice_items WHERE invoice_id = $1 ORDER BY created_at, id`,
		pgx.RowTo[int64], invoiceID)
}

// UpdateTotals persiste los campos derivados.
func (r *InvoiceRepo) UpdateTotals(ctx context.Context, invoiceID string, t billing.Totals) error {
	_, err := r.q.Exec(ctx, `
		UPDATE invoices
		SET subtotal_cents = $2, tax_amount_cents = $3, total_cents = $4, updated_at = now()
		WHERE id = $1`,
		invoiceID, t.SubtotalCents, t.TaxAmountCents, t.TotalCents,
	)
	return mapError(err, "update invoice totals")
}

// ── Enlaces factura ↔ entrada de tiempo ───────────────────────────────────────

// FindBilled devuelve las entradas ya enlazadas a una factura distinta de excludeInvoiceID.
func (r *InvoiceRepo) FindBilled(ctx context.Context, timeEntryIDs []string, excludeInvoiceID string) ([]entity.BilledTimeEntry, error) {
	return collect(ctx, r.q, "find billed time entries", `
		SELECT ite.time_entry_id, ite.invoice_id, i.number
		FROM invoice_time_entries ite
		JOIN invoices i ON i.id = ite.invoice_id
		WHERE ite.time_entry_id = ANY($1::uuid[]) AND ite.invoice_id <> $2
		ORDER BY ite.time_entry_id`,
		func(row pgx.CollectableRow) (entity.BilledTimeEntry, error) {
			var b entity.BilledTimeEntry
			err := row.Scan(&b.TimeEntryID, &b.InvoiceID, &b.InvoiceNumber)
			return b, err
		}, uuids(timeEntryIDs), excludeInvoiceID)
}

// InsertLinks inserta los enlaces que aún no existen en esta factura. Si otra
// factura tomó una de las entradas, la UNIQUE de time_entry_id falla y el error
// llega como ErrTimeEntryAlreadyBilled.
func (r *InvoiceRepo) InsertLinks(ctx context.Context, invoiceID string, itemID *string, timeEntryIDs []string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO invoice_time_entries (invoice_id, time_entry_id, invoice_item_id, created_at)
		SELECT $1, te_id, $3, now()
		FROM unnest($2::uuid[]) AS te_id
		WHERE NOT EXISTS (
			SELECT 1 FROM invoice_time_entries x WHERE x.time_entry_id = te_id AND x.invoice_id = $1
		)`,
		invoiceID, timeEntryIDs, itemID,
	)
	return mapError(err, "insert invoice links")
}

// ListLinks lista los enlaces de la factura.
func (r *InvoiceRepo) ListLinks(ctx context.Context, invoiceID string) ([]*entity.InvoiceTimeEntry, error) {
	return collect(ctx, r.q, "list invoice links", `
		SELECT invoice_id, time_entry_id, invoice_item_id, created_at
		FROM invoice_time_entries WHERE invoice_id = $1
		ORDER BY created_at, time_entry_id`,
		rowToLink, invoiceID)
}

// DeleteLink elimina el enlace y devuelve cómo estaba (para saber a qué ítem pertenecía).
func (r *InvoiceRepo) DeleteLink(ctx context.Context, invoiceID, timeEntryID string) (*entity.InvoiceTimeEntry, error) {
	if !isUUID(timeEntryID) {
		return nil, domain.NotFound("invoice time entry")
	}
	rows, err := collect(ctx, r.q, "delete invoice link", `
		DELETE FROM invoice_time_entries WHERE invoice_id = $1 AND time_entry_id = $2
		RETURNING invoice_id, time_entry_id, invoice_item_id, created_at`,
		rowToLink, invoiceID, timeEntryID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NotFound("invoice time entry")
	}
	return rows[0], nil
}

// DeleteLinksByItem libera las entradas enlazadas al ítem.
func (r *InvoiceRepo) DeleteLinksByItem(ctx context.Context, itemID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM invoice_time_entries WHERE invoice_item_id = $1`, itemID)
	return mapError(err, "delete links by item")
}

// DeleteLinksByInvoice libera todas las entradas de la factura.
func (r *InvoiceRepo) DeleteLinksByInvoice(ctx context.Context, invoiceID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM invoice_time_entries WHERE invoice_id = $1`, invoiceID)
	return mapError(err, "delete links by invoice")
}

// LinkedSeconds suma duration_seconds de las entradas enlazadas al ítem.
func (r *InvoiceRepo) LinkedSeconds(ctx context.Context, itemID string) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(te.duration_seconds), 0)::bigint
		FROM invoice_time_entries ite
		JOIN time_entries te ON te.id = ite.time_entry_id
		WHERE ite.invoice_item_id = $1`, itemID,
	).Scan(&total)
	if err != nil {
		return 0, mapError(err, "sum linked seconds")
	}
	return total, nil
}

func rowToInvoice(row pgx.CollectableRow) (*entity.Invoice, error) {
	var (
		inv    entity.Invoice
		status string
	)
	err := row.Scan(&inv.ID, &inv.TeamID, &inv.ClientID, &inv.Number, &status, &inv.IssueDate, &inv.DueDate, &inv.Notes,
		&inv.SubtotalCents, &inv.TaxRatePercent, &inv.TaxAmountCents, &inv.TotalCents, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.Status = entity.InvoiceStatus(status)
	return &inv, nil
}

func rowToItem(row pgx.CollectableRow) (*entity.InvoiceItem, error) {
	var it entity.InvoiceItem
	err := row.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.RateCents, &it.AmountCents, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func rowToLink(row pgx.CollectableRow) (*entity.InvoiceTimeEntry, error) {
	var l entity.InvoiceTimeEntry
	if err := row.Scan(&l.InvoiceID, &l.TimeEntryID, &l.InvoiceItemID, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}
