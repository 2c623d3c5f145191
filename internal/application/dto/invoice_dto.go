package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest body para POST /api/invoices. Number vacío genera INV-000n.
type CreateInvoiceRequest struct {
	ClientID       string           `json:"client_id"`
	Number         string           `json:"number,omitempty"`
	IssueDate      *time.Time       `json:"issue_date,omitempty"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	TaxRatePercent *decimal.Decimal `json:"tax_rate_percent,omitempty"`
}

// UpdateInvoiceRequest body para PATCH /api/invoices/:id (solo borrador).
type UpdateInvoiceRequest struct {
	IssueDate      *time.Time       `json:"issue_date,omitempty"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
	TaxRatePercent *decimal.Decimal `json:"tax_rate_percent,omitempty"`
}

// AddInvoiceItemRequest body para POST /api/invoices/:id/items.
// Con TimeEntryIDs la cantidad se deriva de las entradas enlazadas.
type AddInvoiceItemRequest struct {
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	RateCents    int64           `json:"rate_cents"`
	TimeEntryIDs []string        `json:"time_entry_ids,omitempty"`
}

// UpdateInvoiceItemRequest body para PATCH /api/invoices/:id/items/:itemId.
type UpdateInvoiceItemRequest struct {
	Description *string          `json:"description,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	RateCents   *int64           `json:"rate_cents,omitempty"`
}

// AddTimeEntriesRequest body para POST /api/invoices/:id/items/:itemId/time-entries.
type AddTimeEntriesRequest struct {
	TimeEntryIDs []string `json:"time_entry_ids"`
}

// ListInvoicesRequest query de GET /api/invoices.
type ListInvoicesRequest struct {
	ListRequest
	Status   string `query:"status"`
	ClientID string `query:"client_id"`
	From     string `query:"from"`
	To       string `query:"to"`
}

// InvoiceItemResponse línea de factura con las entradas enlazadas.
type InvoiceItemResponse struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	RateCents    int64           `json:"rate_cents"`
	AmountCents  int64           `json:"amount_cents"`
	TimeEntryIDs []string        `json:"time_entry_ids"`
}

// InvoiceResponse factura; Items solo se llena en GET /api/invoices/:id.
type InvoiceResponse struct {
	ID             string                `json:"id"`
	TeamID         string                `json:"team_id"`
	ClientID       string                `json:"client_id"`
	ClientName     string                `json:"client_name,omitempty"`
	Number         string                `json:"number"`
	Status         string                `json:"status"`
	IssueDate      time.Time             `json:"issue_date"`
	DueDate        *time.Time            `json:"due_date,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	SubtotalCents  int64                 `json:"subtotal_cents"`
	TaxRatePercent decimal.Decimal       `json:"tax_rate_percent"`
	TaxAmountCents int64                 `json:"tax_amount_cents"`
	TotalCents     int64                 `json:"total_cents"`
	Items          []InvoiceItemResponse `json:"items,omitempty"`

	// UnassignedTimeEntryIDs enlaces de la factura sin ítem.
	UnassignedTimeEntryIDs []string  `json:"unassigned_time_entry_ids,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}
