package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Tiempo-api/internal/domain/billing"
)

// InvoiceStatus es el estado de la factura. draft → sent → paid; draft|sent → cancelled.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// ParseInvoiceStatus valida el valor exacto.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch InvoiceStatus(s) {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled:
		return InvoiceStatus(s), nil
	}
	return "", fmt.Errorf("invalid invoice status %q", s)
}

// CanTransitionTo indica si el cambio de estado es válido.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return next == InvoiceStatusSent || next == InvoiceStatusCancelled
	case InvoiceStatusSent:
		return next == InvoiceStatusPaid || next == InvoiceStatusCancelled
	default:
		return false
	}
}

// Invoice representa la cabecera de una factura. Subtotal, impuesto y total son
// derivados de los ítems: solo los escribe ApplyTotals.
type Invoice struct {
	ID             string
	TeamID         string
	ClientID       string
	Number         string
	Status         InvoiceStatus
	IssueDate      time.Time
	DueDate        *time.Time
	Notes          string
	SubtotalCents  int64
	TaxRatePercent decimal.Decimal
	TaxAmountCents int64
	TotalCents     int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsDraft indica si la factura admite cambios en ítems, enlaces o impuesto.
func (i *Invoice) IsDraft() bool { return i.Status == InvoiceStatusDraft }

// ApplyTotals copia los campos derivados.
func (i *Invoice) ApplyTotals(t billing.Totals) {
	i.SubtotalCents = t.SubtotalCents
	i.TaxAmountCents = t.TaxAmountCents
	i.TotalCents = t.TotalCents
}

// InvoiceItem representa una línea de la factura. amount = round(quantity * rate).
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	Description string
	Quantity    decimal.Decimal
	RateCents   int64
	AmountCents int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Recompute recalcula el monto desde cantidad y tarifa.
func (it *InvoiceItem) Recompute() {
	it.Quantity = it.Quantity.Round(billing.QuantityScale)
	it.AmountCents = billing.LineAmountCents(it.Quantity, it.RateCents)
}

// SetQuantityFromSeconds reemplaza la cantidad con las horas del conjunto completo de entradas enlazadas.
func (it *InvoiceItem) SetQuantityFromSeconds(totalSeconds int64) {
	it.Quantity = billing.QuantityFromSeconds(totalSeconds)
	it.AmountCents = billing.LineAmountCents(it.Quantity, it.RateCents)
}

// InvoiceTimeEntry es la fila de enlace: una entrada de tiempo aparece a lo sumo
// una vez en toda la instancia (UNIQUE time_entry_id).
type InvoiceTimeEntry struct {
	InvoiceID     string
	TimeEntryID   string
	InvoiceItemID *string
	CreatedAt     time.Time
}

// BilledTimeEntry identifica una entrada ya facturada y la factura que la contiene.
type BilledTimeEntry struct {
	TimeEntryID   string
	InvoiceID     string
	InvoiceNumber string
}
