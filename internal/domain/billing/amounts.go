// Package billing contiene la aritmética monetaria de facturación (servicio de dominio).
// Los montos son enteros en centavos; cantidades y porcentajes son decimales.
package billing

import "github.com/shopspring/decimal"

// QuantityScale es la escala de invoice_items.quantity (numeric(12,4)).
const QuantityScale = 4

// TaxRateScale es la escala de invoices.tax_rate_percent (numeric(7,4)).
const TaxRateScale = 4

var (
	secondsPerHour = decimal.NewFromInt(3600)
	hundred        = decimal.NewFromInt(100)
)

// QuantityFromSeconds convierte segundos a horas redondeadas a QuantityScale decimales.
func QuantityFromSeconds(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(secondsPerHour).Round(QuantityScale)
}

// LineAmountCents = round(quantity * rateCents), redondeo half away from zero.
func LineAmountCents(quantity decimal.Decimal, rateCents int64) int64 {
	return quantity.Mul(decimal.NewFromInt(rateCents)).Round(0).IntPart()
}

// TimeEntryAmountCents = round(seconds/3600 * rateCents), calculado sin redondeo intermedio.
func TimeEntryAmountCents(seconds, rateCents int64) int64 {
	return decimal.NewFromInt(seconds).Mul(decimal.NewFromInt(rateCents)).Div(secondsPerHour).Round(0).IntPart()
}

// Totals son los cuatro campos derivados de una factura (el porcentaje es entrada).
type Totals struct {
	SubtotalCents  int64
	TaxRatePercent decimal.Decimal
	TaxAmountCents int64
	TotalCents     int64
}

// ComputeTotals:
// subtotal = Σ amount; tax = round(subtotal * pct / 100); total = subtotal + tax.
func ComputeTotals(itemAmounts []int64, taxRatePercent decimal.Decimal) Totals {
	var subtotal int64
	for _, a := range itemAmounts {
		subtotal += a
	}
	tax := decimal.NewFromInt(subtotal).Mul(taxRatePercent).Div(hundred).Round(0).IntPart()
	return Totals{
		SubtotalCents:  subtotal,
		TaxRatePercent: taxRatePercent,
		TaxAmountCents: tax,
		TotalCents:     subtotal + tax,
	}
}

// ValidTaxRate indica si el porcentaje está en [0, 100].
func ValidTaxRate(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred)
}
