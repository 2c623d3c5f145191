package billing

import (
	"context"
	"fmt"
)

// PDFUseCase genera la representación PDF de una factura.
type PDFUseCase struct {
	engine    *Engine
	generator InvoicePDFGenerator
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(engine *Engine, generator InvoicePDFGenerator) *PDFUseCase {
	return &PDFUseCase{engine: engine, generator: generator}
}

// DownloadInvoicePDF lee la factura completa (mismo acceso que GetInvoiceWithItems)
// y la renderiza. Devuelve los bytes y el nombre de archivo sugerido.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, invoiceID string) ([]byte, string, error) {
	doc, err := uc.engine.loadDocument(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}
	pdfBytes, err := uc.generator.GenerateInvoicePDF(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generate invoice %s: %w", doc.Invoice.Number, err)
	}
	return pdfBytes, fmt.Sprintf("invoice_%s.pdf", doc.Invoice.Number), nil
}
