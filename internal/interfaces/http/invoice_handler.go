package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Tiempo-api/internal/application/billing"
	"github.com/jhoicas/Tiempo-api/internal/application/dto"
)

// InvoiceHandler maneja las peticiones HTTP de facturación. Toda mutación devuelve
// la factura completa con totales recalculados.
type InvoiceHandler struct {
	engine *billing.Engine
	pdf    *billing.PDFUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(engine *billing.Engine, pdf *billing.PDFUseCase) *InvoiceHandler {
	return &InvoiceHandler{engine: engine, pdf: pdf}
}

// Create godoc
// @Summary      Crear factura en borrador
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateInvoiceRequest  true  "cliente, fechas, impuesto"
// @Success      201   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.engine.CreateInvoice(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar facturas del equipo
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        status     query  string  false  "DRAFT, SENT, PAID, CANCELLED"
// @Param        client_id  query  string  false  "cliente"
// @Param        from       query  string  false  "issue_date desde (YYYY-MM-DD)"
// @Param        to         query  string  false  "issue_date hasta (YYYY-MM-DD)"
// @Param        order_by   query  string  false  "number, status, issue_date, due_date, total_cents, created_at"
// @Success      200  {object}  dto.ListResponse[dto.InvoiceResponse]
// @Router       /api/invoices [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	var in dto.ListInvoicesRequest
	if err := c.QueryParser(&in); err != nil {
		return invalidQuery(c)
	}
	out, err := h.engine.ListInvoices(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByID obtiene la factura con ítems y entradas enlazadas.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.engine.GetInvoiceWithItems(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Update PATCH /api/invoices/:id
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.engine.UpdateInvoice(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Delete DELETE /api/invoices/:id. Solo borradores.
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	if err := h.engine.DeleteInvoice(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddItem POST /api/invoices/:id/items
func (h *InvoiceHandler) AddItem(c *fiber.Ctx) error {
	var in dto.AddInvoiceItemRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.engine.AddInvoiceItem(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdateItem PATCH /api/invoices/:id/items/:itemId
func (h *InvoiceHandler) UpdateItem(c *fiber.Ctx) error {
	var in dto.UpdateInvoiceItemRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.engine.UpdateInvoiceItem(c.UserContext(), c.Params("id"), c.Params("itemId"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// DeleteItem DELETE /api/invoices/:id/items/:itemId
func (h *InvoiceHandler) DeleteItem(c *fiber.Ctx) error {
	out, err := h.engine.DeleteInvoiceItem(c.UserContext(), c.Params("id"), c.Params("itemId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// AddTimeEntries godoc
// @Summary      Enlazar entradas de tiempo a un ítem
// @Description  Una entrada ya facturada en otra factura devuelve 409 TIME_ENTRY_ALREADY_BILLED.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.AddTimeEntriesRequest  true  "ids de entradas"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/items/{itemId}/time-entries [post]
func (h *InvoiceHandler) AddTimeEntries(c *fiber.Ctx) error {
	var in dto.AddTimeEntriesRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.engine.AddTimeEntriesToInvoiceItem(c.UserContext(), c.Params("id"), c.Params("itemId"), in.TimeEntryIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// RemoveTimeEntry DELETE /api/invoices/:id/time-entries/:timeEntryId
func (h *InvoiceHandler) RemoveTimeEntry(c *fiber.Ctx) error {
	out, err := h.engine.RemoveTimeEntryFromInvoice(c.UserContext(), c.Params("id"), c.Params("timeEntryId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Recalculate POST /api/invoices/:id/recalculate
func (h *InvoiceHandler) Recalculate(c *fiber.Ctx) error {
	out, err := h.engine.RecalculateInvoiceTotals(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Send POST /api/invoices/:id/send
func (h *InvoiceHandler) Send(c *fiber.Ctx) error {
	out, err := h.engine.SendInvoice(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Pay POST /api/invoices/:id/pay
func (h *InvoiceHandler) Pay(c *fiber.Ctx) error {
	out, err := h.engine.MarkInvoicePaid(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Cancel POST /api/invoices/:id/cancel. Libera las entradas enlazadas.
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	out, err := h.engine.CancelInvoice(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// DownloadPDF godoc
// @Summary      Descargar factura en PDF
// @Tags         invoices
// @Produce      application/pdf
// @Security     BearerAuth
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	body, filename, err := h.pdf.DownloadInvoicePDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(body)
}
