package handlers

import (
	"net/http"

	"gstledger/internal/common"
	"gstledger/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// InvoiceHandlers handles HTTP requests for invoices
type InvoiceHandlers struct {
	invoiceService services.InvoiceServiceInterface
	logger         *zap.Logger
}

func NewInvoiceHandlers(invoiceService services.InvoiceServiceInterface, logger *zap.Logger) *InvoiceHandlers {
	return &InvoiceHandlers{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// CreateInvoice handles POST /orders/:id/invoices
//
//	@Summary	Generate an invoice for an order, superseding earlier ones
//	@Tags		invoices
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Order ID"
//	@Success	201	{object}	map[string]interface{}
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	404	{object}	common.ErrorResponse
//	@Failure	417	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/orders/{id}/invoices [post]
func (h *InvoiceHandlers) CreateInvoice(c echo.Context) error {
	orderID, err := common.ValidateUUID(c.Param("id"), "order id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.GenerateInvoice(c.Request().Context(), orderID)
	if err != nil {
		return common.SendDomainError(c, h.logger, "create invoice", err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"invoice": invoice})
}

// DeleteInvoice handles DELETE /invoices/:id
//
//	@Summary	Soft-delete an invoice
//	@Tags		invoices
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Invoice ID"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	404	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/invoices/{id} [delete]
func (h *InvoiceHandlers) DeleteInvoice(c echo.Context) error {
	invoiceID, err := common.ValidateUUID(c.Param("id"), "invoice id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.DeleteInvoice(c.Request().Context(), invoiceID)
	if err != nil {
		return common.SendDomainError(c, h.logger, "delete invoice", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"invoice": invoice})
}

// GetInvoice handles GET /invoices/:id
//
//	@Summary	Get an invoice
//	@Tags		invoices
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Invoice ID"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	404	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/invoices/{id} [get]
func (h *InvoiceHandlers) GetInvoice(c echo.Context) error {
	invoiceID, err := common.ValidateUUID(c.Param("id"), "invoice id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request().Context(), invoiceID)
	if err != nil {
		return common.SendDomainError(c, h.logger, "get invoice", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"invoice": invoice})
}

// ListInvoices handles GET /invoices
//
//	@Summary	List live invoices
//	@Tags		invoices
//	@Produce	json
//	@Security	BearerAuth
//	@Param		limit	query		int		false	"Page size (default 50, max 1000)"
//	@Param		offset	query		int		false	"Rows to skip"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/invoices [get]
func (h *InvoiceHandlers) ListInvoices(c echo.Context) error {
	limit, offset, err := paginationFromQuery(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoices, err := h.invoiceService.ListInvoices(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendDomainError(c, h.logger, "list invoices", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"limit":    limit,
		"offset":   offset,
	})
}

// GenerateInvoicePDF handles POST /invoices/:id/pdf
//
//	@Summary	Render the invoice as PDF and return a download link
//	@Tags		invoices
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Invoice ID"
//	@Success	201	{object}	services.InvoiceDocument
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	404	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/invoices/{id}/pdf [post]
func (h *InvoiceHandlers) GenerateInvoicePDF(c echo.Context) error {
	invoiceID, err := common.ValidateUUID(c.Param("id"), "invoice id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	doc, err := h.invoiceService.GenerateInvoicePDF(c.Request().Context(), invoiceID)
	if err != nil {
		return common.SendDomainError(c, h.logger, "generate invoice pdf", err)
	}
	return c.JSON(http.StatusCreated, doc)
}
