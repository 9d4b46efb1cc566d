package handler

import (
	"net/http"

	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/invoices")
	{
		invoices.POST("", h.IssueInvoice)
		invoices.PUT("/:id/void", h.VoidInvoice)
	}
}

// IssueInvoice bills a customer for a set of orders
// @Summary      Issue invoice
// @Description  Creates an invoice with one line per order. Invoiced orders are locked against repricing until the invoice is voided.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.IssueInvoiceRequest  true  "Issue Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) IssueInvoice(c *gin.Context) {
	var req service.IssueInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	invoice, err := h.invoiceService.IssueInvoice(c.Request.Context(), callerOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// VoidInvoice voids an issued invoice and releases its orders
// @Summary      Void invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/void [put]
func (h *InvoiceHandler) VoidInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.VoidInvoice(c.Request.Context(), callerOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}
