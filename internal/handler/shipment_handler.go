package handler

import (
	"net/http"

	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type ShipmentHandler struct {
	shipmentService service.ShipmentService
	rateService     service.RateService
}

func NewShipmentHandler(shipmentService service.ShipmentService, rateService service.RateService) *ShipmentHandler {
	return &ShipmentHandler{
		shipmentService: shipmentService,
		rateService:     rateService,
	}
}

func (h *ShipmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	shipments := router.Group("/shipments")
	{
		shipments.POST("", h.CreateShipment)
		shipments.PUT("/:id/rates", h.ChangeRates)
		shipments.PUT("/:id/status", h.ChangeStatus)
	}
}

// CreateShipment opens a shipment with default rates
// @Summary      Create shipment
// @Description  Creates a shipment with default per-kg and per-cbm rates
// @Tags         shipments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateShipmentRequest  true  "Create Shipment Payload"
// @Success      201      {object}  response.Response{data=service.ShipmentResponse}
// @Failure      422      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/shipments [post]
func (h *ShipmentHandler) CreateShipment(c *gin.Context) {
	var req service.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	shipment, err := h.shipmentService.CreateShipment(c.Request.Context(), callerOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, shipment))
}

// ChangeRates changes the shipment default rates and reprices eligible orders
// @Summary      Change shipment rates
// @Description  Updates default rates and carries the change to orders still priced at the old default. Rejected with 409 while any order of the shipment is on a live invoice.
// @Tags         shipments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Shipment ID"
// @Param        payload  body      service.ChangeRatesRequest  true  "Change Rates Payload"
// @Success      200      {object}  response.Response{data=service.ChangeRatesResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/shipments/{id}/rates [put]
func (h *ShipmentHandler) ChangeRates(c *gin.Context) {
	var req service.ChangeRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	res, err := h.rateService.ChangeShipmentRates(c.Request.Context(), callerOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ChangeStatus moves the shipment and its orders to a new stage
// @Summary      Change shipment status
// @Description  Moves the shipment and every order that may follow it. Orders that cannot transition are reported as skipped.
// @Tags         shipments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                               true  "Shipment ID"
// @Param        payload  body      service.ChangeShipmentStatusRequest  true  "Change Status Payload"
// @Success      200      {object}  response.Response{data=service.ShipmentStatusResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/shipments/{id}/status [put]
func (h *ShipmentHandler) ChangeStatus(c *gin.Context) {
	var req service.ChangeShipmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	res, err := h.shipmentService.ChangeStatus(c.Request.Context(), callerOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
