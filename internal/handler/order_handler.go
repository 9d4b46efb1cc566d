package handler

import (
	"net/http"

	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id/status", h.ChangeStatus)
		orders.PUT("/:id/rate", h.SetRate)
		orders.POST("/:id/adjustments", h.AddAdjustment)
		orders.DELETE("/:id/adjustments/:adjustmentId", h.RemoveAdjustment)
	}
}

// CreateOrder prices and stores a new order in a shipment
// @Summary      Create order
// @Description  Creates an order priced from the shipment default rates unless rate overrides are given
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateOrderRequest  true  "Create Order Payload"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      422      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), callerOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// GetOrder returns one order with its adjustments
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), callerOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ChangeStatus moves an order through fulfillment and posts the matching charge or reversal
// @Summary      Change order status
// @Description  Entering a received status charges the customer, leaving it reverses the charge
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Order ID"
// @Param        payload  body      service.ChangeOrderStatusRequest  true  "Change Status Payload"
// @Success      200      {object}  response.Response{data=service.OrderChangeResponse}
// @Failure      409      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/orders/{id}/status [put]
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	var req service.ChangeOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	res, err := h.orderService.ChangeStatus(c.Request.Context(), callerOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// SetRate sets a custom rate on one order
// @Summary      Set order rate
// @Description  Overrides the order rates, reprices it and posts the delta when the order holds a charge
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Order ID"
// @Param        payload  body      service.SetOrderRateRequest  true  "Set Rate Payload"
// @Success      200      {object}  response.Response{data=service.OrderChangeResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/rate [put]
func (h *OrderHandler) SetRate(c *gin.Context) {
	var req service.SetOrderRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	res, err := h.orderService.SetOrderRate(c.Request.Context(), callerOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// AddAdjustment adds a cost or discount line to an order
// @Summary      Add order adjustment
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Order ID"
// @Param        payload  body      service.AdjustmentRequest  true  "Adjustment Payload"
// @Success      201      {object}  response.Response{data=service.OrderChangeResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/orders/{id}/adjustments [post]
func (h *OrderHandler) AddAdjustment(c *gin.Context) {
	var req service.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	res, err := h.orderService.AddAdjustment(c.Request.Context(), callerOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// RemoveAdjustment deletes an adjustment line from an order
// @Summary      Remove order adjustment
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id            path      string  true  "Order ID"
// @Param        adjustmentId  path      string  true  "Adjustment ID"
// @Success      200           {object}  response.Response{data=service.OrderChangeResponse}
// @Failure      404           {object}  response.Response
// @Failure      409           {object}  response.Response
// @Router       /api/orders/{id}/adjustments/{adjustmentId} [delete]
func (h *OrderHandler) RemoveAdjustment(c *gin.Context) {
	res, err := h.orderService.RemoveAdjustment(c.Request.Context(), callerOf(c), c.Param("id"), c.Param("adjustmentId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
