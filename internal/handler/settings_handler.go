package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettingsResponse struct {
	Currency    string `json:"currency"`
	PointsPrice string `json:"points_price"`
}

type SetPointsPriceRequest struct {
	PointsPrice string `json:"points_price" binding:"required"` // Decimal string, 0 disables points
}

type SettingsHandler struct {
	settings service.SettingsProvider
}

func NewSettingsHandler(settings service.SettingsProvider) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) RegisterRoutes(router *gin.RouterGroup) {
	settings := router.Group("/settings")
	{
		settings.GET("", h.GetSettings)
		settings.PUT("/points-price", middleware.RequireRole(model.RoleAdmin), h.SetPointsPrice)
	}
}

// GetSettings returns the company settings used for postings
// @Summary      Get settings
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=handler.SettingsResponse}
// @Router       /api/settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, toSettingsResponse(settings)))
}

// SetPointsPrice changes the money value of one loyalty point
// @Summary      Set points price
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      handler.SetPointsPriceRequest  true  "Points Price Payload"
// @Success      200      {object}  response.Response{data=handler.SettingsResponse}
// @Failure      403      {object}  response.Response
// @Router       /api/settings/points-price [put]
func (h *SettingsHandler) SetPointsPrice(c *gin.Context) {
	var req SetPointsPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	settings, err := h.settings.SetPointsPrice(c.Request.Context(), callerOf(c), req.PointsPrice)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, toSettingsResponse(settings)))
}

func toSettingsResponse(s model.Settings) SettingsResponse {
	return SettingsResponse{
		Currency:    s.Currency,
		PointsPrice: s.PointsPrice.String(),
	}
}
