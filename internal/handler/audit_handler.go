package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/service"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs", middleware.RequireRole(model.RoleAdmin, model.RoleAccountant))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit rows, newest first
// @Summary      Get audit logs
// @Description  Retrieves audit rows, optionally narrowed to one entity
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity_kind  query     string  false  "Entity kind (shipment, order, invoice, account, staff_expense)"
// @Param        entity_id    query     string  false  "Entity ID"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      403          {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), callerOf(c), service.AuditFilter{
		EntityKind: c.Query("entity_kind"),
		EntityID:   c.Query("entity_id"),
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": p.Meta(total),
	}))
}
