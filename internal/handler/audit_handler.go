package handler

import (
	"distribuidora/internal/middleware"
	"distribuidora/internal/model"
	"distribuidora/internal/service"
	"distribuidora/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(middleware.RequireRole(model.RoleAdmin))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns audit rows newest first with their users preloaded
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        action  query     string  false  "Only this action, e.g. CREATE_ORDER"
// @Success      200    {object}  response.Response{data=pagination.Result[model.AuditLog]}
// @Router       /audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), toPage(p), c.Query("action"))
	if err != nil {
		respondError(c, "GetAuditLogs", err)
		return
	}
	paged(c, logs, total, p)
}
