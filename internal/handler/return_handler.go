package handler

import (
	"net/http"
	"strings"
	"time"

	"distribuidora/internal/middleware"
	"distribuidora/internal/repository"
	"distribuidora/internal/service"
	"distribuidora/pkg/pagination"
	"distribuidora/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReturnHandler struct {
	returnService service.ReturnService
	loc           *time.Location
}

func NewReturnHandler(returnService service.ReturnService, loc *time.Location) *ReturnHandler {
	return &ReturnHandler{returnService: returnService, loc: loc}
}

func (h *ReturnHandler) RegisterRoutes(router *gin.RouterGroup) {
	returns := router.Group("/returns")
	returns.Use(middleware.RequireRole())
	{
		returns.GET("", h.ListReturns)
		returns.GET("/pending", h.ListPending)
		returns.GET("/reasons", h.Reasons)
		returns.GET("/statistics", h.Statistics)
		returns.GET("/customer/:id/pending-alert", h.PendingAlert)
		returns.GET("/:id", h.GetReturn)
		returns.POST("", h.CreateReturn)
		returns.PUT("/:id", h.UpdateReturn)
		returns.PATCH("/:id/compensate", h.MarkCompensated)
		returns.DELETE("/:id", h.DeleteReturn)
	}
}

// CreateReturn handles POST /returns
// @Summary      Register a return
// @Description  Numbers the return DEV-YYYYMMDD-NNN and puts the returned goods back into stock
// @Tags         returns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateReturnRequest  true  "Return"
// @Success      201      {object}  response.Response{data=model.Return}
// @Failure      400      {object}  response.Response
// @Router       /returns [post]
func (h *ReturnHandler) CreateReturn(c *gin.Context) {
	var req service.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ret, err := h.returnService.CreateReturn(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, "CreateReturn", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, ret))
}

// ListReturns handles GET /returns
// @Summary      List returns
// @Tags         returns
// @Produce      json
// @Security     BearerAuth
// @Param        customer_id  query     int     false  "Customer ID"
// @Param        status       query     string  false  "pending or compensated"
// @Param        reason       query     string  false  "Return reason"
// @Param        from         query     string  false  "First day, YYYY-MM-DD"
// @Param        to           query     string  false  "Last day, YYYY-MM-DD"
// @Param        search       query     string  false  "Return number or customer name"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=pagination.Result[model.Return]}
// @Router       /returns [get]
func (h *ReturnHandler) ListReturns(c *gin.Context) {
	p := pagination.Parse(c)
	customerID, ok := optionalUintQuery(c, "customer_id")
	if !ok {
		return
	}
	rng, ok := dateRangeQuery(c, h.loc)
	if !ok {
		return
	}

	returns, total, err := h.returnService.ListReturns(c.Request.Context(), repository.ReturnFilter{
		Page:       toPage(p),
		CustomerID: customerID,
		Status:     c.Query("status"),
		Reason:     c.Query("reason"),
		From:       rng.From,
		To:         rng.To,
		Search:     strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, "ListReturns", err)
		return
	}
	paged(c, returns, total, p)
}

// ListPending handles GET /returns/pending
// @Summary      Pending returns
// @Tags         returns
// @Produce      json
// @Security     BearerAuth
// @Param        customer_id  query     int  false  "Customer ID"
// @Success      200          {object}  response.Response{data=[]model.Return}
// @Router       /returns/pending [get]
func (h *ReturnHandler) ListPending(c *gin.Context) {
	customerID, ok := optionalUintQuery(c, "customer_id")
	if !ok {
		return
	}

	returns, err := h.returnService.ListPending(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, "ListPending", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, returns))
}

// GetReturn handles GET /returns/:id
// @Summary      Get return
// @Tags         returns
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Return ID"
// @Success      200  {object}  response.Response{data=model.Return}
// @Failure      404  {object}  response.Response
// @Router       /returns/{id} [get]
func (h *ReturnHandler) GetReturn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ret, err := h.returnService.GetReturn(c.Request.Context(), id)
	if err != nil {
		respondError(c, "GetReturn", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ret))
}

// UpdateReturn handles PUT /returns/:id
// @Summary      Update a pending return
// @Tags         returns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                          true  "Return ID"
// @Param        payload  body      service.UpdateReturnRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Return}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /returns/{id} [put]
func (h *ReturnHandler) UpdateReturn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ret, err := h.returnService.UpdateReturn(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, "UpdateReturn", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ret))
}

// MarkCompensated handles PATCH /returns/:id/compensate
// @Summary      Mark a return compensated
// @Description  Links the order in which the customer was compensated
// @Tags         returns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                              true  "Return ID"
// @Param        payload  body      service.CompensateReturnRequest  true  "Compensating order"
// @Success      200      {object}  response.Response{data=model.Return}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /returns/{id}/compensate [patch]
func (h *ReturnHandler) MarkCompensated(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.CompensateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ret, err := h.returnService.MarkCompensated(c.Request.Context(), actorFrom(c), id, req.OrderID)
	if err != nil {
		respondError(c, "MarkCompensated", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ret))
}

// DeleteReturn handles DELETE /returns/:id
// @Summary      Delete a pending return
// @Description  Takes the returned goods back out of stock
// @Tags         returns
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Return ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /returns/{id} [delete]
func (h *ReturnHandler) DeleteReturn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.returnService.DeleteReturn(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, "DeleteReturn", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Return deleted successfully"))
}

// Reasons handles GET /returns/reasons
// @Summary      Return reasons with labels
// @Tags         returns
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.ReturnReason}
// @Router       /returns/reasons [get]
func (h *ReturnHandler) Reasons(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.returnService.Reasons()))
}

// Statistics handles GET /returns/statistics
// @Summary      Return statistics
// @Tags         returns
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     string  false  "First day, YYYY-MM-DD"
// @Param        to    query     string  false  "Last day, YYYY-MM-DD"
// @Success      200   {object}  response.Response{data=model.ReturnStatistics}
// @Router       /returns/statistics [get]
func (h *ReturnHandler) Statistics(c *gin.Context) {
	rng, ok := dateRangeQuery(c, h.loc)
	if !ok {
		return
	}

	stats, err := h.returnService.Statistics(c.Request.Context(), rng)
	if err != nil {
		respondError(c, "Statistics", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// PendingAlert handles GET /returns/customer/:id/pending-alert
// @Summary      Pending returns alert for a customer
// @Description  Shown while taking a new order so the seller can compensate
// @Tags         returns
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Customer ID"
// @Success      200  {object}  response.Response{data=service.PendingReturnAlert}
// @Failure      404  {object}  response.Response
// @Router       /returns/customer/{id}/pending-alert [get]
func (h *ReturnHandler) PendingAlert(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	alert, err := h.returnService.PendingAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, "PendingAlert", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, alert))
}
