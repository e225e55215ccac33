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

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderHandler struct {
	orderService  service.OrderService
	reportService service.ReportService
	loc           *time.Location
}

// NewOrderHandler wires the order endpoints. loc is the business time zone used for date filters.
func NewOrderHandler(orderService service.OrderService, reportService service.ReportService, loc *time.Location) *OrderHandler {
	return &OrderHandler{orderService: orderService, reportService: reportService, loc: loc}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	orders.Use(middleware.RequireRole())
	{
		orders.GET("", h.ListOrders)
		orders.GET("/statistics", h.Statistics)
		orders.GET("/day-summary", h.DaySummary)
		orders.GET("/day-summary/export", h.ExportDaySummary)
		orders.GET("/:id", h.GetOrder)
		orders.POST("", h.CreateOrder)
		orders.PUT("/:id", h.UpdateOrder)
		orders.PATCH("/:id/status", h.ChangeStatus)
		orders.DELETE("/:id", h.DeleteOrder)
	}
}

// CreateOrder handles POST /orders
// @Summary      Create order
// @Description  Numbers the order PED-YYYYMMDD-NNN and takes its quantities out of stock atomically
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateOrderRequest  true  "Order"
// @Success      201      {object}  response.Response{data=model.Order}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response "Insufficient stock, details carry product_id, available and requested"
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, "CreateOrder", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders handles GET /orders
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        customer_id  query     int     false  "Customer ID"
// @Param        status       query     string  false  "pending, delivered or cancelled"
// @Param        from         query     string  false  "First day, YYYY-MM-DD"
// @Param        to           query     string  false  "Last day, YYYY-MM-DD"
// @Param        search       query     string  false  "Order number or customer name"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=pagination.Result[model.Order]}
// @Failure      400          {object}  response.Response
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)
	customerID, ok := optionalUintQuery(c, "customer_id")
	if !ok {
		return
	}
	rng, ok := dateRangeQuery(c, h.loc)
	if !ok {
		return
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), repository.OrderFilter{
		Page:       toPage(p),
		CustomerID: customerID,
		Status:     c.Query("status"),
		From:       rng.From,
		To:         rng.To,
		Search:     strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, "ListOrders", err)
		return
	}
	paged(c, orders, total, p)
}

// GetOrder handles GET /orders/:id
// @Summary      Get order
// @Description  Includes the pending returns of the order's customer
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderDetail}
// @Failure      404  {object}  response.Response
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "GetOrder", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// UpdateOrder handles PUT /orders/:id
// @Summary      Update a pending order
// @Description  Present fields are changed; lines, when given, replace every line and rebalance stock
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                         true  "Order ID"
// @Param        payload  body      service.UpdateOrderRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Order}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /orders/{id} [put]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, "UpdateOrder", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ChangeStatus handles PATCH /orders/:id/status
// @Summary      Change order status
// @Description  Cancelling returns the goods to stock; leaving cancelled takes them out again
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                              true  "Order ID"
// @Param        payload  body      service.ChangeOrderStatusRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=model.Order}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /orders/{id}/status [patch]
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.ChangeOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orderService.ChangeStatus(c.Request.Context(), actorFrom(c), id, req.Status)
	if err != nil {
		respondError(c, "ChangeStatus", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// DeleteOrder handles DELETE /orders/:id
// @Summary      Delete a pending order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, "DeleteOrder", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Order deleted successfully"))
}

// Statistics handles GET /orders/statistics
// @Summary      Order statistics
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     string  false  "First day, YYYY-MM-DD"
// @Param        to    query     string  false  "Last day, YYYY-MM-DD"
// @Success      200   {object}  response.Response{data=model.OrderStatistics}
// @Router       /orders/statistics [get]
func (h *OrderHandler) Statistics(c *gin.Context) {
	rng, ok := dateRangeQuery(c, h.loc)
	if !ok {
		return
	}

	stats, err := h.orderService.Statistics(c.Request.Context(), rng)
	if err != nil {
		respondError(c, "Statistics", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// DaySummary handles GET /orders/day-summary
// @Summary      Orders of a day grouped by customer
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        date  query     string  false  "YYYY-MM-DD, default today"
// @Success      200   {object}  response.Response{data=model.DaySummary}
// @Failure      400   {object}  response.Response
// @Router       /orders/day-summary [get]
func (h *OrderHandler) DaySummary(c *gin.Context) {
	summary, err := h.reportService.DaySummary(c.Request.Context(), c.Query("date"))
	if err != nil {
		respondError(c, "DaySummary", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// ExportDaySummary handles GET /orders/day-summary/export
// @Summary      Download the day summary as xlsx
// @Tags         orders
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        date  query     string  false  "YYYY-MM-DD, default today"
// @Success      200   {file}    file
// @Failure      400   {object}  response.Response
// @Router       /orders/day-summary/export [get]
func (h *OrderHandler) ExportDaySummary(c *gin.Context) {
	data, filename, err := h.reportService.ExportDaySummary(c.Request.Context(), c.Query("date"))
	if err != nil {
		respondError(c, "ExportDaySummary", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
