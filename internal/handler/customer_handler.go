package handler

import (
	"net/http"
	"strings"

	"distribuidora/internal/middleware"
	"distribuidora/internal/repository"
	"distribuidora/internal/service"
	"distribuidora/pkg/pagination"
	"distribuidora/pkg/response"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/customers")
	customers.Use(middleware.RequireRole())
	{
		customers.GET("", h.ListCustomers)
		customers.GET("/active", h.ListActive)
		customers.GET("/zones", h.Zones)
		customers.GET("/cities", h.Cities)
		customers.GET("/statistics", h.Statistics)
		customers.GET("/:id", h.GetCustomer)
		customers.GET("/:id/orders", h.OrderHistory)
		customers.GET("/:id/returns", h.ReturnHistory)
		customers.POST("", h.CreateCustomer)
		customers.PUT("/:id", h.UpdateCustomer)
		customers.PATCH("/:id/toggle-active", h.ToggleActive)
		customers.DELETE("/:id", h.DeleteCustomer)
	}
}

// ListCustomers handles GET /customers
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Matches name, mobile or address"
// @Param        zone    query     string  false  "Zone"
// @Param        city    query     string  false  "City"
// @Param        active  query     bool    false  "Active flag"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=pagination.Result[model.Customer]}
// @Router       /customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	p := pagination.Parse(c)
	active, ok := optionalBoolQuery(c, "active")
	if !ok {
		return
	}

	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), repository.CustomerFilter{
		Page:   toPage(p),
		Search: strings.TrimSpace(c.Query("search")),
		Zone:   c.Query("zone"),
		City:   c.Query("city"),
		Active: active,
	})
	if err != nil {
		respondError(c, "ListCustomers", err)
		return
	}
	paged(c, customers, total, p)
}

// ListActive handles GET /customers/active, the unpaginated list used by selectors
// @Summary      List active customers
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Customer}
// @Router       /customers/active [get]
func (h *CustomerHandler) ListActive(c *gin.Context) {
	customers, err := h.customerService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, "ListActive", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customers))
}

// GetCustomer handles GET /customers/:id
// @Summary      Get customer with statistics
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Customer ID"
// @Success      200  {object}  response.Response{data=service.CustomerDetail}
// @Failure      404  {object}  response.Response
// @Router       /customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, "GetCustomer", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// CreateCustomer handles POST /customers
// @Summary      Create customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CustomerRequest  true  "Customer"
// @Success      201      {object}  response.Response{data=model.Customer}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, "CreateCustomer", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// UpdateCustomer handles PUT /customers/:id
// @Summary      Update customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                      true  "Customer ID"
// @Param        payload  body      service.CustomerRequest  true  "Customer"
// @Success      200      {object}  response.Response{data=model.Customer}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /customers/{id} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, "UpdateCustomer", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// ToggleActive handles PATCH /customers/:id/toggle-active
// @Summary      Activate or deactivate a customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Customer ID"
// @Success      200  {object}  response.Response{data=model.Customer}
// @Router       /customers/{id}/toggle-active [patch]
func (h *CustomerHandler) ToggleActive(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	customer, err := h.customerService.ToggleActive(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, "ToggleActive", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// DeleteCustomer handles DELETE /customers/:id
// @Summary      Delete customer
// @Description  Refused when the customer has orders or returns; deactivate instead
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Customer ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.customerService.DeleteCustomer(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, "DeleteCustomer", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Customer deleted successfully"))
}

// OrderHistory handles GET /customers/:id/orders
// @Summary      Customer order history
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int  true   "Customer ID"
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Result[model.Order]}
// @Router       /customers/{id}/orders [get]
func (h *CustomerHandler) OrderHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	orders, total, err := h.customerService.OrderHistory(c.Request.Context(), id, toPage(p))
	if err != nil {
		respondError(c, "OrderHistory", err)
		return
	}
	paged(c, orders, total, p)
}

// ReturnHistory handles GET /customers/:id/returns
// @Summary      Customer return history
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int  true   "Customer ID"
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Result[model.Return]}
// @Router       /customers/{id}/returns [get]
func (h *CustomerHandler) ReturnHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	returns, total, err := h.customerService.ReturnHistory(c.Request.Context(), id, toPage(p))
	if err != nil {
		respondError(c, "ReturnHistory", err)
		return
	}
	paged(c, returns, total, p)
}

// Zones handles GET /customers/zones
// @Summary      Distinct customer zones
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]string}
// @Router       /customers/zones [get]
func (h *CustomerHandler) Zones(c *gin.Context) {
	zones, err := h.customerService.Zones(c.Request.Context())
	if err != nil {
		respondError(c, "Zones", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, zones))
}

// Cities handles GET /customers/cities
// @Summary      Distinct customer cities
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]string}
// @Router       /customers/cities [get]
func (h *CustomerHandler) Cities(c *gin.Context) {
	cities, err := h.customerService.Cities(c.Request.Context())
	if err != nil {
		respondError(c, "Cities", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cities))
}

// Statistics handles GET /customers/statistics
// @Summary      Customer counts
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.CustomerCounts}
// @Router       /customers/statistics [get]
func (h *CustomerHandler) Statistics(c *gin.Context) {
	counts, err := h.customerService.Counts(c.Request.Context())
	if err != nil {
		respondError(c, "Statistics", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, counts))
}
