package handler

import (
	"net/http"
	"strconv"
	"strings"

	"distribuidora/internal/middleware"
	"distribuidora/internal/repository"
	"distribuidora/internal/service"
	"distribuidora/pkg/pagination"
	"distribuidora/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	products.Use(middleware.RequireRole())
	{
		products.GET("", h.ListProducts)
		products.GET("/active", h.ListActive)
		products.GET("/low-stock", h.LowStock)
		products.GET("/units", h.Units)
		products.GET("/top-selling", h.TopSelling)
		products.GET("/:id", h.GetProduct)
		products.GET("/:id/movements", h.Movements)
		products.POST("", h.CreateProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.PATCH("/:id/adjust-stock", h.AdjustStock)
		products.PATCH("/:id/toggle-active", h.ToggleActive)
		products.DELETE("/:id", h.DeleteProduct)
	}
}

// ListProducts handles GET /products
// @Summary      List products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        search     query     string  false  "Matches name or code"
// @Param        unit       query     string  false  "Unit of measure"
// @Param        active     query     bool    false  "Active flag"
// @Param        low_stock  query     bool    false  "Only products at or below their minimum"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=pagination.Result[model.Product]}
// @Router       /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	p := pagination.Parse(c)
	active, ok := optionalBoolQuery(c, "active")
	if !ok {
		return
	}
	lowStock, ok := optionalBoolQuery(c, "low_stock")
	if !ok {
		return
	}

	filter := repository.ProductFilter{
		Page:   toPage(p),
		Search: strings.TrimSpace(c.Query("search")),
		Unit:   c.Query("unit"),
		Active: active,
	}
	if lowStock != nil {
		filter.LowStock = *lowStock
	}

	products, total, err := h.productService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "ListProducts", err)
		return
	}
	paged(c, products, total, p)
}

// ListActive handles GET /products/active
// @Summary      List active products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Product}
// @Router       /products/active [get]
func (h *ProductHandler) ListActive(c *gin.Context) {
	products, err := h.productService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, "ListActive", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// GetProduct handles GET /products/:id
// @Summary      Get product with sales summary
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductDetail}
// @Failure      404  {object}  response.Response
// @Router       /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, "GetProduct", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// CreateProduct handles POST /products
// @Summary      Create product
// @Description  Initial stock is recorded as a manual stock movement
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProductRequest  true  "Product"
// @Success      201      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, "CreateProduct", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct handles PUT /products/:id
// @Summary      Update product
// @Description  Stock is not editable here; use adjust-stock
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                           true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Product"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, "UpdateProduct", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// AdjustStock handles PATCH /products/:id/adjust-stock
// @Summary      Adjust stock manually
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                         true  "Product ID"
// @Param        payload  body      service.AdjustStockRequest  true  "Operation and quantity"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /products/{id}/adjust-stock [patch]
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.productService.AdjustStock(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, "AdjustStock", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// ToggleActive handles PATCH /products/:id/toggle-active
// @Summary      Activate or deactivate a product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  response.Response{data=model.Product}
// @Router       /products/{id}/toggle-active [patch]
func (h *ProductHandler) ToggleActive(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.ToggleActive(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, "ToggleActive", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct handles DELETE /products/:id
// @Summary      Delete product
// @Description  Refused when order or return lines reference the product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, "DeleteProduct", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Product deleted successfully"))
}

type lowStockItem struct {
	ID           uint   `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	StockOnHand  int    `json:"stock_on_hand"`
	StockMinimum int    `json:"stock_minimum"`
	State        string `json:"state"`
}

// LowStock handles GET /products/low-stock
// @Summary      Products at or below their minimum
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]lowStockItem}
// @Router       /products/low-stock [get]
func (h *ProductHandler) LowStock(c *gin.Context) {
	products, err := h.productService.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, "LowStock", err)
		return
	}

	items := make([]lowStockItem, 0, len(products))
	for _, p := range products {
		item := lowStockItem{
			ID:           p.ID,
			Name:         p.Name,
			Unit:         p.Unit,
			StockOnHand:  p.StockOnHand,
			StockMinimum: p.StockMinimum,
			State:        p.StockState(),
		}
		if p.Code != nil {
			item.Code = *p.Code
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Units handles GET /products/units
// @Summary      Units of measure
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]string}
// @Router       /products/units [get]
func (h *ProductHandler) Units(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.productService.Units()))
}

// TopSelling handles GET /products/top-selling
// @Summary      Best selling products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "How many products (default 10)"
// @Success      200    {object}  response.Response{data=[]model.ProductSales}
// @Router       /products/top-selling [get]
func (h *ProductHandler) TopSelling(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if limit > pagination.MaxLimit {
		limit = pagination.MaxLimit
	}

	sales, err := h.productService.TopSelling(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "TopSelling", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sales))
}

// Movements handles GET /products/:id/movements
// @Summary      Stock movement history of a product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int  true   "Product ID"
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Result[model.StockMovement]}
// @Router       /products/{id}/movements [get]
func (h *ProductHandler) Movements(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	movements, total, err := h.productService.Movements(c.Request.Context(), id, toPage(p))
	if err != nil {
		respondError(c, "Movements", err)
		return
	}
	paged(c, movements, total, p)
}
