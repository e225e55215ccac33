package handler

import (
	"net/http"

	"distribuidora/internal/middleware"
	"distribuidora/internal/model"
	"distribuidora/internal/service"
	"distribuidora/pkg/pagination"
	"distribuidora/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

// NewUserHandler sets up the routing dependencies for User endpoints
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes binds the admin-only user endpoints
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	users.Use(middleware.RequireRole(model.RoleAdmin))
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUserByID)
		users.POST("", h.CreateUser)
		users.PUT("/:id", h.UpdateUser)
		users.PUT("/:id/password", h.ResetPassword)
		users.PATCH("/:id/toggle-active", h.ToggleActive)
		users.DELETE("/:id", h.DeleteUser)
	}
}

// CreateUser handles POST /users
// @Summary      Create a new user
// @Description  Creates a user with a hashed password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateUserRequest  true  "Create User Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, "CreateUser", err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// ListUsers handles GET /users
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Result[service.UserResponse]}
// @Router       /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), toPage(p))
	if err != nil {
		respondError(c, "ListUsers", err)
		return
	}
	paged(c, users, total, p)
}

// GetUserByID handles GET /users/:id
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, "GetUserByID", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateUser handles PUT /users/:id
// @Summary      Update user
// @Description  Updates name, email or role. Admins cannot change their own role.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                        true  "User ID"
// @Param        payload  body      service.UpdateUserRequest  true  "Update User Payload"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Router       /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, "UpdateUser", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ResetPassword handles PUT /users/:id/password
// @Summary      Set a user's password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                           true  "User ID"
// @Param        payload  body      service.ResetPasswordRequest  true  "New password"
// @Success      200      {object}  response.Response
// @Router       /users/{id}/password [put]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), actorFrom(c), id, req); err != nil {
		respondError(c, "ResetPassword", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Password updated"))
}

// ToggleActive handles PATCH /users/:id/toggle-active
// @Summary      Activate or deactivate a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      400  {object}  response.Response
// @Router       /users/{id}/toggle-active [patch]
func (h *UserHandler) ToggleActive(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.ToggleActive(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, "ToggleActive", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// DeleteUser handles DELETE /users/:id
// @Summary      Delete user
// @Description  Refused for the caller's own account and for users that registered orders or returns
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, "DeleteUser", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "User deleted successfully"))
}
