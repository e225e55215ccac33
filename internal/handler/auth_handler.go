package handler

import (
	"net/http"

	"distribuidora/internal/middleware"
	"distribuidora/internal/service"
	"distribuidora/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService service.UserService
	loginLimit  gin.HandlerFunc
}

// NewAuthHandler wires the session endpoints. loginLimit may be nil.
func NewAuthHandler(userService service.UserService, loginLimit gin.HandlerFunc) *AuthHandler {
	return &AuthHandler{userService: userService, loginLimit: loginLimit}
}

// RegisterRoutes mounts /auth under router
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		if h.loginLimit != nil {
			auth.POST("/login", h.loginLimit, h.Login)
		} else {
			auth.POST("/login", h.Login)
		}
		auth.POST("/refresh", h.RefreshToken)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", middleware.RequireRole(), h.GetMe)
		auth.PUT("/password", middleware.RequireRole(), h.ChangePassword)
	}
}

// Login handles POST /auth/login to authenticate and return a JWT token
// @Summary      Login user
// @Description  Authenticates a user by email and password, returning an access and a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginUserRequest   true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tokenRes, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Login", err)
		return
	}

	middleware.SetTokenCookies(c, tokenRes.Token, tokenRes.RefreshToken)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// RefreshToken handles POST /auth/refresh to rotate the token pair
// @Summary      Refresh token
// @Description  Exchanges a refresh token (cookie or body) for a new access and refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RefreshTokenRequest   false  "Refresh Token"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// Try reading refresh_token from cookie first, fallback to body
	req := service.RefreshTokenRequest{RefreshToken: middleware.RefreshTokenFromCookie(c)}
	if req.RefreshToken == "" {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	tokenRes, err := h.userService.RefreshToken(c.Request.Context(), req)
	if err != nil {
		respondError(c, "RefreshToken", err)
		return
	}

	middleware.SetTokenCookies(c, tokenRes.Token, tokenRes.RefreshToken)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Logout handles POST /auth/logout: revokes the refresh token and clears auth cookies
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := middleware.RefreshTokenFromCookie(c)
	if refreshToken == "" {
		var req service.RefreshTokenRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}

	if refreshToken != "" {
		if err := h.userService.Logout(c.Request.Context(), refreshToken); err != nil {
			respondError(c, "Logout", err)
			return
		}
	}

	middleware.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// GetMe handles GET /auth/me to return the authenticated user
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      401      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.userService.Me(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, "GetMe", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ChangePassword handles PUT /auth/password
// @Summary      Change own password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ChangePasswordRequest  true  "Current and new password"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.ChangeOwnPassword(c.Request.Context(), actorFrom(c), req); err != nil {
		respondError(c, "ChangePassword", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Password updated"))
}
