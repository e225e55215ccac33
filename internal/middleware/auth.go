package middleware

import (
	"net/http"
	"strings"
	"time"

	"distribuidora/pkg/response"
	"distribuidora/pkg/token"

	"github.com/gin-gonic/gin"
)

// Context keys set by RequireRole
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
	ContextUserName = "userName"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// CookieOptions controls how auth cookies are written.
type CookieOptions struct {
	Secure     bool // cross-site deployments need SameSite=None; Secure
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

var (
	issuer  *token.Issuer
	cookies = CookieOptions{AccessTTL: 24 * time.Hour, RefreshTTL: 7 * 24 * time.Hour}
)

// InitAuth sets the token issuer used to verify access tokens and the cookie policy.
func InitAuth(tokens *token.Issuer, opts CookieOptions) {
	issuer = tokens
	cookies = opts
}

func cookiePolicy() (http.SameSite, bool) {
	if cookies.Secure {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	sameSite, secure := cookiePolicy()
	c.SetSameSite(sameSite)
	c.SetCookie(accessCookie, accessToken, int(cookies.AccessTTL.Seconds()), "/", "", secure, true)
	c.SetCookie(refreshCookie, refreshToken, int(cookies.RefreshTTL.Seconds()), "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite, secure := cookiePolicy()
	c.SetSameSite(sameSite)
	c.SetCookie(accessCookie, "", -1, "/", "", secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", secure, true)
}

// RefreshTokenFromCookie returns the refresh token cookie, or "".
func RefreshTokenFromCookie(c *gin.Context) string {
	v, err := c.Cookie(refreshCookie)
	if err != nil {
		return ""
	}
	return v
}

// RequireRole validates the access token and checks that its role is one of allowedRoles.
// With no roles any authenticated user passes.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(accessCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		if issuer == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Authentication is not configured"))
			return
		}

		claims, err := issuer.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
			return
		}

		if len(allowedRoles) > 0 && !roleAllowed(claims.Role, allowedRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserName, claims.Name)

		c.Next()
	}
}

func roleAllowed(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
