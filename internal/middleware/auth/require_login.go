package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zyncjobs/backend/internal/models"
	"github.com/zyncjobs/backend/internal/service"
)

type Guard struct {
	DB        *gorm.DB
	JWTSecret []byte
}

// RequireLogin admits requests carrying a valid access token in the
// Authorization header. Refresh tokens are rejected here no matter how valid
// their signature is; only the refresh endpoint accepts them, from the cookie.
func (g *Guard) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := tokenFromHeader(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "access token required")
		}

		claims, err := service.AccessClaimsFromToken(raw, g.JWTSecret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		userID, err := claims.UserID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		var user models.User
		if err := g.DB.WithContext(c.Request().Context()).
			Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		c.Set("userID", userID)
		c.Set("role", claims.Role)
		c.Set("email", user.Email)
		return next(c)
	}
}

// RequireRole gates a route to the given roles. Must run after RequireLogin.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
		}
	}
}

func UserID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok {
		return 0, errors.New("no user in context")
	}
	return id, nil
}

func tokenFromHeader(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
