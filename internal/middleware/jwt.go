package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chinor-crm/internal/service"
	"github.com/iliyamo/chinor-crm/internal/utils"
)

// JWTAuth validates a Bearer access token.  On success the user id and
// role are stored on the echo context (see UserID and Role) and the
// request context carries a service.Actor for the activity journal.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Not authenticated"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Could not validate credentials"})
			}
			id, err := claims.UserID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Could not validate credentials"})
			}

			c.Set(CtxUserID, id)
			c.Set(CtxRole, claims.Role)
			req := c.Request()
			c.SetRequest(req.WithContext(service.WithActor(req.Context(), service.Actor{UserID: id, Role: claims.Role})))
			return next(c)
		}
	}
}
