package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chinor-crm/internal/middleware"
	"github.com/iliyamo/chinor-crm/internal/service"
)

// AuthHandler serves login and the current user.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	u, err := h.auth.Me(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
