package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/service"
)

// SettingsHandler serves the settings page and segment recalculation.
type SettingsHandler struct {
	settings *service.SettingsService
	guests   *service.GuestService
}

// NewSettingsHandler returns a SettingsHandler.
func NewSettingsHandler(settings *service.SettingsService, guests *service.GuestService) *SettingsHandler {
	return &SettingsHandler{settings: settings, guests: guests}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(c echo.Context) error {
	st, err := h.settings.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// Update handles PATCH /api/settings.
func (h *SettingsHandler) Update(c echo.Context) error {
	var req model.SettingsPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	st, err := h.settings.Update(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// RecalculateSegments handles POST /api/settings/recalc-segments.
func (h *SettingsHandler) RecalculateSegments(c echo.Context) error {
	res, err := h.guests.RecalculateSegments(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
