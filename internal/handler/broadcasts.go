package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chinor-crm/internal/service"
)

// BroadcastHandler serves campaign creation, stats and history.
type BroadcastHandler struct {
	broadcasts *service.BroadcastService
}

// NewBroadcastHandler returns a BroadcastHandler.
func NewBroadcastHandler(broadcasts *service.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{broadcasts: broadcasts}
}

// Create handles POST /api/broadcasts.  Delivery happens in the
// background.
func (h *BroadcastHandler) Create(c echo.Context) error {
	var req service.BroadcastInput
	if err := bind(c, &req); err != nil {
		return err
	}
	camp, err := h.broadcasts.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, camp)
}

// Stats handles GET /api/broadcasts/stats.
func (h *BroadcastHandler) Stats(c echo.Context) error {
	st, err := h.broadcasts.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// History handles GET /api/broadcasts/history.
func (h *BroadcastHandler) History(c echo.Context) error {
	items, err := h.broadcasts.History(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
