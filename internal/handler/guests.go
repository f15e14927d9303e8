package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chinor-crm/internal/export"
	"github.com/iliyamo/chinor-crm/internal/service"
)

// GuestHandler serves the guest list, cards, visits and exports.
type GuestHandler struct {
	guests *service.GuestService
}

// NewGuestHandler returns a GuestHandler.
func NewGuestHandler(guests *service.GuestService) *GuestHandler {
	return &GuestHandler{guests: guests}
}

// List handles GET /api/guests?search=&page=&limit=.
func (h *GuestHandler) List(c echo.Context) error {
	page, err := h.guests.List(c.Request().Context(), c.QueryParam("search"), pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Stats handles GET /api/guests/stats.
func (h *GuestHandler) Stats(c echo.Context) error {
	st, err := h.guests.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// Get handles GET /api/guests/:id.
func (h *GuestHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	g, err := h.guests.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// Create handles POST /api/guests.
func (h *GuestHandler) Create(c echo.Context) error {
	var req service.GuestInput
	if err := bind(c, &req); err != nil {
		return err
	}
	g, err := h.guests.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, g)
}

// Update handles PATCH /api/guests/:id.
func (h *GuestHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req service.GuestPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	g, err := h.guests.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// RecordVisit handles POST /api/guests/:id/visits.
func (h *GuestHandler) RecordVisit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	g, err := h.guests.RecordVisit(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// Export handles GET /api/guests/export?format=csv|xlsx&search=.
func (h *GuestHandler) Export(c echo.Context) error {
	f, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var buf bytes.Buffer
	if err := h.guests.Export(c.Request().Context(), &buf, f, c.QueryParam("search")); err != nil {
		return err
	}
	return attachment(c, f.ContentType(), f.Filename(time.Now()), buf.Bytes())
}

func attachment(c echo.Context, contentType, name string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, contentType, body)
}
