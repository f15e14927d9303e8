package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chinor-crm/internal/service"
)

// BookingHandler serves bookings and their status changes.
type BookingHandler struct {
	bookings *service.BookingService
}

// NewBookingHandler returns a BookingHandler.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// List handles GET /api/bookings?search=&date=YYYY-MM-DD&page=&limit=.
func (h *BookingHandler) List(c echo.Context) error {
	page, err := h.bookings.List(c.Request().Context(), c.QueryParam("search"), c.QueryParam("date"), pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	b, err := h.bookings.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	var req service.BookingInput
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := h.bookings.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

// UpdateStatus handles PATCH /api/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req service.StatusInput
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := h.bookings.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}
