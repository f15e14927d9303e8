package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chinor-crm/internal/service"
)

// PublicHandler serves the unauthenticated QR forms.
type PublicHandler struct {
	guests   *service.GuestService
	bookings *service.BookingService
}

// NewPublicHandler returns a PublicHandler.
func NewPublicHandler(guests *service.GuestService, bookings *service.BookingService) *PublicHandler {
	return &PublicHandler{guests: guests, bookings: bookings}
}

// CreateGuest handles POST /api/public/guest.  A phone that is already
// registered is a 409.
func (h *PublicHandler) CreateGuest(c echo.Context) error {
	var req service.GuestInput
	if err := bind(c, &req); err != nil {
		return err
	}
	g, err := h.guests.CreatePublic(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, g)
}

// CreateBooking handles POST /api/public/booking.
func (h *PublicHandler) CreateBooking(c echo.Context) error {
	var req service.BookingInput
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := h.bookings.CreatePublic(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}
