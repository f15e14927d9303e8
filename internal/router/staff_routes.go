package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chinor-crm/internal/middleware"
	"github.com/iliyamo/chinor-crm/internal/model"
)

// RegisterStaff registers the endpoints every signed-in staff member may
// use.  cache is applied to the dashboard widgets only; their payloads do
// not depend on the caller.
func RegisterStaff(e *echo.Echo, h Handlers, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/api",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.StaffRoles()...),
	)

	// ---- Guests ----
	g.GET("/guests", h.Guests.List)
	g.GET("/guests/stats", h.Guests.Stats)
	g.GET("/guests/export", h.Guests.Export)
	g.GET("/guests/:id", h.Guests.Get)
	g.POST("/guests", h.Guests.Create)
	g.PATCH("/guests/:id", h.Guests.Update)
	g.POST("/guests/:id/visits", h.Guests.RecordVisit)

	// ---- Bookings ----
	g.GET("/bookings", h.Bookings.List)
	g.GET("/bookings/:id", h.Bookings.Get)
	g.POST("/bookings", h.Bookings.Create)
	g.PATCH("/bookings/:id/status", h.Bookings.UpdateStatus)

	// ---- Broadcasts ----
	g.POST("/broadcasts", h.Broadcasts.Create)
	g.GET("/broadcasts/stats", h.Broadcasts.Stats)
	g.GET("/broadcasts/history", h.Broadcasts.History)

	g.GET("/settings", h.Settings.Get)

	// ---- Dashboard ----
	g.GET("/dashboard/stats", h.Dashboard.Stats, cache)
	g.GET("/dashboard/segments", h.Dashboard.Segments, cache)
	g.GET("/dashboard/booking-dynamics", h.Dashboard.BookingDynamics, cache)
	g.GET("/dashboard/overview", h.Dashboard.Overview, cache)
}
