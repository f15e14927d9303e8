package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chinor-crm/internal/middleware"
	"github.com/iliyamo/chinor-crm/internal/model"
)

// RegisterAdmin registers the admin-only endpoints: settings changes,
// the activity journal and staff accounts.
func RegisterAdmin(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group(
		"/api",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.PATCH("/settings", h.Settings.Update)
	g.POST("/settings/recalc-segments", h.Settings.RecalculateSegments)

	g.GET("/dashboard/recent-activity", h.Dashboard.RecentActivity)
	g.GET("/dashboard/user-stats", h.Dashboard.UserStats)
	g.GET("/dashboard/activity-export", h.Dashboard.ActivityExport)

	// ---- Users ----
	g.GET("/users", h.Users.List)
	g.POST("/users", h.Users.Create)
	g.PATCH("/users/:id", h.Users.Update)
	g.DELETE("/users/:id", h.Users.Delete)
}
