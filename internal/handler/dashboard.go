package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chinor-crm/internal/service"
)

// DashboardHandler serves the dashboard widgets and the admin journal.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler returns a DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats handles GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(c echo.Context) error {
	st, err := h.dashboard.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// Segments handles GET /api/dashboard/segments.
func (h *DashboardHandler) Segments(c echo.Context) error {
	seg, err := h.dashboard.Segments(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, seg)
}

// BookingDynamics handles GET /api/dashboard/booking-dynamics?days=.
func (h *DashboardHandler) BookingDynamics(c echo.Context) error {
	dyn, err := h.dashboard.BookingDynamics(c.Request().Context(), queryInt(c, "days"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dyn)
}

// Overview handles GET /api/dashboard/overview?days=.
func (h *DashboardHandler) Overview(c echo.Context) error {
	ov, err := h.dashboard.Overview(c.Request().Context(), queryInt(c, "days"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ov)
}

// RecentActivity handles GET /api/dashboard/recent-activity?limit=.
func (h *DashboardHandler) RecentActivity(c echo.Context) error {
	items, err := h.dashboard.RecentActivity(c.Request().Context(), queryInt(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// UserStats handles GET /api/dashboard/user-stats.
func (h *DashboardHandler) UserStats(c echo.Context) error {
	items, err := h.dashboard.UserStats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// ActivityExport handles GET /api/dashboard/activity-export?limit=.
func (h *DashboardHandler) ActivityExport(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.dashboard.ActivityExport(c.Request().Context(), &buf, queryInt(c, "limit")); err != nil {
		return err
	}
	name := fmt.Sprintf("activity_%s.csv", time.Now().Format("2006-01-02"))
	return attachment(c, "text/csv; charset=utf-8", name, buf.Bytes())
}
