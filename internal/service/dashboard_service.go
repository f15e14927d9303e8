package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/booking"
	"github.com/iliyamo/chinor-crm/internal/export"
	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

// Limits of the dashboard query parameters.
const (
	DefaultDynamicsDays  = 14
	MaxDynamicsDays      = 90
	DefaultActivityLimit = 50
	MaxActivityLimit     = 500
	DefaultExportLimit   = 5000
	MaxExportLimit       = 20000
)

// DashboardService computes the dashboard widgets and the admin journal
// views.
type DashboardService struct {
	bookings BookingStore
	guests   GuestStore
	journal  *Journal
	log      *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewDashboardService wires a DashboardService.  Calendar days are taken in
// loc.
func NewDashboardService(bookings BookingStore, guests GuestStore, journal *Journal, log *zap.Logger, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{bookings: bookings, guests: guests, journal: journal, log: log, loc: loc, now: time.Now}
}

func clampLimit(v, def, maxV int) int {
	if v <= 0 {
		return def
	}
	return min(v, maxV)
}

func (s *DashboardService) startOfToday() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// Stats returns the headline numbers.  todayArrivals counts pending and
// confirmed bookings for the current local day; noShowRate is the share of
// no-shows among all bookings in percent.
func (s *DashboardService) Stats(ctx context.Context) (model.DashboardStats, error) {
	byStatus, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return model.DashboardStats{}, fmt.Errorf("count bookings: %w", err)
	}
	var st model.DashboardStats
	for _, n := range byStatus {
		st.TotalBookings += n
	}
	if st.TotalBookings > 0 {
		rate := float64(byStatus[booking.NoShow]) * 100 / float64(st.TotalBookings)
		st.NoShowRate = math.Round(rate*10) / 10
	}

	from := s.startOfToday()
	to := from.AddDate(0, 0, 1)
	st.TodayArrivals, err = s.bookings.CountBetween(ctx, from.UTC(), to.UTC(), booking.Pending, booking.Confirmed)
	if err != nil {
		return model.DashboardStats{}, fmt.Errorf("count arrivals: %w", err)
	}

	bySegment, err := s.guests.CountBySegment(ctx)
	if err != nil {
		return model.DashboardStats{}, fmt.Errorf("count guests: %w", err)
	}
	for _, n := range bySegment {
		st.GuestCount += n
	}
	return st, nil
}

// Segments returns guest counts per tier, VIP first.  Every tier is listed
// even when empty.
func (s *DashboardService) Segments(ctx context.Context) ([]model.SegmentCount, error) {
	counts, err := s.guests.CountBySegment(ctx)
	if err != nil {
		return nil, fmt.Errorf("count guests: %w", err)
	}
	labels := segment.Labels()
	out := make([]model.SegmentCount, 0, len(counts)+len(labels))
	for i := len(labels) - 1; i >= 0; i-- {
		out = append(out, model.SegmentCount{Segment: labels[i], Count: counts[labels[i]]})
	}
	var extra []string
	for label := range counts {
		if !segment.IsLabel(label) {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)
	for _, label := range extra {
		out = append(out, model.SegmentCount{Segment: label, Count: counts[label]})
	}
	return out, nil
}

// BookingDynamics returns bookings per local day for the last days days,
// today included, oldest first.  Days without bookings are reported as 0.
func (s *DashboardService) BookingDynamics(ctx context.Context, days int) ([]model.BookingDynamicsItem, error) {
	days = clampLimit(days, DefaultDynamicsDays, MaxDynamicsDays)
	today := s.startOfToday()
	from := today.AddDate(0, 0, -(days - 1))
	to := today.AddDate(0, 0, 1)

	times, err := s.bookings.TimesBetween(ctx, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("load booking times: %w", err)
	}
	perDay := make(map[string]int, days)
	for _, t := range times {
		perDay[t.In(s.loc).Format("2006-01-02")]++
	}
	out := make([]model.BookingDynamicsItem, 0, days)
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		out = append(out, model.BookingDynamicsItem{Date: key, Count: perDay[key]})
	}
	return out, nil
}

// Overview bundles the dashboard.  Stats failures are returned; the
// secondary widgets degrade to empty lists with a warning so the page still
// renders.
func (s *DashboardService) Overview(ctx context.Context, days int) (model.DashboardOverview, error) {
	st, err := s.Stats(ctx)
	if err != nil {
		return model.DashboardOverview{}, err
	}
	ov := model.DashboardOverview{
		Stats:           st,
		Segments:        []model.SegmentCount{},
		BookingDynamics: []model.BookingDynamicsItem{},
	}
	if seg, err := s.Segments(ctx); err != nil {
		s.log.Warn("dashboard segments unavailable", zap.Error(err))
		ov.Warnings = append(ov.Warnings, "segments unavailable")
	} else {
		ov.Segments = seg
	}
	if dyn, err := s.BookingDynamics(ctx, days); err != nil {
		s.log.Warn("dashboard booking dynamics unavailable", zap.Error(err))
		ov.Warnings = append(ov.Warnings, "booking dynamics unavailable")
	} else {
		ov.BookingDynamics = dyn
	}
	return ov, nil
}

// RecentActivity returns the latest journal entries, newest first.
func (s *DashboardService) RecentActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	items, err := s.journal.Recent(ctx, clampLimit(limit, DefaultActivityLimit, MaxActivityLimit))
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return items, nil
}

// UserStats returns per-user action counters.
func (s *DashboardService) UserStats(ctx context.Context) ([]model.UserActivityStats, error) {
	items, err := s.journal.UserStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return items, nil
}

// ActivityExport writes up to limit journal entries as CSV.
func (s *DashboardService) ActivityExport(ctx context.Context, w io.Writer, limit int) error {
	items, err := s.journal.Recent(ctx, clampLimit(limit, DefaultExportLimit, MaxExportLimit))
	if err != nil {
		return fmt.Errorf("load activity: %w", err)
	}
	return export.WriteActivity(w, items, s.loc)
}
