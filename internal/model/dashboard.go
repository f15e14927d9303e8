package model

// DashboardStats are the four headline numbers on the dashboard.
// NoShowRate is a percentage rounded to one decimal.
type DashboardStats struct {
	TotalBookings int     `json:"totalBookings"`
	TodayArrivals int     `json:"todayArrivals"`
	GuestCount    int     `json:"guestCount"`
	NoShowRate    float64 `json:"noShowRate"`
}

// SegmentCount is one bar of the segments widget.
type SegmentCount struct {
	Segment string `json:"segment"`
	Count   int    `json:"count"`
}

// DashboardOverview bundles the dashboard in one response.  Stats is
// required; the other widgets are empty when they could not be loaded.
type DashboardOverview struct {
	Stats           DashboardStats        `json:"stats"`
	Segments        []SegmentCount        `json:"segments"`
	BookingDynamics []BookingDynamicsItem `json:"booking_dynamics"`
	Warnings        []string              `json:"warnings,omitempty"`
}
