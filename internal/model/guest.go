package model

import "time"

// Guest represents a restaurant guest as stored in the `guests` table and
// returned by the API.  Phone is the natural key: no two guests share one.
//
// Fields:
//  ID                     – primary key identifier.
//  Name                   – optional display name.
//  Phone                  – normalized phone number, unique.
//  Email                  – optional email address.
//  Segment                – tier label derived from VisitsCount.  Clients
//                           cannot set it; it changes on visit recording
//                           and on bulk recalculation only.
//  VisitsCount            – recorded visits, never decreases.
//  ConfirmedBookingsCount – bookings that were ever moved into confirmed.
//  LastVisitAt            – time of the last recorded visit (nullable).
//  ExcludeFromBroadcasts  – opt-out flag honoured at broadcast send time.
//  CreatedAt              – creation timestamp.
type Guest struct {
	ID                     uint64     `json:"id"`
	Name                   *string    `json:"name"`
	Phone                  string     `json:"phone"`
	Email                  *string    `json:"email"`
	Segment                string     `json:"segment"`
	VisitsCount            int        `json:"visits_count"`
	ConfirmedBookingsCount int        `json:"confirmed_bookings_count"`
	LastVisitAt            *time.Time `json:"last_visit_at"`
	ExcludeFromBroadcasts  bool       `json:"exclude_from_broadcasts"`
	CreatedAt              time.Time  `json:"created_at"`
}

// SegmentLabel returns the stored tier label.
func (g Guest) SegmentLabel() string { return g.Segment }

// OptedOut reports whether the guest excluded themselves from broadcasts.
func (g Guest) OptedOut() bool { return g.ExcludeFromBroadcasts }

// DisplayName returns the name or an empty string.
func (g Guest) DisplayName() string {
	if g.Name == nil {
		return ""
	}
	return *g.Name
}

// Summary returns the short form embedded in bookings.
func (g Guest) Summary() *GuestSummary {
	return &GuestSummary{ID: g.ID, Name: g.Name, Phone: g.Phone}
}

// GuestSummary is the denormalized guest attached to a booking.
type GuestSummary struct {
	ID    uint64  `json:"id"`
	Name  *string `json:"name"`
	Phone string  `json:"phone"`
}

// GuestStats counts guests per tier for the guests page header.
type GuestStats struct {
	Total   int `json:"total"`
	VIP     int `json:"vip"`
	Regular int `json:"regular"`
	New     int `json:"new"`
}

// RecalcResult is returned by the bulk segment recalculation.
type RecalcResult struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
}
