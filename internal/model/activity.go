package model

import "time"

// Activity action types written to the journal.
const (
	ActionBookingCreated      = "booking_created"
	ActionGuestCreated        = "guest_created"
	ActionGuestUpdated        = "guest_updated"
	ActionStatusChange        = "status_change"
	ActionVisitAdded          = "visit_added"
	ActionCampaignCreated     = "campaign_created"
	ActionSettingsUpdated     = "settings_updated"
	ActionSegmentsRecalculate = "segments_recalculated"
)

// Entity types referenced by journal entries.
const (
	EntityBooking  = "booking"
	EntityGuest    = "guest"
	EntityCampaign = "campaign"
	EntitySettings = "settings"
)

// Activity is one entry of the staff activity journal.  UserDisplayName
// and UserEmail are filled from the users table when entries are read.
type Activity struct {
	ID              uint64    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UserID          uint64    `json:"-"`
	ActionType      string    `json:"action_type"`
	EntityType      string    `json:"entity_type"`
	EntityID        uint64    `json:"entity_id"`
	Details         *string   `json:"details"`
	UserDisplayName string    `json:"user_display_name"`
	UserEmail       string    `json:"user_email"`
	Summary         string    `json:"summary"`
}

// UserActivityStats aggregates journal entries per staff user.
type UserActivityStats struct {
	UserID          uint64 `json:"user_id"`
	DisplayName     string `json:"display_name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	BookingsCreated int    `json:"bookings_created"`
	GuestsCreated   int    `json:"guests_created"`
	StatusChanges   int    `json:"status_changes"`
}
