package model

import (
	"time"

	"github.com/iliyamo/chinor-crm/internal/booking"
)

// Booking records a table reservation made by staff or through the public
// QR form.  It is mutated only through status transitions.
//
// Fields:
//  ID          – primary key identifier.
//  GuestID     – guest the table is booked for.
//  Guest       – denormalized guest summary (id, name, phone).
//  BookingTime – arrival time, stored in UTC.
//  GuestsCount – number of persons, at least one.
//  Status      – lifecycle state, see package booking.
//  CreatedBy   – staff user who created the booking; nil for public bookings.
//  CreatedAt   – creation timestamp.
type Booking struct {
	ID          uint64         `json:"id"`
	GuestID     uint64         `json:"guest_id"`
	Guest       *GuestSummary  `json:"guest,omitempty"`
	BookingTime time.Time      `json:"booking_time"`
	GuestsCount int            `json:"guests_count"`
	Status      booking.Status `json:"status"`
	CreatedBy   *uint64        `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
}

// BookingDynamicsItem is the number of bookings on one calendar day.
type BookingDynamicsItem struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
