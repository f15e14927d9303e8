package model

import "time"

// Campaign is a broadcast message addressed to a guest segment.  Only the
// selector is stored; recipients are resolved when the campaign is sent.
type Campaign struct {
	ID            uint64     `json:"id"`
	Name          string     `json:"name"`
	MessageText   string     `json:"message_text"`
	ImageURL      *string    `json:"image_url"`
	TargetSegment *string    `json:"target_segment"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
	DispatchedAt  *time.Time `json:"-"`
	CreatedBy     *uint64    `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Delivery states of a single campaign send.
const (
	SendPending = "pending"
	SendSent    = "sent"
	SendFailed  = "failed"
)

// CampaignSend is one delivery attempt of a campaign to one guest.
type CampaignSend struct {
	ID           uint64     `json:"id"`
	CampaignID   uint64     `json:"campaign_id"`
	GuestID      uint64     `json:"guest_id"`
	Status       string     `json:"status"`
	SentAt       *time.Time `json:"sent_at"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
}

// BroadcastStats is shown above the broadcast form.  Delivered and Errors
// stay nil until something has been sent.
type BroadcastStats struct {
	Available int  `json:"available"`
	Delivered *int `json:"delivered"`
	Errors    *int `json:"errors"`
}

// BroadcastHistoryItem pairs a campaign with its delivery counters.
type BroadcastHistoryItem struct {
	Campaign    Campaign `json:"campaign"`
	SentCount   int      `json:"sent_count"`
	FailedCount int      `json:"failed_count"`
}

// DispatchReport summarizes one campaign dispatch run.
type DispatchReport struct {
	CampaignID uint64 `json:"campaign_id"`
	Recipients int    `json:"recipients"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Skipped    bool   `json:"skipped"`
}
