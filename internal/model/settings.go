package model

import "github.com/iliyamo/chinor-crm/internal/segment"

// Settings is the single global configuration row.  JSON names follow the
// front-end, which mixes camelCase and snake_case keys.
type Settings struct {
	PushNotifications       bool   `json:"pushNotifications"`
	WebhookURL              string `json:"webhookUrl"`
	AutoBackup              bool   `json:"autoBackup"`
	SegmentRegularThreshold int    `json:"segment_regular_threshold"`
	SegmentVIPThreshold     int    `json:"segment_vip_threshold"`
	BroadcastWebhookURL     string `json:"broadcastWebhookUrl"`
	BookingWebhookURL       string `json:"bookingWebhookUrl"`
	RestaurantPlace         string `json:"restaurant_place"`
	DefaultTableMessage     string `json:"default_table_message"`
}

// DefaultSettings is written when no settings row exists yet.
func DefaultSettings() Settings {
	th := segment.DefaultThresholds()
	return Settings{
		PushNotifications:       true,
		AutoBackup:              true,
		SegmentRegularThreshold: th.Regular,
		SegmentVIPThreshold:     th.VIP,
		RestaurantPlace:         "CHINOR",
		DefaultTableMessage:     "будет назначен",
	}
}

// Thresholds returns the segment thresholds held by the settings.
func (s Settings) Thresholds() segment.Thresholds {
	return segment.Thresholds{Regular: s.SegmentRegularThreshold, VIP: s.SegmentVIPThreshold}
}

// SettingsPatch is a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	PushNotifications       *bool   `json:"pushNotifications"`
	WebhookURL              *string `json:"webhookUrl" validate:"omitempty,url"`
	AutoBackup              *bool   `json:"autoBackup"`
	SegmentRegularThreshold *int    `json:"segment_regular_threshold" validate:"omitempty,min=0"`
	SegmentVIPThreshold     *int    `json:"segment_vip_threshold" validate:"omitempty,min=0"`
	BroadcastWebhookURL     *string `json:"broadcastWebhookUrl" validate:"omitempty,url"`
	BookingWebhookURL       *string `json:"bookingWebhookUrl" validate:"omitempty,url"`
	RestaurantPlace         *string `json:"restaurant_place" validate:"omitempty,max=255"`
	DefaultTableMessage     *string `json:"default_table_message" validate:"omitempty,max=255"`
}

// Apply copies every non-nil field onto s.
func (p SettingsPatch) Apply(s *Settings) {
	if p.PushNotifications != nil {
		s.PushNotifications = *p.PushNotifications
	}
	if p.WebhookURL != nil {
		s.WebhookURL = *p.WebhookURL
	}
	if p.AutoBackup != nil {
		s.AutoBackup = *p.AutoBackup
	}
	if p.SegmentRegularThreshold != nil {
		s.SegmentRegularThreshold = *p.SegmentRegularThreshold
	}
	if p.SegmentVIPThreshold != nil {
		s.SegmentVIPThreshold = *p.SegmentVIPThreshold
	}
	if p.BroadcastWebhookURL != nil {
		s.BroadcastWebhookURL = *p.BroadcastWebhookURL
	}
	if p.BookingWebhookURL != nil {
		s.BookingWebhookURL = *p.BookingWebhookURL
	}
	if p.RestaurantPlace != nil {
		s.RestaurantPlace = *p.RestaurantPlace
	}
	if p.DefaultTableMessage != nil {
		s.DefaultTableMessage = *p.DefaultTableMessage
	}
}
