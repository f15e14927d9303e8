// Package notify posts CRM events to operator-configured webhooks.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// BroadcastMessage is the payload posted once per broadcast recipient.
type BroadcastMessage struct {
	CampaignID uint64  `json:"campaign_id"`
	GuestID    uint64  `json:"guest_id"`
	Phone      string  `json:"phone"`
	Name       *string `json:"name"`
	Message    string  `json:"message"`
	ImageURL   *string `json:"image_url"`
}

// BookingMessage is the payload posted when a booking is created.
type BookingMessage struct {
	BookingID           uint64    `json:"booking_id"`
	GuestID             uint64    `json:"guest_id"`
	GuestName           *string   `json:"guest_name"`
	Phone               string    `json:"phone"`
	BookingTime         time.Time `json:"booking_time"`
	GuestsCount         int       `json:"guests_count"`
	Status              string    `json:"status"`
	RestaurantPlace     string    `json:"restaurant_place"`
	DefaultTableMessage string    `json:"default_table_message"`
	Source              string    `json:"source"`
}

// WebhookClient posts JSON payloads to absolute webhook URLs.
type WebhookClient struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewWebhookClient returns a client with the given per-request timeout.
// Deliveries are not retried; a failed send is recorded by the caller.
func NewWebhookClient(timeout time.Duration, logger *zap.Logger) *WebhookClient {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "chinor-crm/1.0")
	return &WebhookClient{http: client, logger: logger}
}

// SendBroadcast posts one broadcast message.
func (c *WebhookClient) SendBroadcast(ctx context.Context, url string, msg BroadcastMessage) error {
	return c.post(ctx, url, "broadcast", msg)
}

// NotifyBooking posts a new booking.
func (c *WebhookClient) NotifyBooking(ctx context.Context, url string, msg BookingMessage) error {
	return c.post(ctx, url, "booking", msg)
}

func (c *WebhookClient) post(ctx context.Context, url, kind string, body any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(url)
	if err != nil {
		c.logger.Warn("webhook call failed", zap.String("kind", kind), zap.Error(err))
		return fmt.Errorf("%s webhook: %w", kind, err)
	}
	if resp.IsError() {
		c.logger.Warn("webhook rejected payload",
			zap.String("kind", kind),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("%s webhook: unexpected status %d", kind, resp.StatusCode())
	}
	return nil
}
