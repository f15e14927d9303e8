// Package queue carries campaign dispatch requests over RabbitMQ.  A
// campaign is queued when it is created; the consumer picks it up and
// hands it to the broadcast dispatcher.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DispatchQueue is the durable queue campaign ids are published to.
const DispatchQueue = "broadcast.dispatch"

// CampaignQueuedEvent is published when a campaign is created.  It only
// carries the id: recipients are resolved when the campaign is dispatched.
type CampaignQueuedEvent struct {
	CampaignID uint64    `json:"campaign_id"`
	QueuedAt   time.Time `json:"queued_at"`
}

var errMissingCampaign = errors.New("event has no campaign_id")

// DecodeCampaignQueued parses a message body.
func DecodeCampaignQueued(body []byte) (CampaignQueuedEvent, error) {
	var ev CampaignQueuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.CampaignID == 0 {
		return ev, errMissingCampaign
	}
	return ev, nil
}
