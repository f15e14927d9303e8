package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher publishes CampaignQueuedEvents to DispatchQueue.  Every
// publish opens its own connection; campaigns are created rarely enough
// that a pooled connection is not worth the reconnect handling.
type AMQPPublisher struct {
	url string
	log *zap.Logger
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log}
}

// PublishCampaignQueued queues a campaign for dispatch.  Messages are
// persistent and the queue is durable so they survive a broker restart.
func (p *AMQPPublisher) PublishCampaignQueued(ctx context.Context, campaignID uint64) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(DispatchQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	now := time.Now().UTC()
	body, err := json.Marshal(CampaignQueuedEvent{CampaignID: campaignID, QueuedAt: now})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", DispatchQueue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	p.log.Debug("campaign queued", zap.Uint64("campaign_id", campaignID), zap.String("message_id", pub.MessageId))
	return nil
}

// InProcessPublisher runs the handler in a goroutine instead of going
// through a broker.  It is used when RABBITMQ_URL is not set.
type InProcessPublisher struct {
	handle  Handler
	log     *zap.Logger
	timeout time.Duration
}

// NewInProcessPublisher returns a publisher that calls handle directly.
func NewInProcessPublisher(handle Handler, log *zap.Logger) *InProcessPublisher {
	return &InProcessPublisher{handle: handle, log: log, timeout: 5 * time.Minute}
}

// PublishCampaignQueued starts the dispatch and returns immediately.
func (p *InProcessPublisher) PublishCampaignQueued(ctx context.Context, campaignID uint64) error {
	dctx := context.WithoutCancel(ctx)
	go func() {
		dctx, cancel := context.WithTimeout(dctx, p.timeout)
		defer cancel()
		if err := p.handle(dctx, campaignID); err != nil {
			p.log.Error("in-process dispatch failed", zap.Uint64("campaign_id", campaignID), zap.Error(err))
		}
	}()
	return nil
}
