package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one queued campaign.
type Handler func(ctx context.Context, campaignID uint64) error

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
	prefetch   = 50
)

// StartDispatchConsumer consumes DispatchQueue until ctx is cancelled.  It
// reconnects with exponential backoff when the broker is unreachable or the
// connection drops.  A message whose handler fails is rejected without
// requeue; unless a guest was already contacted the dispatch claim is
// released and RequeuePending picks the campaign up on the next start.
func StartDispatchConsumer(ctx context.Context, url string, handle Handler, log *zap.Logger) error {
	backoff := minBackoff
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("dispatch consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minBackoff

		err = consumeLoop(ctx, conn, handle, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("dispatch consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	return min(d*2, maxBackoff)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, handle Handler, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		log.Warn("dispatch consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(DispatchQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(DispatchQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info("dispatch consumer started", zap.String("queue", DispatchQueue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := process(ctx, d.Body, handle); err != nil {
				log.Error("dispatch consumer: message rejected", zap.String("message_id", d.MessageId), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func process(ctx context.Context, body []byte, handle Handler) error {
	ev, err := DecodeCampaignQueued(body)
	if err != nil {
		return err
	}
	return handle(ctx, ev.CampaignID)
}
