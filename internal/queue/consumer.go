package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/salon-booking/internal/metrics"
	"github.com/iliyamo/salon-booking/internal/sms"
)

// Consumer delivers queued notifications through an SMS gateway.
type Consumer struct {
	url     string
	gateway sms.Gateway
	logger  zerolog.Logger
}

// NewConsumer returns a Consumer that delivers notifications through gateway.
func NewConsumer(url string, gateway sms.Gateway, logger zerolog.Logger) *Consumer {
	return &Consumer{
		url:     url,
		gateway: gateway,
		logger:  logger.With().Str("component", "notification-consumer").Logger(),
	}
}

// Run connects to the broker and consumes NotificationQueue until ctx is
// cancelled, reconnecting with backoff when the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		c.logger.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.logger.Error().Err(err).Msg("handle notification failed")
				_ = d.Nack(false, false) // do not requeue; avoids a hot loop on a bad message
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Phone == "" || ev.Text == "" {
		return fmt.Errorf("notification %q for booking %d has no recipient or text", ev.Kind, ev.BookingID)
	}
	id, err := c.gateway.Send(ctx, sms.Message{To: ev.Phone, Text: ev.Text})
	if err != nil {
		metrics.IncNotification(ev.Kind, "failed")
		return fmt.Errorf("send %s sms for booking %d: %w", ev.Kind, ev.BookingID, err)
	}
	metrics.IncNotification(ev.Kind, "sent")
	c.logger.Info().Str("kind", ev.Kind).Uint64("booking_id", ev.BookingID).Str("message_id", id).Msg("notification delivered")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
