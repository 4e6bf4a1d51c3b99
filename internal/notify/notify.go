// Package notify delivers booking confirmation and cancellation texts,
// either synchronously through the SMS gateway or through the RabbitMQ
// notification queue.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/salon-booking/internal/metrics"
	"github.com/iliyamo/salon-booking/internal/queue"
	"github.com/iliyamo/salon-booking/internal/sms"
)

// Notification is a rendered customer text.
type Notification struct {
	Kind      string // queue.KindBookingConfirmed or queue.KindBookingCancelled
	BookingID uint64
	Phone     string
	Text      string
}

// ConfirmationText renders the booking confirmation message.
func ConfirmationText(salonName, serviceName, date, at, manageURL string) string {
	return fmt.Sprintf("Your %s appointment at %s on %s at %s is confirmed. View or cancel: %s",
		serviceName, salonName, date, at, manageURL)
}

// CancellationText renders the cancellation message.
func CancellationText(date, at, bookURL string) string {
	return fmt.Sprintf("Your appointment on %s at %s has been cancelled. Book a new time: %s",
		date, at, bookURL)
}

// Direct sends notifications immediately through an SMS gateway.
type Direct struct {
	gateway sms.Gateway
	logger  zerolog.Logger
}

// NewDirect returns a notifier that texts customers through gateway.
func NewDirect(gateway sms.Gateway, logger zerolog.Logger) *Direct {
	return &Direct{gateway: gateway, logger: logger}
}

func (d *Direct) Notify(ctx context.Context, n Notification) error {
	id, err := d.gateway.Send(ctx, sms.Message{To: n.Phone, Text: n.Text})
	if err != nil {
		metrics.IncNotification(n.Kind, "failed")
		return fmt.Errorf("send %s sms: %w", n.Kind, err)
	}
	metrics.IncNotification(n.Kind, "sent")
	d.logger.Info().Str("kind", n.Kind).Uint64("booking_id", n.BookingID).Str("message_id", id).Msg("notification sent")
	return nil
}

// EventPublisher is satisfied by *queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// Queued hands notifications to the message broker; a queue.Consumer
// delivers them.
type Queued struct {
	publisher EventPublisher
	now       func() time.Time
}

// NewQueued returns a notifier that publishes events for a queue.Consumer.
func NewQueued(publisher EventPublisher) *Queued {
	return &Queued{publisher: publisher, now: func() time.Time { return time.Now().UTC() }}
}

func (q *Queued) Notify(ctx context.Context, n Notification) error {
	err := q.publisher.Publish(ctx, queue.NotificationEvent{
		Kind:       n.Kind,
		BookingID:  n.BookingID,
		Phone:      n.Phone,
		Text:       n.Text,
		OccurredAt: q.now().Format(time.RFC3339),
	})
	if err != nil {
		metrics.IncNotification(n.Kind, "publish_failed")
		return err
	}
	metrics.IncNotification(n.Kind, "queued")
	return nil
}
