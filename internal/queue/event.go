// Package queue carries customer notifications over RabbitMQ: the API
// publishes NotificationEvents and the worker consumes them and delivers
// the text through the SMS gateway.
package queue

// NotificationQueue is the durable queue holding pending customer texts.
const NotificationQueue = "booking.notifications"

// Notification kinds.
const (
	KindBookingConfirmed = "booking.confirmed"
	KindBookingCancelled = "booking.cancelled"
)

// NotificationEvent is published after a booking is confirmed or
// cancelled.  The text is rendered by the publisher so the consumer does
// not need database access.
type NotificationEvent struct {
	Kind       string `json:"kind"`
	BookingID  uint64 `json:"booking_id"`
	Phone      string `json:"phone"`
	Text       string `json:"text"`
	OccurredAt string `json:"occurred_at"`
}
