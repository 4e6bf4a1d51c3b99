package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/salon-booking/internal/queue"
	"github.com/iliyamo/salon-booking/internal/sms"
)

type fakeGateway struct {
	msgs []sms.Message
	err  error
}

func (f *fakeGateway) Send(_ context.Context, m sms.Message) (string, error) {
	f.msgs = append(f.msgs, m)
	return "id", f.err
}

type fakePublisher struct {
	events []queue.NotificationEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev queue.NotificationEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func TestTexts(t *testing.T) {
	msg := ConfirmationText("Studio Noa", "Haircut", "2026-03-11", "10:00", "https://salon.example/manage/abc")
	assert.Contains(t, msg, "Studio Noa")
	assert.Contains(t, msg, "2026-03-11 at 10:00")
	assert.Contains(t, msg, "https://salon.example/manage/abc")

	msg = CancellationText("2026-03-11", "10:00", "https://salon.example/book")
	assert.Contains(t, msg, "cancelled")
	assert.Contains(t, msg, "https://salon.example/book")
}

func TestDirect(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDirect(gw, zerolog.Nop())
	n := Notification{Kind: queue.KindBookingConfirmed, BookingID: 1, Phone: "+972501234567", Text: "hi"}

	require.NoError(t, d.Notify(context.Background(), n))
	assert.Equal(t, []sms.Message{{To: "+972501234567", Text: "hi"}}, gw.msgs)

	gw.err = errors.New("provider down")
	assert.Error(t, d.Notify(context.Background(), n))
}

func TestQueued(t *testing.T) {
	pub := &fakePublisher{}
	q := NewQueued(pub)
	q.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	n := Notification{Kind: queue.KindBookingCancelled, BookingID: 9, Phone: "+972501234567", Text: "bye"}
	require.NoError(t, q.Notify(context.Background(), n))
	require.Len(t, pub.events, 1)
	assert.Equal(t, queue.NotificationEvent{
		Kind: queue.KindBookingCancelled, BookingID: 9, Phone: "+972501234567", Text: "bye",
		OccurredAt: "2026-03-10T09:00:00Z",
	}, pub.events[0])

	pub.err = errors.New("broker down")
	assert.Error(t, q.Notify(context.Background(), n))
}
