package service

import (
	"context"
	"database/sql"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/salon-booking/internal/clock"
	"github.com/iliyamo/salon-booking/internal/config"
	"github.com/iliyamo/salon-booking/internal/notify"
	"github.com/iliyamo/salon-booking/internal/repository"
	"github.com/iliyamo/salon-booking/internal/sms"
	"github.com/iliyamo/salon-booking/internal/testutil"
)

const (
	testSecret  = "manage-secret"
	testBaseURL = "https://salon.example"
)

var start = time.Date(2025, 1, 9, 8, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu   sync.Mutex
	msgs []sms.Message
	err  error
}

func (g *fakeGateway) Send(_ context.Context, m sms.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.msgs = append(g.msgs, m)
	return "msg-1", nil
}

var codeRe = regexp.MustCompile(`code is ([0-9]{6})`)

// lastCode returns the code of the most recent OTP text.
func (g *fakeGateway) lastCode(t *testing.T) string {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.msgs)
	m := codeRe.FindStringSubmatch(g.msgs[len(g.msgs)-1].Text)
	require.Len(t, m, 2)
	return m[1]
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *fakeNotifier) all() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.sent...)
}

type env struct {
	db       *sql.DB
	fx       testutil.Fixture
	repos    *repository.Set
	clock    *clock.Manual
	gateway  *fakeGateway
	notifier *fakeNotifier
	holds    *HoldService
	otp      *OtpService
	manage   *ManageService
	sweeper  *Sweeper
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, fx := testutil.NewDB(t)
	e := &env{
		db:       db,
		fx:       fx,
		repos:    repository.NewSet(db),
		clock:    clock.NewManual(start),
		gateway:  &fakeGateway{},
		notifier: &fakeNotifier{},
	}
	opts := []Option{
		WithClock(e.clock),
		WithCountryCode("972"),
		WithOTPConfig(config.OTPConfig{BcryptCost: 4}),
	}
	log := zerolog.Nop()
	e.holds = NewHoldService(db, e.repos, e.notifier, testSecret, testBaseURL, log, opts...)
	e.otp = NewOtpService(db, e.repos, e.gateway, log, opts...)
	e.manage = NewManageService(db, e.repos, e.notifier, testSecret, testBaseURL, log, opts...)
	e.sweeper = NewSweeper(db, e.repos, log, opts...)
	return e
}

func (e *env) holdInput(date, at string) CreateHoldInput {
	return CreateHoldInput{SalonID: e.fx.SalonID, ServiceID: e.fx.ServiceID, Date: date, Time: at}
}

// mustHold creates a hold and fails the test when it is rejected.
func (e *env) mustHold(t *testing.T, date, at string) string {
	t.Helper()
	res := e.holds.CreateHold(context.Background(), e.holdInput(date, at))
	require.True(t, res.Success, res.Message)
	return res.HoldID
}
