// Package sms sends text messages to E.164 phone numbers.  Callers depend
// on the Gateway interface; New picks the implementation from configuration.
package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iliyamo/salon-booking/internal/config"
)

// Message is one outbound text.
type Message struct {
	To   string // E.164 number
	Text string
}

// Gateway delivers a message and returns the provider's message id.
type Gateway interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// GatewayError is returned when the provider answers with a non-2xx status.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("sms gateway status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *GatewayError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// AsGatewayError extracts a *GatewayError from err.
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// New builds the gateway selected by cfg.Provider ("log" or "http").
func New(cfg config.SMSConfig, logger zerolog.Logger) (Gateway, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogGateway(logger), nil
	case "http":
		if cfg.APIURL == "" {
			return nil, errors.New("sms: SMS_API_URL is required for the http provider")
		}
		return NewHTTPGateway(cfg, logger), nil
	default:
		return nil, fmt.Errorf("sms: unknown provider %q", cfg.Provider)
	}
}
