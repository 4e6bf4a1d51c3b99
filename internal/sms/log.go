package sms

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogGateway writes messages to the logger instead of delivering them.
// It is the default provider for development.
type LogGateway struct {
	logger zerolog.Logger
}

// NewLogGateway returns a gateway that only logs messages.
func NewLogGateway(logger zerolog.Logger) *LogGateway {
	return &LogGateway{logger: logger.With().Str("component", "sms").Logger()}
}

func (g *LogGateway) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := "log-" + uuid.NewString()
	g.logger.Info().Str("to", msg.To).Str("message_id", id).Str("text", msg.Text).Msg("sms (not delivered)")
	return id, nil
}
