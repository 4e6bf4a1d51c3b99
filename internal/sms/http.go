package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iliyamo/salon-booking/internal/config"
)

// HTTPGateway posts messages to a JSON SMS provider:
//
//	POST {APIURL}
//	Authorization: Bearer {APIKey}
//	{"to": "+972...", "from": "Salon", "text": "..."}
//
// and expects {"message_id": "..."} back.  Requests are throttled by a
// token bucket and 429/5xx answers are retried with exponential backoff.
type HTTPGateway struct {
	client     *http.Client
	url        string
	apiKey     string
	from       string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger
}

// NewHTTPGateway builds a gateway from cfg.
func NewHTTPGateway(cfg config.SMSConfig, logger zerolog.Logger) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &HTTPGateway{
		client:     &http.Client{Timeout: timeout},
		url:        cfg.APIURL,
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
		backoff:    500 * time.Millisecond,
		logger:     logger.With().Str("component", "sms").Logger(),
	}
}

type sendRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

func (g *HTTPGateway) Send(ctx context.Context, msg Message) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("sms rate limiter: %w", err)
	}
	body, err := json.Marshal(sendRequest{To: msg.To, From: g.from, Text: msg.Text})
	if err != nil {
		return "", err
	}

	delay := g.backoff
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		id, err := g.post(ctx, body)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if ge, ok := AsGatewayError(err); ok && !ge.Temporary() {
			return "", err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if attempt == g.maxRetries {
			break
		}
		g.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("sms send failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		delay *= 2
	}
	return "", lastErr
}

func (g *HTTPGateway) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("sms read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &GatewayError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	var out sendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("sms decode response: %w", err)
	}
	if out.MessageID == "" {
		return "", errors.New("sms: provider returned no message id")
	}
	return out.MessageID, nil
}
