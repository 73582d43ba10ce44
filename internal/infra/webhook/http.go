package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/adapter"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/infra/metrics"
)

// HTTPDispatcher posts the envelope to the service's own webhook endpoint,
// exercising the same path a real provider would.
type HTTPDispatcher struct {
	url     string
	secret  string
	retries int
	backoff time.Duration
	client  *http.Client
	log     *zerolog.Logger
}

var _ adapter.WebhookDispatcher = (*HTTPDispatcher)(nil)

func NewHTTPDispatcher(url, secret string, retries int, backoff time.Duration, logger *zerolog.Logger) *HTTPDispatcher {
	if retries <= 0 {
		retries = 1
	}
	return &HTTPDispatcher{
		url:     url,
		secret:  secret,
		retries: retries,
		backoff: backoff,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     logging.Component(logger, "webhook_http"),
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, pi *model.PaymentIntent) error {
	evt := NewEvent(pi)
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	log := logging.With(ctx, d.log).With().Str("event_id", evt.ID).Logger()

	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if lastErr = d.post(ctx, body); lastErr == nil {
			metrics.IncWebhookDelivery(ModeHTTP, "ok")
			return nil
		}
		log.Warn().Err(lastErr).Int("attempt", attempt).Msg("webhook post failed")
		if attempt == d.retries {
			break
		}
		select {
		case <-ctx.Done():
			metrics.IncWebhookDelivery(ModeHTTP, "error")
			return ctx.Err()
		case <-time.After(d.backoff * time.Duration(attempt)):
		}
	}
	metrics.IncWebhookDelivery(ModeHTTP, "error")
	return lastErr
}

func (d *HTTPDispatcher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.secret != "" {
		req.Header.Set(SignatureHeader, Sign(d.secret, time.Now(), body))
	}
	if tid := logging.TraceID(ctx); tid != "" {
		req.Header.Set("X-Trace-ID", tid)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}
