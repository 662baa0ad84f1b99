package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"reservoir_controller/internal/logger"

	"github.com/sony/gobreaker"
)

// Gate reports whether alerts are currently muted. The core wires this
// to its feedingActive predicate: every alert is suppressed while a
// feed cycle runs.
type Gate func() bool

// WebhookNotifier POSTs alerts to an operator webhook. Deliveries go
// through a circuit breaker so a dead endpoint cannot pile up blocked
// senders.
type WebhookNotifier struct {
	url    string
	gate   Gate
	client *http.Client
	cb     *gobreaker.CircuitBreaker
	log    *logger.Logger
}

const deliverTimeout = 10 * time.Second

func NewWebhookNotifier(url string, gate Gate, log *logger.Logger) *WebhookNotifier {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "notify-webhook",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})
	return &WebhookNotifier{
		url:    url,
		gate:   gate,
		client: &http.Client{Timeout: deliverTimeout},
		cb:     cb,
		log:    log,
	}
}

type alertPayload struct {
	Subject string    `json:"subject"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// Send delivers one alert. Muted alerts are dropped, not queued; a
// stale alert arriving after a two-hour feed is noise.
func (n *WebhookNotifier) Send(ctx context.Context, subject, message string) error {
	if n.url == "" {
		return nil
	}
	if n.gate != nil && n.gate() {
		n.log.Debugw("notify_muted_feeding", "subject", subject)
		return nil
	}

	body, err := json.Marshal(alertPayload{Subject: subject, Message: message, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	_, err = n.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook returned %s", resp.Status)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("deliver alert %q: %w", subject, err)
	}
	return nil
}
