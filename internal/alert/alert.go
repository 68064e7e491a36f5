// Package alert fans out CRITICAL audit events to webhook endpoints.
// Delivery is best-effort with bounded retry; a failed webhook never
// blocks or fails the audit write that triggered it.
package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/ssrf"
)

const (
	requestTimeout = 5 * time.Second
	maxRetries     = 3
)

// Config defines one webhook alert destination. Events filters by
// audit severity ("CRITICAL") or by event name
// ("safety_number_changed"); an empty list matches CRITICAL only.
type Config struct {
	URL     string            `yaml:"url"`
	Events  []string          `yaml:"events"`
	Headers map[string]string `yaml:"headers"`
}

// Dispatcher fans out audit entries to matching webhooks.
type Dispatcher struct {
	configs []Config
	client  *http.Client
}

// NewDispatcher validates webhook URLs and returns a dispatcher, or
// nil when no destination is configured (callers nil-check). URLs go
// through the SSRF guard with private addresses permitted (webhook
// receivers are commonly internal); forbidden schemes and embedded
// credentials are still rejected.
func NewDispatcher(configs []Config) (*Dispatcher, error) {
	if len(configs) == 0 {
		return nil, nil
	}
	for _, cfg := range configs {
		if res := ssrf.ValidateURL(cfg.URL, true); !res.Valid {
			return nil, fmt.Errorf("alert: webhook %q: %s", cfg.URL, res.Reason)
		}
	}
	return &Dispatcher{
		configs: configs,
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

// Dispatch sends the entry to every matching webhook. Fires
// goroutines; does not block the caller.
func (d *Dispatcher) Dispatch(entry audit.Entry) {
	if d == nil {
		return
	}
	for _, cfg := range d.configs {
		if matches(cfg.Events, entry) {
			go d.send(cfg, entry)
		}
	}
}

func matches(events []string, entry audit.Entry) bool {
	if len(events) == 0 {
		return entry.Severity == audit.SeverityCritical
	}
	for _, e := range events {
		if e == entry.Severity || e == entry.Event {
			return true
		}
	}
	return false
}

// send posts one entry with retry on 5xx and network errors. 4xx is
// terminal: the receiver understood and refused.
func (d *Dispatcher) send(cfg Config, entry audit.Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("alert: marshal entry: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("alert: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("alert: webhook rejected: HTTP %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("alert: webhook server error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("alert: webhook failed after %d attempts: %w", maxRetries, lastErr)
}
