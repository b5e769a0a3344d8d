// Package webhook dispatches the completion notification as an HTTP POST.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/funnelworks/funnel/internal/logging"
)

// Notifier implements ports.Notifier over a form-encoded HTTP POST.
// It is fire-and-forget: callers log failures and never retry.
type Notifier struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// Option configures the Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the default client (5s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// New creates a notifier for the given endpoint. An empty endpoint is
// valid: Notify becomes a silent no-op, since a missing notification
// URL is a configuration gap, not an error.
func New(endpoint string, opts ...Option) *Notifier {
	n := &Notifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts the flat key/value payload to the endpoint.
func (n *Notifier) Notify(ctx context.Context, payload map[string]string) error {
	if n.endpoint == "" {
		n.logger.Debug("webhook endpoint not configured, skipping notification")
		return nil
	}

	form := url.Values{}
	for k, v := range payload {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification endpoint returned %s", resp.Status)
	}

	n.logger.Debug("completion notification delivered", "status", resp.StatusCode)
	return nil
}
