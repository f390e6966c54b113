package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jpalmerr/beacon/internal/report"
	"github.com/jpalmerr/beacon/internal/store"
)

const (
	DefaultWebhookTimeout = 5 * time.Second

	// responses are drained, never read
	maxResponseBodySize = 1 << 20
)

// connection pooling limits shared by webhooks to the same host
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// WebhookConfig describes a webhook plugin.
type WebhookConfig struct {
	// Name identifies the webhook in logs and metrics.
	Name string
	// URL is the http(s) endpoint receiving forward values.
	URL string
	// Headers are set on every request, e.g. Authorization.
	Headers map[string]string
	// Timeout bounds a single request. Zero means DefaultWebhookTimeout.
	Timeout time.Duration
	// OnlySick skips forward values whose replica status is healthy.
	OnlySick bool
}

// Webhook POSTs forward values as JSON.
//
// Webhook uses per-request timeouts via context rather than a global client
// timeout. Any non-2xx response is an error.
type Webhook struct {
	cfg        WebhookConfig
	httpClient *http.Client
}

// NewWebhook validates cfg and creates a [Webhook].
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.Name == "" {
		return nil, errors.New("webhook name cannot be empty")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("webhook %q: invalid url: %w", cfg.Name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("webhook %q: url scheme must be http or https, got %q", cfg.Name, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("webhook %q: url must include a host", cfg.Name)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("webhook %q: timeout must be positive", cfg.Name)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultWebhookTimeout
	}

	return &Webhook{
		cfg: cfg,
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}, nil
}

// Name returns the webhook name.
func (w *Webhook) Name() string { return w.cfg.Name }

// Handle POSTs fv to the webhook URL.
func (w *Webhook) Handle(ctx context.Context, fv report.ForwardValue) error {
	if w.cfg.OnlySick && fv.Status == store.StatusHealthy {
		return nil
	}

	body, err := json.Marshal(fv)
	if err != nil {
		return fmt.Errorf("failed to encode forward value: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range w.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Close closes all idle connections in the webhook's connection pool.
//
// Safe to call multiple times. After Close the webhook remains usable.
func (w *Webhook) Close() {
	if w == nil || w.httpClient == nil {
		return
	}
	if transport, ok := w.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
