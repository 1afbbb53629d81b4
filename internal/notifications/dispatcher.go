package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ziadkadry99/revlens/internal/session"
)

// Options configures a Dispatcher.
type Options struct {
	// WebhookURL receives every notification at or above MinSeverity.
	WebhookURL  string
	MinSeverity Severity
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Dispatcher records failures and delivers them to the configured webhook.
type Dispatcher struct {
	store  *Store
	client *http.Client
	opts   Options
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher backed by the given store.
func NewDispatcher(store *Store, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MinSeverity == "" {
		opts.MinSeverity = SeverityInfo
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store: store,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		opts:   opts,
		logger: logger,
	}
}

// Dispatch persists a notification and sends it to the webhook. The
// notification stays pending when delivery fails.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) (Notification, error) {
	n, err := d.store.Create(ctx, n)
	if err != nil {
		return n, fmt.Errorf("creating notification: %w", err)
	}
	return n, d.deliver(ctx, &n)
}

// Notify implements session.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, ev session.Event) error {
	kind := Kind(ev.Kind)
	if kind != KindFetch && kind != KindDependency {
		return fmt.Errorf("notifications: unsupported failure kind %q", ev.Kind)
	}
	n := Notification{
		Kind:      kind,
		Code:      ev.Code,
		Message:   ev.Error,
		SessionID: ev.SessionID,
		Reference: ev.Reference,
		CreatedAt: ev.At,
	}
	_, err := d.Dispatch(ctx, n)
	return err
}

// Redeliver retries every pending notification and returns how many were
// delivered.
func (d *Dispatcher) Redeliver(ctx context.Context) (int, error) {
	if d.opts.WebhookURL == "" {
		return 0, nil
	}
	pending, err := d.store.GetPending(ctx)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for i := range pending {
		if !severityMatches(pending[i].Severity, d.opts.MinSeverity) {
			continue
		}
		if err := d.deliver(ctx, &pending[i]); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

func (d *Dispatcher) deliver(ctx context.Context, n *Notification) error {
	if d.opts.WebhookURL == "" || !severityMatches(n.Severity, d.opts.MinSeverity) {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshalling notification: %w", err)
	}
	if err := d.SendWebhook(ctx, d.opts.WebhookURL, payload); err != nil {
		d.logger.Warn("webhook delivery failed", "notification", n.ID, "error", err)
		return err
	}
	if err := d.store.MarkDelivered(ctx, n.ID); err != nil {
		return err
	}
	n.Delivered = true
	return nil
}

// SendWebhook POSTs payload to the given URL.
func (d *Dispatcher) SendWebhook(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// severityMatches returns true if the notification severity meets or exceeds the filter threshold.
func severityMatches(actual, filter Severity) bool {
	levels := map[Severity]int{
		SeverityInfo:     0,
		SeverityWarning:  1,
		SeverityCritical: 2,
	}
	return levels[actual] >= levels[filter]
}
