// Package notify triggers the downstream calendar refresh after a
// successful import. Delivery is best effort: failures degrade to
// warnings and never affect the committed import.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/resilience"
)

// ErrPending is returned when the notification did not finish inside the
// wait window. The attempt keeps running detached in the background.
var ErrPending = eris.New("notify: refresh still pending")

const defaultWait = 2 * time.Minute

// Notifier posts a refresh trigger to the downstream endpoint.
type Notifier struct {
	url    string
	client *http.Client
	retry  resilience.Policy
	wait   time.Duration
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(n *Notifier) { n.retry = p }
}

// WithWait bounds how long Notify blocks before detaching.
func WithWait(d time.Duration) Option {
	return func(n *Notifier) { n.wait = d }
}

// New creates a Notifier for the given refresh endpoint.
func New(url string, opts ...Option) *Notifier {
	n := &Notifier{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		retry:  resilience.DefaultPolicy(),
		wait:   defaultWait,
	}
	n.retry.OnRetry = resilience.RetryLogger("notify", "refresh")
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts the refresh trigger, retrying transient failures. When
// the wait window elapses first, the attempt continues in the background
// on a detached context and ErrPending is returned; callers treat that
// as a warning, not a failure.
func (n *Notifier) Notify(ctx context.Context) (int, error) {
	type outcome struct {
		updated int
		err     error
	}
	done := make(chan outcome, 1)

	// The import is already committed, so a caller cancelling must not
	// kill an in-flight refresh.
	detached := context.WithoutCancel(ctx)
	go func() {
		updated, err := resilience.DoVal(detached, n.retry, n.post)
		if err != nil {
			zap.L().Warn("downstream refresh failed", zap.Error(err))
		}
		done <- outcome{updated, err}
	}()

	select {
	case o := <-done:
		return o.updated, o.err
	case <-time.After(n.wait):
		zap.L().Warn("downstream refresh still running, detaching",
			zap.Duration("waited", n.wait))
		return 0, ErrPending
	}
}

func (n *Notifier) post(ctx context.Context) (int, error) {
	body, err := json.Marshal(map[string]bool{"force": true})
	if err != nil {
		return 0, eris.Wrap(err, "notify: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, eris.Wrap(err, "notify: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, resilience.NewTransientError(eris.Wrap(err, "notify: post refresh"), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := eris.Errorf("notify: refresh returned %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return 0, resilience.NewTransientError(err, resp.StatusCode)
		}
		return 0, err
	}

	var result struct {
		Updated int `json:"updated"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, eris.Wrap(err, "notify: read response")
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return 0, eris.Wrap(err, "notify: decode response")
	}
	return result.Updated, nil
}
