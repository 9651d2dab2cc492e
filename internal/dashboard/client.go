// Package dashboard delivers classified call results to the downstream
// dashboard. Delivery is at-least-once; the receiver upserts by call id,
// so duplicate sends converge instead of duplicating rows.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"receptionist_backend/internal/classify"
	"receptionist_backend/internal/session"
	"receptionist_backend/platform/config"
	"receptionist_backend/platform/logger"
	"receptionist_backend/platform/retryhttp"
)

// Downstream paths, relative to the configured base URL.
const (
	pathJobs        = "/api/jobs"
	pathCallHistory = "/api/call-history"
	pathAlerts      = "/api/alerts"
)

// secretHeader authenticates this service to the dashboard.
const secretHeader = "X-Dashboard-Secret"

// SendStatus is the outcome of a delivery attempt bundle.
type SendStatus string

const (
	// StatusAccepted: every payload landed.
	StatusAccepted SendStatus = "accepted"
	// StatusRetriable: at least one payload failed on a retryable cause
	// after the retry budget ran out; a deferred resync should retry.
	StatusRetriable SendStatus = "retriable_failure"
	// StatusTerminal: at least one payload was rejected outright; retrying
	// the same payload will not help.
	StatusTerminal SendStatus = "terminal_failure"
	// StatusSkipped: no dashboard configured, nothing sent.
	StatusSkipped SendStatus = "skipped"
)

// UpsertResponse is the receiver's echo identifying which idempotency
// branch fired.
type UpsertResponse struct {
	ID     string `json:"id"`
	Action string `json:"action"` // created or updated
}

// SendResult reports what happened to each payload of a bundle.
type SendResult struct {
	Status   SendStatus
	Job      *UpsertResponse
	History  *UpsertResponse
	Alert    *UpsertResponse
	Attempts int
	Err      error
}

// Client posts the three payload shapes to the dashboard through the
// retrying transport.
type Client struct {
	baseURL string
	secret  string
	http    *retryhttp.Client
	log     *logger.Logger
}

// New builds the sync client. A nil client is returned when no dashboard
// is configured; all methods on a nil client no-op with StatusSkipped.
func New(cfg interface {
	config.DashboardConfig
	config.RetryConfig
}, log *logger.Logger) *Client {
	if !cfg.IsDashboardEnabled() {
		return nil
	}
	return &Client{
		baseURL: cfg.GetDashboardBaseURL(),
		secret:  cfg.GetDashboardSecret(),
		http: retryhttp.New(
			retryhttp.WithTimeout(cfg.GetOutboundTimeout()),
			retryhttp.WithMaxRetries(cfg.GetOutboundMaxRetries()),
		),
		log: log,
	}
}

// Send delivers the job, call-history and (when warranted) alert payloads
// for a classified session. Payloads are posted concurrently; each carries
// the call id so the receiver can upsert. The first terminal failure
// dominates the result status over retriable ones.
func (c *Client) Send(ctx context.Context, s *session.CallSession, cls classify.Classification) SendResult {
	if c == nil {
		return SendResult{Status: StatusSkipped}
	}

	res := SendResult{Status: StatusAccepted}

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))

	g.Go(func() error {
		echo, attempts, err := c.post(gctx, pathJobs, BuildJob(s, cls))
		res.Job = echo
		if attempts > res.Attempts {
			res.Attempts = attempts
		}
		return err
	})
	g.Go(func() error {
		echo, _, err := c.post(gctx, pathCallHistory, BuildCallHistory(s))
		res.History = echo
		return err
	})
	if alert, ok := BuildAlert(s, cls); ok {
		g.Go(func() error {
			echo, _, err := c.post(gctx, pathAlerts, alert)
			res.Alert = echo
			return err
		})
	}

	if err := g.Wait(); err != nil {
		res.Err = err
		if retryhttp.IsTerminal(err) {
			res.Status = StatusTerminal
		} else {
			res.Status = StatusRetriable
		}
		c.log.SyncFailure(s.CallID, c.baseURL, res.Attempts, err)
	}
	return res
}

// post delivers one payload and decodes the receiver's upsert echo. A
// malformed echo is tolerated: delivery already succeeded, the echo is
// only diagnostic.
func (c *Client) post(ctx context.Context, path string, payload any) (*UpsertResponse, int, error) {
	result, err := c.http.PostJSON(ctx, c.baseURL+path, payload, map[string]string{
		secretHeader: c.secret,
	})
	if err != nil {
		var rerr *retryhttp.Error
		if errors.As(err, &rerr) {
			return nil, rerr.Attempts, fmt.Errorf("dashboard %s: %w", path, err)
		}
		return nil, 0, fmt.Errorf("dashboard %s: %w", path, err)
	}

	echo := &UpsertResponse{}
	if decodeErr := json.Unmarshal(result.Body, echo); decodeErr != nil || echo.Action == "" {
		echo = nil
	}
	return echo, result.Attempts, nil
}
