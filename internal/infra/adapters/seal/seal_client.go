package seal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"subscription-activation/internal/config"
	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/ports/adapter"
	"subscription-activation/internal/infra/metrics"
)

var _ adapter.SubscriptionControl = (*Client)(nil)

// Client implements adapter.SubscriptionControl against the Seal
// Subscriptions merchant API. Pause and resume are a PUT with an action
// field; both are retried with exponential backoff on transient failures
// and abort immediately on auth/config rejections.
type Client struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	maxAttempts int
	backoffBase time.Duration
	log         *zerolog.Logger
}

func NewClient(cfg config.SealConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("seal api key empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid seal base url: %w", err)
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		client:      &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		log:         logger,
	}, nil
}

func (c *Client) Name() string { return "seal" }

func (c *Client) Pause(ctx context.Context, subscriptionID string) error {
	return c.toggle(ctx, subscriptionID, "pause")
}

func (c *Client) Resume(ctx context.Context, subscriptionID string) error {
	return c.toggle(ctx, subscriptionID, "resume")
}

func (c *Client) toggle(ctx context.Context, subscriptionID, action string) error {
	body, _ := json.Marshal(struct {
		ID     interface{} `json:"id"`
		Action string      `json:"action"`
	}{ID: sealID(subscriptionID), Action: action})

	start := time.Now()
	err := c.withRetry(ctx, action, func() (permanent bool, err error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/subscription", bytes.NewReader(body))
		if err != nil {
			return true, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Seal-Token", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return false, err // network errors are transient
		}
		defer resp.Body.Close()
		return classifyStatus(resp)
	})
	metrics.ObserveControlCall(action, float64(time.Since(start).Milliseconds()), err == nil)
	return err
}

// sealID converts a numeric subscription id to an int64 so it serializes as
// a JSON number, which is what the merchant API expects. Non-numeric ids
// are passed through as strings.
func sealID(subscriptionID string) interface{} {
	if n, err := strconv.ParseInt(subscriptionID, 10, 64); err == nil {
		return n
	}
	return subscriptionID
}

// Status fetches the remote subscription state, used by the reconciler to
// cross-check records left unused after a successful resume.
func (c *Client) Status(ctx context.Context, subscriptionID string) (adapter.SubscriptionState, error) {
	u := fmt.Sprintf("%s/subscription?id=%s", c.baseURL, url.QueryEscape(subscriptionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return adapter.SubscriptionStateUnknown, err
	}
	req.Header.Set("X-Seal-Token", c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveControlCall("status", float64(time.Since(start).Milliseconds()), false)
		return adapter.SubscriptionStateUnknown, fmt.Errorf("%w: status: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	metrics.ObserveControlCall("status", float64(time.Since(start).Milliseconds()), resp.StatusCode < 300)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, err := classifyStatus(resp)
		return adapter.SubscriptionStateUnknown, err
	}

	var out struct {
		Payload struct {
			Status string `json:"status"`
		} `json:"payload"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.SubscriptionStateUnknown, fmt.Errorf("decode seal status: %w", err)
	}
	switch out.Payload.Status {
	case "active":
		return adapter.SubscriptionStateActive, nil
	case "paused":
		return adapter.SubscriptionStatePaused, nil
	default:
		return adapter.SubscriptionStateUnknown, nil
	}
}

// withRetry runs call up to maxAttempts times with exponential backoff.
// A permanent classification stops retrying immediately.
func (c *Client) withRetry(ctx context.Context, op string, call func() (permanent bool, err error)) error {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, op, ctx.Err())
			case <-time.After(delay):
			}
		}
		permanent, err := call()
		if err == nil {
			return nil
		}
		if permanent {
			return err
		}
		lastErr = err
		c.log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("seal call failed, will retry")
	}
	return fmt.Errorf("%w: %s after %d attempts: %v", domain.ErrUpstreamUnavailable, op, c.maxAttempts, lastErr)
}

// classifyStatus maps an HTTP response to (permanent, error). 2xx is
// success. Auth and other 4xx responses (except 408/429) are permanent:
// retrying a bad token or a bad request cannot help.
func classifyStatus(resp *http.Response) (bool, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return false, fmt.Errorf("%w: http %d: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, snippet)
	default:
		return true, fmt.Errorf("%w: http %d: %s", domain.ErrUpstreamRejected, resp.StatusCode, snippet)
	}
}
