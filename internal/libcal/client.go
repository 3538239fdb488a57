// Package libcal talks to the room-booking service: it discovers seats and
// their open slots for a date and drives the checksum-guarded booking
// transaction. All calls are sequential; each mutating call depends on the
// previous response's checksum.
package libcal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clemjvdm/libcal-cli/internal/cache"
	"github.com/clemjvdm/libcal-cli/internal/config"
	"github.com/clemjvdm/libcal-cli/internal/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	pathAvailability = "/r/new/availability"
	pathGrid         = "/spaces/availability/grid"
	pathBookingAdd   = "/spaces/availability/booking/add"
	pathConfirm      = "/ajax/space/book"

	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
)

// Client is the HTTP client for the booking service.
type Client struct {
	cfg        config.ServiceConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
	loc        *time.Location

	snapshots   cache.Store
	snapshotTTL time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithSnapshotCache caches the availability page markup between runs. Grid
// and booking responses are never cached.
func WithSnapshotCache(store cache.Store, ttl time.Duration) Option {
	return func(c *Client) {
		c.snapshots = store
		c.snapshotTTL = ttl
	}
}

// NewClient constructs a client for the configured service.
func NewClient(cfg config.ServiceConfig, logger *zerolog.Logger, opts ...Option) (*Client, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst),
		logger:     logger.With().Str("component", "libcal-client").Logger(),
		loc:        loc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) availabilityPageURL() string {
	q := url.Values{}
	q.Set("lid", fmt.Sprint(c.cfg.LocationID))
	q.Set("zone", fmt.Sprint(c.cfg.Zone))
	q.Set("gid", fmt.Sprint(c.cfg.GroupID))
	q.Set("capacity", fmt.Sprint(c.cfg.Capacity))
	return c.cfg.BaseURL + pathAvailability + "?" + q.Encode()
}

func (c *Client) applyHeaders(req *http.Request) {
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	metrics.IncRequest(req.URL.Path)
	return c.httpClient.Do(req)
}

// fetchAvailabilityPage returns the availability page markup, served from
// the snapshot cache when one is configured and still fresh.
func (c *Client) fetchAvailabilityPage(ctx context.Context) (string, error) {
	pageURL := c.availabilityPageURL()

	if c.snapshots != nil {
		if body, ok, err := c.snapshots.Get(ctx, pageURL); err == nil && ok {
			c.logger.Debug().Msg("availability page served from snapshot cache")
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build availability page request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("availability page request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("availability page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read availability page: %w", err)
	}

	if c.snapshots != nil {
		if err := c.snapshots.Set(ctx, pageURL, string(body), c.snapshotTTL); err != nil {
			c.logger.Warn().Err(err).Msg("failed to cache availability page")
		}
	}

	return string(body), nil
}

// postForm submits a url-encoded form and returns the raw response body.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	c.applyHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	return body, nil
}
