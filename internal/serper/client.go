// Package serper checks whether URLs are in Google's index through the Serper search API.
//
// A URL counts as indexed when a "site:<url>" query returns organic results.
// Every outcome, failures included, is reported as a models.CheckedURL so one
// bad URL never fails a batch.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/index-checker/internal/apierrors"
	"github.com/jonesrussell/index-checker/internal/circuitbreaker"
	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/httpclient"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
	"github.com/jonesrussell/index-checker/internal/retry"
)

const (
	// DetailsMissingKey is reported for every URL when no API key is configured.
	DetailsMissingKey = "SERPER_API_KEY not configured"
	// DetailsTimeout is reported when the request timed out.
	DetailsTimeout = "Timeout"

	apiKeyHeader = "X-API-KEY"
)

// Recorder receives per-request measurements. The metrics package implements it.
type Recorder interface {
	ObserveSerperRequest(duration time.Duration, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSerperRequest(time.Duration, string) {}

// Client talks to the Serper search API.
type Client struct {
	cfg      config.SerperConfig
	http     *http.Client
	limiter  *rate.Limiter
	breaker  *circuitbreaker.Breaker
	retry    retry.Config
	recorder Recorder
	log      logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRecorder reports request durations to r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithRetryConfig overrides the backoff schedule.
func WithRetryConfig(rc retry.Config) Option {
	return func(c *Client) { c.retry = rc }
}

// New creates a Client from cfg.
func New(cfg config.SerperConfig, log logger.Logger, opts ...Option) *Client {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	rps := rate.Inf
	if cfg.RPS > 0 {
		rps = rate.Limit(cfg.RPS)
	}

	c := &Client{
		cfg:      cfg,
		http:     httpclient.New(httpclient.Config{Timeout: cfg.Timeout, MaxIdleConnsPerHost: cfg.Concurrency}),
		limiter:  rate.NewLimiter(rps, max(cfg.RPS, 1)),
		recorder: nopRecorder{},
		log:      log,
	}

	c.retry = retry.DefaultConfig()
	c.retry.MaxAttempts = max(cfg.MaxRetries, 1)
	c.retry.IsRetryable = isRetryable

	c.breaker = circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		IsFailure:        isRetryable,
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("Serper circuit breaker state changed",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type searchRequest struct {
	Q string `json:"q"`
}

type searchResponse struct {
	Organic []json.RawMessage `json:"organic"`
}

// Check returns the index status of url. It never returns an error: failures
// are reported as StatusError with Details describing the cause.
func (c *Client) Check(ctx context.Context, url string) models.CheckedURL {
	result := models.CheckedURL{URL: url, CheckedAt: time.Now().UTC()}

	if c.cfg.APIKey == "" {
		result.Status = models.StatusError
		result.Details = DetailsMissingKey
		return result
	}

	var indexed bool
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, c.retry, func() error {
			var searchErr error
			indexed, searchErr = c.search(ctx, url)
			return searchErr
		})
	})

	switch {
	case err != nil:
		result.Status = models.StatusError
		result.Details = describe(err)
		c.log.Warn("Index check failed",
			logger.String("url", url),
			logger.String("details", result.Details),
		)
	case indexed:
		result.Status = models.StatusIndexed
	default:
		result.Status = models.StatusNotIndexed
	}

	return result
}

func (c *Client) search(ctx context.Context, url string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("wait for rate limiter: %w", err)
	}

	body, err := json.Marshal(searchRequest{Q: "site:" + url})
	if err != nil {
		return false, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recorder.ObserveSerperRequest(time.Since(start), "error")
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	c.recorder.ObserveSerperRequest(time.Since(start), strconv.Itoa(resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		if httpErr := apierrors.ParseHTTPError(resp); httpErr != nil {
			return false, httpErr
		}
		return false, &apierrors.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var decoded searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("decode search response: %w", err)
	}

	return len(decoded.Organic) > 0, nil
}

// CheckMany checks urls with bounded concurrency. The result order matches urls.
func (c *Client) CheckMany(ctx context.Context, urls []string) []models.CheckedURL {
	results := make([]models.CheckedURL, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for i, url := range urls {
		g.Go(func() error {
			results[i] = c.Check(gctx, url)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func isRetryable(err error) bool {
	if status, ok := apierrors.StatusCode(err); ok {
		return apierrors.IsRetryableStatus(status)
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return isTimeout(err) || retry.DefaultIsRetryable(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// describe turns err into the short details string stored with an Error result.
func describe(err error) string {
	if status, ok := apierrors.StatusCode(err); ok {
		return "HTTP " + strconv.Itoa(status)
	}
	if isTimeout(err) {
		return DetailsTimeout
	}
	var unwrapped interface{ Unwrap() []error }
	if errors.As(err, &unwrapped) {
		// retry wraps the last attempt's error alongside its sentinel; report the cause.
		errs := unwrapped.Unwrap()
		return errs[len(errs)-1].Error()
	}
	return err.Error()
}
