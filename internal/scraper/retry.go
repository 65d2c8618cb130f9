package scraper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/matchday/internal/common"
)

// RetryPolicy wraps every network-facing call in the pipeline with bounded
// retry, classified exponential backoff, and a reconnection wait loop. It is
// the sole source of resilience against flaky connectivity.
type RetryPolicy struct {
	MaxAttempts       int
	BackoffBase       float64
	ReconnectURL      string
	ReconnectInterval time.Duration
	ReconnectMaxWait  time.Duration

	logger arbor.ILogger

	// Injection points for tests.
	sleep func(time.Duration)
	probe func(ctx context.Context) error
}

// NewRetryPolicy builds a policy from configuration. The reachability probe
// is a lightweight HEAD request against the configured reconnect URL.
func NewRetryPolicy(config common.RetryConfig, logger arbor.ILogger) *RetryPolicy {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(3))

	p := &RetryPolicy{
		MaxAttempts:       config.MaxAttempts,
		BackoffBase:       config.BackoffBase,
		ReconnectURL:      config.ReconnectURL,
		ReconnectInterval: config.ReconnectInterval,
		ReconnectMaxWait:  config.ReconnectMaxWait,
		logger:            logger,
		sleep:             time.Sleep,
	}
	p.probe = func(ctx context.Context) error {
		_, err := client.R().SetContext(ctx).Head(p.ReconnectURL)
		return err
	}
	return p
}

// Do executes op, retrying recoverable network failures with exponential
// backoff (base^attempt seconds) followed by a reconnection wait. Non-network
// errors propagate immediately; exhausting all attempts returns the last
// error; exceeding the reconnection budget returns ErrReconnectTimeout.
func (p *RetryPolicy) Do(ctx context.Context, name string, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if !IsNetworkError(lastErr) {
			p.logger.Debug().
				Str("op", name).
				Int("attempt", attempt).
				Err(lastErr).
				Msg("Non-recoverable error, failing immediately")
			return lastErr
		}

		if attempt == attempts {
			break
		}

		backoff := time.Duration(math.Pow(p.BackoffBase, float64(attempt)) * float64(time.Second))
		p.logger.Warn().
			Str("op", name).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("Recoverable network error, backing off")
		p.sleep(backoff)

		if err := p.waitForReconnect(ctx); err != nil {
			return err
		}
	}

	p.logger.Warn().
		Str("op", name).
		Int("max_attempts", attempts).
		Err(lastErr).
		Msg("All retry attempts exhausted")
	return lastErr
}

// DoWithResult is the value-returning form of RetryPolicy.Do.
func DoWithResult[T any](ctx context.Context, p *RetryPolicy, name string, op func() (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, name, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	return result, err
}

// waitForReconnect polls the reachability probe until it succeeds or the
// wait budget is exceeded.
func (p *RetryPolicy) waitForReconnect(ctx context.Context) error {
	if p.ReconnectURL == "" {
		return nil
	}

	interval := p.ReconnectInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	deadline := time.Now().Add(p.ReconnectMaxWait)
	for {
		if err := p.probe(ctx); err == nil {
			return nil
		} else {
			p.logger.Debug().Err(err).Msg("Reachability probe failed, still waiting")
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrReconnectTimeout, p.ReconnectMaxWait)
		}
		p.sleep(interval)
	}
}

// IsNetworkError classifies an error as a recoverable loss of connectivity:
// timeouts, DNS failures, connection errors, and the browser's net:: error
// strings surfaced through chromedp.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"net::ERR_INTERNET_DISCONNECTED",
		"net::ERR_NAME_NOT_RESOLVED",
		"net::ERR_CONNECTION",
		"net::ERR_TIMED_OUT",
		"net::ERR_NETWORK_CHANGED",
		"net::ERR_PROXY_CONNECTION_FAILED",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
