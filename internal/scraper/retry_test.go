package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/matchday/internal/common"
)

func newTestPolicy(t *testing.T) (*RetryPolicy, *[]time.Duration) {
	t.Helper()
	p := NewRetryPolicy(common.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2.0,
		ReconnectURL:      "https://example.com",
		ReconnectInterval: time.Second,
		ReconnectMaxWait:  10 * time.Second,
	}, common.GetLogger())

	sleeps := &[]time.Duration{}
	p.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	p.probe = func(ctx context.Context) error { return nil }
	return p, sleeps
}

func TestDoSucceedsAfterRecoverableFailures(t *testing.T) {
	p, sleeps := newTestPolicy(t)

	calls := 0
	err := p.Do(context.Background(), "navigate", func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("navigate: %w", context.DeadlineExceeded)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// Exactly two backoff waits: 2^1 and 2^2 seconds.
	require.Len(t, *sleeps, 2)
	assert.Equal(t, 2*time.Second, (*sleeps)[0])
	assert.Equal(t, 4*time.Second, (*sleeps)[1])
}

func TestDoDoesNotRetryNonNetworkErrors(t *testing.T) {
	p, sleeps := newTestPolicy(t)

	structural := errors.New("missing standings table")
	calls := 0
	err := p.Do(context.Background(), "extract", func() error {
		calls++
		return structural
	})

	assert.ErrorIs(t, err, structural)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *sleeps)
}

func TestDoExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	p, _ := newTestPolicy(t)

	calls := 0
	err := p.Do(context.Background(), "navigate", func() error {
		calls++
		return fmt.Errorf("attempt %d: %w", calls, context.DeadlineExceeded)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "attempt 3")
}

func TestDoFailsFatallyOnReconnectTimeout(t *testing.T) {
	p, _ := newTestPolicy(t)
	p.ReconnectMaxWait = -time.Second // already expired
	p.probe = func(ctx context.Context) error { return errors.New("unreachable") }

	err := p.Do(context.Background(), "navigate", func() error {
		return context.DeadlineExceeded
	})

	assert.ErrorIs(t, err, ErrReconnectTimeout)
}

func TestDoWithResultReturnsValue(t *testing.T) {
	p, _ := newTestPolicy(t)

	calls := 0
	got, err := DoWithResult(context.Background(), p, "count", func() (int, error) {
		calls++
		if calls == 1 {
			return 0, context.DeadlineExceeded
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestIsNetworkErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), true},
		{"browser disconnect", errors.New("page load error net::ERR_INTERNET_DISCONNECTED"), true},
		{"browser dns", errors.New("page load error net::ERR_NAME_NOT_RESOLVED"), true},
		{"structural", errors.New("missing team name"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetworkError(tt.err))
		})
	}
}
