package transport

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/fabriqnetwork/alloy-go/pubsub"
)

// BackoffFunc returns the delay before the next retry, given the current
// retry count (starting at 0).
type BackoffFunc func(retryCount int) time.Duration

// LinearBackoff returns a BackoffFunc with a constant delay.
func LinearBackoff(delay time.Duration) BackoffFunc {
	return func(_ int) time.Duration { return delay }
}

// ExponentialBackoffOptions configures ExponentialBackoff.
type ExponentialBackoffOptions struct {
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	ExponentialFactor float64
}

// ExponentialBackoff returns a BackoffFunc computing
// BaseDelay * ExponentialFactor^retryCount, capped at MaxDelay.
func ExponentialBackoff(opts ExponentialBackoffOptions) BackoffFunc {
	return func(retryCount int) time.Duration {
		d := time.Duration(float64(opts.BaseDelay) * math.Pow(opts.ExponentialFactor, float64(retryCount)))
		if d > opts.MaxDelay {
			return opts.MaxDelay
		}
		return d
	}
}

// Retry wraps another pubsub.Connector and retries TryReconnect with backoff
// instead of surfacing the first failure. The initial Connect is never
// retried: a failure to establish the first connection is propagated to
// Dial's caller immediately, matching spec §4.E (reconnection is a service
// loop concern, not a Dial concern).
type Retry struct {
	Connector   pubsub.Connector
	BackoffFunc BackoffFunc
	MaxRetries  int // negative means unlimited
}

// Connect implements pubsub.Connector by delegating straight through.
func (r *Retry) Connect(ctx context.Context) (pubsub.ConnectionHandle, error) {
	return r.Connector.Connect(ctx)
}

// TryReconnect implements pubsub.Connector, retrying the wrapped connector's
// TryReconnect with backoff until it succeeds, MaxRetries is exhausted, or
// ctx is done.
func (r *Retry) TryReconnect(ctx context.Context) (pubsub.ConnectionHandle, error) {
	var lastErr error
	for attempt := 0; r.MaxRetries < 0 || attempt <= r.MaxRetries; attempt++ {
		handle, err := r.Connector.TryReconnect(ctx)
		if err == nil {
			return handle, nil
		}
		lastErr = err

		if r.MaxRetries >= 0 && attempt >= r.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.BackoffFunc(attempt)):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("pubsub/transport: retry exhausted with no recorded error")
	}
	return nil, lastErr
}
