// Package ratelimit implements a fixed-window request counter in Redis so
// every replica of the service shares one budget per client.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"opt-eligibility/internal/common/config"
	"opt-eligibility/internal/common/errors"
	"opt-eligibility/internal/common/logger"
	"opt-eligibility/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRequests  = 60
	defaultWindow    = time.Minute
	defaultKeyPrefix = "ratelimit"
)

// Decision is the limiter's verdict for one request.
type Decision struct {
	Allowed    bool
	Count      int64
	Remaining  int
	RetryAfter time.Duration
	// FailOpen is set when the backend could not be reached and the request
	// was let through uncounted.
	FailOpen bool
}

type Limiter struct {
	client   redis.Cmdable
	requests int
	window   time.Duration
	prefix   string
	now      func() time.Time
	logger   logger.Logger
}

type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(client redis.Cmdable, cfg config.RateLimitConfig, log logger.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		client:   client,
		requests: cfg.Requests,
		window:   config.GetDuration(cfg.Window),
		prefix:   cfg.KeyPrefix,
		now:      time.Now,
		logger:   log.WithFields(map[string]interface{}{"component": "ratelimit"}),
	}
	if l.requests <= 0 {
		l.requests = defaultRequests
	}
	if l.window <= 0 {
		l.window = defaultWindow
	}
	if l.prefix == "" {
		l.prefix = defaultKeyPrefix
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Window returns the length of one counting window.
func (l *Limiter) Window() time.Duration { return l.window }

// Limit returns the number of requests allowed per window.
func (l *Limiter) Limit() int { return l.requests }

// Key returns the counter key for client in the window containing at.
func (l *Limiter) Key(client string, at time.Time) string {
	start := at.Truncate(l.window)
	return fmt.Sprintf("%s:%s:%d", l.prefix, client, start.Unix())
}

// Allow counts one request for client. Backend failures never block the
// request: the decision is Allowed with FailOpen set and the error returned
// for the caller to log.
func (l *Limiter) Allow(ctx context.Context, client string) (Decision, error) {
	now := l.now()
	key := l.Key(client, now)
	windowEnd := now.Truncate(l.window).Add(l.window)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RateLimitBackendErrors.Inc()
		stdErr := errors.NewRateLimitBackendUnavailableError(err)
		l.logger.Warn("rate limit backend unavailable, allowing request", map[string]interface{}{
			"client": client,
			"error":  err.Error(),
		})
		return Decision{Allowed: true, FailOpen: true}, stdErr
	}

	count := incr.Val()
	remaining := l.requests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if count > int64(l.requests) {
		metrics.RateLimitedTotal.Inc()
		return Decision{
			Allowed:    false,
			Count:      count,
			Remaining:  0,
			RetryAfter: windowEnd.Sub(now),
		}, nil
	}

	return Decision{Allowed: true, Count: count, Remaining: remaining}, nil
}
