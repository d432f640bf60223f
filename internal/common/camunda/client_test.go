package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"opt-eligibility/internal/common/config"
	"opt-eligibility/internal/common/errors"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"rpc error: code = NotFound desc = job not found", false},
		{"rpc error: code = InvalidArgument", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryableZeebeError(stderrors.New(tt.msg)), tt.msg)
	}
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		name      string
		msg       string
		code      errors.ErrorCode
		retryable bool
	}{
		{"timeout", "context deadline exceeded", errors.ErrCodeEligibilityCheckTimeout, true},
		{"unavailable", "code = Unavailable", errors.ErrCodeEligibilityCheckFailed, true},
		{"not found", "job not found", errors.ErrCodeEligibilityCheckFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdErr := mapZeebeError(stderrors.New(tt.msg), "complete-job", 2)

			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			assert.Equal(t, "complete-job", stdErr.Metadata["operation"])
			assert.Contains(t, stdErr.Message+stdErr.Details, "after 2 attempts")
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, backoffDelay(cfg, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(cfg, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(cfg, 2))
	assert.Equal(t, 5*time.Second, backoffDelay(cfg, 3))
}

func TestClientConfigFrom(t *testing.T) {
	cfg := ClientConfigFrom(config.CamundaConfig{
		BrokerAddress:  "zeebe:26500",
		Plaintext:      true,
		Timeout:        5000,
		RequestTimeout: 2000,
	})

	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, 5*time.Second, cfg.ConnectionTimeout)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Same(t, DefaultRetryConfig, cfg.RetryConfig)
}

func TestExecuteWithRetry(t *testing.T) {
	newClient := func(baseDelay time.Duration) *Client {
		return &Client{config: &ClientConfig{
			RetryConfig: &RetryConfig{MaxRetries: 2, BaseDelay: baseDelay, MaxDelay: baseDelay},
		}}
	}

	t.Run("transient error then success", func(t *testing.T) {
		calls := 0
		result, err := newClient(time.Millisecond).ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
			calls++
			if calls == 1 {
				return nil, stderrors.New("connection refused")
			}
			return "deployed", nil
		}, "deploy-resource")

		assert.NoError(t, err)
		assert.Equal(t, "deployed", result)
		assert.Equal(t, 2, calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		calls := 0
		_, err := newClient(time.Millisecond).ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
			calls++
			return nil, stderrors.New("rpc error: code = InvalidArgument desc = invalid BPMN")
		}, "deploy-resource")

		var stdErr *errors.StandardError
		assert.True(t, stderrors.As(err, &stdErr))
		assert.False(t, stdErr.Retryable)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		calls := 0
		_, err := newClient(time.Millisecond).ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
			calls++
			return nil, stderrors.New("code = Unavailable")
		}, "deploy-resource")

		var stdErr *errors.StandardError
		assert.True(t, stderrors.As(err, &stdErr))
		assert.Equal(t, errors.ErrCodeEligibilityCheckFailed, stdErr.Code)
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled while backing off", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newClient(time.Hour).ExecuteWithRetry(ctx, func(context.Context) (interface{}, error) {
			return nil, stderrors.New("connection reset")
		}, "deploy-resource")

		assert.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), "cancelled after 0 attempts")
	})
}
