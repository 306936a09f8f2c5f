package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type captureObserver struct {
	fn func(LLMCallEvent)
}

func (o *captureObserver) OnCallComplete(e LLMCallEvent) { o.fn(e) }

func TestNewClient_DisabledReturnsErrDisabled(t *testing.T) {
	client := NewClient(DefaultConfig(), nil)
	_, err := client.Generate(context.Background(), GenerateRequest{Task: TaskArticle, UserPrompt: "x"})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.False(t, client.Available(context.Background()))
}

func TestNewClient_SelectsProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	_, isOllama := NewClient(cfg, nil).(*ollamaClient)
	assert.True(t, isOllama)

	cfg.Provider = ProviderOpenAI
	cfg.APIKey = "sk-test"
	_, isOpenAI := NewClient(cfg, nil).(*openAIClient)
	assert.True(t, isOpenAI)
}

func TestRetry_StopsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return errors.New("still broken")
	})
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 3, calls)
}

func TestRetry_RejectedIsNotRetried(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return &StatusError{Backend: "ollama", Code: 404, Body: "model not found"}
	})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 1, calls)
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry(ctx, 3, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, calls)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
		code string
	}{
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), ErrTimeout, "TIMEOUT"},
		{"refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, ErrUnavailable, "UNAVAILABLE"},
		{"bad request", &StatusError{Code: 400}, ErrRejected, "REJECTED"},
		{"throttled", &StatusError{Code: 429}, ErrRetryExhausted, "UNKNOWN"},
		{"server error", &StatusError{Code: 503}, ErrRetryExhausted, "UNKNOWN"},
		{"invalid output", fmt.Errorf("%w: empty", ErrInvalidOutput), ErrInvalidOutput, "INVALID_OUTPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.in)
			assert.ErrorIs(t, got, tt.want)
			assert.Equal(t, tt.code, errorCode(got))
		})
	}
	assert.NoError(t, classify(nil))
}
