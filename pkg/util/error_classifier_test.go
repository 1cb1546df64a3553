package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr struct {
	code int
}

func (e *statusErr) Error() string   { return fmt.Sprintf("api error (HTTP %d)", e.code) }
func (e *statusErr) HTTPStatus() int { return e.code }

func TestIsRetryableError(t *testing.T) {
	jsonErr := json.Unmarshal([]byte("{bad"), &struct{}{})

	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil error", nil, false, ""},
		{"json syntax error", jsonErr, false, "json_decode_error"},
		{"401 auth failure", &statusErr{401}, false, "auth_failure"},
		{"403 auth failure", &statusErr{403}, false, "auth_failure"},
		{"429 rate limited", &statusErr{429}, true, "rate_limited"},
		{"500 upstream", &statusErr{500}, true, "upstream_5xx"},
		{"503 upstream", &statusErr{503}, true, "upstream_5xx"},
		{"404 not found", &statusErr{404}, false, "not_found"},
		{"400 other 4xx", &statusErr{400}, false, "upstream_4xx"},
		{"wrapped status error", fmt.Errorf("send reply: %w", &statusErr{502}), true, "upstream_5xx"},
		{"deadline exceeded", context.DeadlineExceeded, true, "timeout"},
		{"wrapped deadline exceeded", fmt.Errorf("classify completion: %w", context.DeadlineExceeded), true, "timeout"},
		{"context canceled", context.Canceled, false, "context_canceled"},
		{"circuit open", errors.New("circuit breaker is open"), true, "circuit_open"},
		{"connection refused", errors.New("dial tcp: connection refused"), true, "connection_error"},
		{"unknown", errors.New("something odd"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.errType, errType)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(1, 5, false))
	assert.True(t, ShouldRetry(1, 5, true))
	assert.True(t, ShouldRetry(5, 5, true))
	assert.False(t, ShouldRetry(6, 5, true))
}

func TestFormatRetryKey(t *testing.T) {
	assert.Equal(t, "retry:triage:alice@example.com:msg-1", FormatRetryKey("triage", "alice@example.com:msg-1"))
}
