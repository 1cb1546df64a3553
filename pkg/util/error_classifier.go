package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// HTTPStatusError is implemented by errors that carry an upstream HTTP
// status code (e.g. provider gateway API errors).
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

// IsRetryableError determines if an error is retryable
// Returns: (isRetryable, errorType)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	errStr := err.Error()

	// JSON decode errors - 不可重试（数据格式错误）
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false, "json_decode_error"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}
	if strings.Contains(errStr, "json:") {
		return false, "json_decode_error"
	}

	// Provider/LLM HTTP errors - 根据状态码判断
	var statusErr HTTPStatusError
	if errors.As(err, &statusErr) {
		switch code := statusErr.HTTPStatus(); {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			// token 过期或无权限 - 重试也不会成功
			return false, "auth_failure"
		case code == http.StatusTooManyRequests:
			return true, "rate_limited"
		case code >= 500:
			return true, "upstream_5xx"
		case code == http.StatusNotFound:
			return false, "not_found"
		default:
			return false, "upstream_4xx"
		}
	}

	// Context timeout - 可重试
	// 注意要先于 net.Error 判断：context.DeadlineExceeded 自身实现了 net.Error
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	// Network errors - 可重试
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	// URL errors - 可重试
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	// Circuit breaker open - 可重试（等熔断器恢复）
	if strings.Contains(errStr, "circuit breaker is open") {
		return true, "circuit_open"
	}

	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") {
		return true, "connection_error"
	}

	// 默认：未知错误，保守处理 - 不重试
	return false, "unknown_error"
}

// ShouldRetry checks if an error should be retried based on retry count
func ShouldRetry(retryCount int64, maxRetries int64, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	return retryCount <= maxRetries
}
