package client

import (
	"context"
	"errors"
	"strings"

	"github.com/kjstillabower/weather-outfit-service/internal/circuitbreaker"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as metric labels (upstreamErrorsTotal).
const (
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	ErrorCategoryTimeout       ErrorCategory = "timeout"
	ErrorCategoryNetwork       ErrorCategory = "network"
	ErrorCategoryCircuitOpen   ErrorCategory = "circuit_open"
	ErrorCategoryNoData        ErrorCategory = "no_data"
	ErrorCategoryUpstream      ErrorCategory = "upstream"
	ErrorCategoryParsing       ErrorCategory = "parsing"
	ErrorCategoryUnknown       ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
// noData lets callers outside this package (which own the empty-data
// condition) mark their sentinel.
func CategorizeError(err error, noData ...error) ErrorCategory {
	if err == nil {
		return ""
	}
	for _, nd := range noData {
		if errors.Is(err, nd) {
			return ErrorCategoryNoData
		}
	}
	if errors.Is(err, ErrNoData) {
		return ErrorCategoryNoData
	}
	if errors.Is(err, ErrConfiguration) {
		return ErrorCategoryConfiguration
	}
	if errors.Is(err, ErrParse) {
		return ErrorCategoryParsing
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return ErrorCategoryCircuitOpen
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return ErrorCategoryTimeout
	}
	if strings.Contains(errStr, "circuit breaker open") {
		return ErrorCategoryCircuitOpen
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "no such host") {
		return ErrorCategoryNetwork
	}
	if errors.Is(err, ErrUpstream) {
		return ErrorCategoryUpstream
	}
	return ErrorCategoryUnknown
}
