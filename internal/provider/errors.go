package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FailureReason condenses a transport error into the short, user-facing
// string recorded on a failed request. The coordinator never retries; the
// classification exists only so "Failed" reads as something actionable.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "provider timed out"
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return "provider disconnected mid-stream"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "rate limit", "too many requests", "429"):
		return "provider rate limited"
	case containsAny(msg, "overloaded_error", "529", "service unavailable", "503"):
		return "provider overloaded"
	case containsAny(msg, "unauthorized", "401", "invalid x-api-key", "authentication"):
		return "provider rejected credentials"
	case containsAny(msg, "connection reset", "connection refused", "no such host", "network is unreachable", "broken pipe"):
		return "connection to provider lost"
	case containsAny(msg, "timeout", "deadline exceeded"):
		return "provider timed out"
	}
	return fmt.Sprintf("provider error: %v", err)
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
