package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"cancelled", context.Canceled, "request cancelled"},
		{"deadline", context.DeadlineExceeded, "provider timed out"},
		{"eof", io.ErrUnexpectedEOF, "provider disconnected mid-stream"},
		{"rate limit", errors.New("http 429: too many requests"), "provider rate limited"},
		{"overloaded", errors.New("overloaded_error: try again"), "provider overloaded"},
		{"auth", errors.New("401 unauthorized"), "provider rejected credentials"},
		{"network", errors.New("dial tcp: connection refused"), "connection to provider lost"},
		{"timeout string", errors.New("i/o timeout"), "provider timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureReason(tt.err); got != tt.want {
				t.Errorf("FailureReason(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestFailureReasonUnknownKeepsDetail(t *testing.T) {
	err := fmt.Errorf("something novel went wrong")
	got := FailureReason(err)
	if !strings.Contains(got, "something novel") {
		t.Errorf("unknown error should keep detail, got %q", got)
	}
}

func TestFailureReasonWrappedCancel(t *testing.T) {
	err := fmt.Errorf("stream aborted: %w", context.Canceled)
	if got := FailureReason(err); got != "request cancelled" {
		t.Errorf("wrapped cancel = %q, want request cancelled", got)
	}
}
