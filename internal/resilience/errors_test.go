package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 529), true},
		{"wrapped explicit", fmt.Errorf("narrative: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"plain", errors.New("invalid request: max_tokens"), false},
		{"reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"dns timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"attempt deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), true},
		{"cancelled", fmt.Errorf("post: %w", context.Canceled), false},
		{"tls pattern", errors.New("net/http: TLS handshake timeout"), true},
		{"eof pattern", errors.New("read: unexpected EOF"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 409, 429, 500, 502, 503, 504, 529} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be transient", code)
		}
	}
	for _, code := range []int{0, 200, 400, 401, 403, 404, 413, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to NOT be transient", code)
		}
	}
}

func TestRetryOnStatus(t *testing.T) {
	statusErr := errors.New("api error")
	statusOf := func(err error) int {
		if errors.Is(err, statusErr) {
			return 503
		}
		return 400
	}
	retry := RetryOnStatus(statusOf)

	if !retry(fmt.Errorf("anthropic: %w", statusErr)) {
		t.Error("expected 503 to be retried")
	}
	if retry(errors.New("bad request")) {
		t.Error("expected 400 to not be retried")
	}
	if !retry(fmt.Errorf("dial: %w", syscall.ECONNREFUSED)) {
		t.Error("expected transport errors to still be retried")
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 500)

	if !errors.Is(te, inner) {
		t.Error("TransientError.Unwrap should return the inner error")
	}
	if te.Error() != "root cause" {
		t.Errorf("expected error message %q, got %q", inner.Error(), te.Error())
	}
	if te.StatusCode != 500 {
		t.Errorf("expected StatusCode 500, got %d", te.StatusCode)
	}
}
