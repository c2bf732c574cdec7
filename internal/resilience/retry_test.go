package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int
	want := NewTransientError(errors.New("always fails"), 500)
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonTransientError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(5), func(_ context.Context) error {
		calls++
		return errors.New("bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(10)
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = time.Second

	var calls int
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("busy"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancellation did not interrupt the backoff sleep")
	}
}

func TestDo_CustomShouldRetryAndOnRetry(t *testing.T) {
	var calls int
	var retried []int
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(error) bool { return true }
	cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errors.New("retry me anyway")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("expected OnRetry for attempts [1 2], got %v", retried)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastRetry(3), func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("slow down"), 429)
		}
		return "RESUMEN DEL CLIENTE", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "RESUMEN DEL CLIENTE" {
		t.Errorf("unexpected value %q", val)
	}
}

func TestDoVal_ZeroOnFailure(t *testing.T) {
	val, err := DoVal(context.Background(), fastRetry(2), func(_ context.Context) (int, error) {
		return 42, errors.New("permanent")
	})
	if err == nil || val != 0 {
		t.Errorf("expected zero value and error, got %d, %v", val, err)
	}
}

func TestComputeBackoff_ExponentialGrowth(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	})

	expected := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	for i, want := range expected {
		if got := computeBackoff(i, cfg); got != want {
			t.Errorf("attempt %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestComputeBackoff_CapsAtMax(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
		Multiplier:     10.0,
	})
	if d := computeBackoff(5, cfg); d != 5*time.Second {
		t.Errorf("expected delay capped at 5s, got %v", d)
	}
}

func TestComputeBackoff_WithJitter(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.5,
	})

	seen := make(map[time.Duration]bool)
	for range 100 {
		d := computeBackoff(0, cfg)
		seen[d] = true
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Errorf("delay %v outside expected range [500ms, 1500ms]", d)
		}
	}
	if len(seen) < 2 {
		t.Error("expected jitter to produce varying delays")
	}
}

func TestFromRetryConfig(t *testing.T) {
	cfg := FromRetryConfig(5, 100, 2000)
	if cfg.MaxAttempts != 5 || cfg.InitialBackoff != 100*time.Millisecond || cfg.MaxBackoff != 2*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
	def := FromRetryConfig(0, -1, 0)
	if def.MaxAttempts != 3 || def.InitialBackoff != 500*time.Millisecond {
		t.Errorf("expected defaults, got %+v", def)
	}
}

func TestRetryLogger(t *testing.T) {
	t.Parallel()
	RetryLogger("anthropic", "123")(1, errors.New("test error"))
}
