package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
)

func fastConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestDo_RetriesTransient(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("busy"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || len(retried) != 2 {
		t.Fatalf("expected 3 calls and 2 retries, got %d and %v", calls, retried)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(_ context.Context) error {
		calls++
		return errors.New("bad request")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected single failed call, got %d calls err=%v", calls, err)
	}
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), fastConfig(), func(_ context.Context) (int, error) {
		calls++
		return 7, NewTransientError(errors.New("down"), 500)
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if val != 0 || calls != 3 {
		t.Fatalf("expected zero value after 3 calls, got %d after %d", val, calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_ = Do(ctx, fastConfig(), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("busy"), 503)
	})
	if calls != 1 {
		t.Fatalf("expected no retry after cancellation, got %d calls", calls)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("plain"), false},
		{eris.Wrap(NewTransientError(errors.New("x"), 429), "wrapped"), true},
		{errors.New("read tcp: connection reset by peer"), true},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 503} {
		if !IsTransientHTTPStatus(code) {
			t.Fatalf("expected %d to be transient", code)
		}
	}
	if IsTransientHTTPStatus(404) {
		t.Fatalf("expected 404 to be permanent")
	}
}

func TestComputeBackoffCapped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{InitialBackoff: time.Second, MaxBackoff: 2 * time.Second})
	if d := computeBackoff(5, cfg); d > 2*time.Second+time.Duration(float64(2*time.Second)*cfg.JitterFraction) {
		t.Fatalf("backoff not capped: %s", d)
	}
}
