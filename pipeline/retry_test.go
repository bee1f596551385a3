// ABOUTME: Tests for retry presets, backoff delay calculation, and the withRetry loop.
// ABOUTME: Uses fast policies so no test sleeps for a meaningful duration.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDelayForAttemptGrowsAndCaps(t *testing.T) {
	b := BackoffConfig{InitialDelay: 100 * time.Millisecond, Factor: 2.0, MaxDelay: 500 * time.Millisecond, Jitter: false}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond}, // capped
		{10, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := b.DelayForAttempt(tc.attempt); got != tc.want {
			t.Errorf("DelayForAttempt(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestDelayForAttemptJitterStaysInRange(t *testing.T) {
	b := BackoffConfig{InitialDelay: 100 * time.Millisecond, Factor: 2.0, MaxDelay: time.Second, Jitter: true}
	for i := 0; i < 50; i++ {
		d := b.DelayForAttempt(2)
		if d < 0 || d > 400*time.Millisecond {
			t.Fatalf("jittered delay %v outside [0, 400ms]", d)
		}
	}
}

func TestRetryPolicyNamed(t *testing.T) {
	for name, wantAttempts := range map[string]int{
		"none": 1, "standard": 5, "aggressive": 5, "linear": 3, "patient": 3, "": 5,
	} {
		policy, err := RetryPolicyNamed(name)
		if err != nil {
			t.Fatalf("RetryPolicyNamed(%q): %v", name, err)
		}
		if policy.MaxAttempts != wantAttempts {
			t.Errorf("policy %q MaxAttempts = %d, want %d", name, policy.MaxAttempts, wantAttempts)
		}
	}

	if _, err := RetryPolicyNamed("bogus"); err == nil {
		t.Error("expected error for unknown policy name")
	}
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		Backoff:     BackoffConfig{InitialDelay: time.Microsecond, Factor: 1.0, MaxDelay: time.Millisecond},
		ShouldRetry: DefaultShouldRetry,
	}
}

func TestWithRetryRecoversFromTransientFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastPolicy(5), nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &CollaboratorError{Retryable: true, Err: fmt.Errorf("transient")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	fatal := &CollaboratorError{Retryable: false, Err: fmt.Errorf("rejected")}
	err := withRetry(context.Background(), fastPolicy(5), nil, func(ctx context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("err = %v, want the fatal error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	retries := 0
	err := withRetry(context.Background(), fastPolicy(3), func(attempt int, delay time.Duration, err error) {
		retries++
	}, func(ctx context.Context) error {
		calls++
		return &CollaboratorError{Retryable: true, Err: fmt.Errorf("still down")}
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if retries != 2 {
		t.Errorf("retry notifications = %d, want 2", retries)
	}
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withRetry(ctx, fastPolicy(5), nil, func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestDefaultShouldRetryClassification(t *testing.T) {
	if DefaultShouldRetry(nil) {
		t.Error("nil error should not be retried")
	}
	if DefaultShouldRetry(fmt.Errorf("plain")) {
		t.Error("plain errors should not be retried")
	}
	if !DefaultShouldRetry(&CollaboratorError{Retryable: true, Err: fmt.Errorf("x")}) {
		t.Error("retryable collaborator error should be retried")
	}
	if DefaultShouldRetry(&ContractViolationError{Stage: "s"}) {
		t.Error("contract violations should never be retried")
	}
}
