// ABOUTME: Retry policy configuration and exponential backoff delay calculation for collaborator calls.
// ABOUTME: Provides preset policies (none, standard, aggressive, linear, patient) and helper functions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how many times a collaborator call is retried on failure.
type RetryPolicy struct {
	MaxAttempts int // minimum 1 (1 = no retries)
	Backoff     BackoffConfig
	ShouldRetry func(error) bool
}

// BackoffConfig controls delay timing between retry attempts.
type BackoffConfig struct {
	InitialDelay time.Duration // default 200ms
	Factor       float64       // default 2.0
	MaxDelay     time.Duration // default 60s
	Jitter       bool          // default true
}

// DelayForAttempt calculates the delay for a given attempt number (0-indexed).
// The formula is: InitialDelay * Factor^attempt, capped at MaxDelay.
// If Jitter is enabled, the delay is randomized in [0, calculated_delay].
func (b BackoffConfig) DelayForAttempt(attempt int) time.Duration {
	baseNanos := float64(b.InitialDelay.Nanoseconds()) * math.Pow(b.Factor, float64(attempt))
	maxNanos := float64(b.MaxDelay.Nanoseconds())
	delayNanos := math.Min(baseNanos, maxNanos)

	if b.Jitter {
		delayNanos = rand.Float64() * delayNanos
	}

	return time.Duration(int64(delayNanos))
}

// RetryPolicyNone returns a policy with no retries (single attempt).
func RetryPolicyNone() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 1,
		Backoff: BackoffConfig{
			InitialDelay: 200 * time.Millisecond,
			Factor:       2.0,
			MaxDelay:     60 * time.Second,
			Jitter:       false,
		},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyStandard returns a standard retry policy with 5 attempts and exponential backoff.
func RetryPolicyStandard() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Backoff: BackoffConfig{
			InitialDelay: 200 * time.Millisecond,
			Factor:       2.0,
			MaxDelay:     60 * time.Second,
			Jitter:       true,
		},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyAggressive returns a policy with 5 attempts and a higher initial delay.
func RetryPolicyAggressive() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Backoff: BackoffConfig{
			InitialDelay: 500 * time.Millisecond,
			Factor:       2.0,
			MaxDelay:     60 * time.Second,
			Jitter:       true,
		},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyLinear returns a policy with 3 attempts and constant delay (factor=1.0).
func RetryPolicyLinear() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 500 * time.Millisecond,
			Factor:       1.0,
			MaxDelay:     60 * time.Second,
			Jitter:       false,
		},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyPatient returns a policy with 3 attempts, high initial delay, and steep backoff.
func RetryPolicyPatient() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 2000 * time.Millisecond,
			Factor:       3.0,
			MaxDelay:     60 * time.Second,
			Jitter:       true,
		},
		ShouldRetry: DefaultShouldRetry,
	}
}

// DefaultShouldRetry retries only collaborator errors flagged as retryable.
// Contract violations and all other errors are never retried.
func DefaultShouldRetry(err error) bool {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// RetryPolicyNamed resolves a preset by name. Unknown names are an error so
// that a typo in configuration fails fast instead of silently defaulting.
func RetryPolicyNamed(name string) (RetryPolicy, error) {
	switch name {
	case "", "standard":
		return RetryPolicyStandard(), nil
	case "none":
		return RetryPolicyNone(), nil
	case "aggressive":
		return RetryPolicyAggressive(), nil
	case "linear":
		return RetryPolicyLinear(), nil
	case "patient":
		return RetryPolicyPatient(), nil
	default:
		return RetryPolicy{}, fmt.Errorf("unknown retry policy %q", name)
	}
}

// withRetry runs fn under the policy, sleeping between attempts with backoff.
// The context cancels both the call and any pending backoff sleep.
func withRetry(ctx context.Context, policy RetryPolicy, onRetry func(attempt int, delay time.Duration, err error), fn func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		shouldRetry := policy.ShouldRetry
		if shouldRetry == nil {
			shouldRetry = DefaultShouldRetry
		}
		if attempt == attempts-1 || !shouldRetry(lastErr) {
			return lastErr
		}

		delay := policy.Backoff.DelayForAttempt(attempt)
		if onRetry != nil {
			onRetry(attempt+1, delay, lastErr)
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

// sleepWithContext waits for d or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
