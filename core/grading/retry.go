package grading

import "time"

// AttemptState is one station of the persistence attempt state machine:
// Pending → Attempting → Succeeded | Retrying | Failed.
type AttemptState string

const (
	StatePending    AttemptState = "pending"
	StateAttempting AttemptState = "attempting"
	StateRetrying   AttemptState = "retrying"
	StateSucceeded  AttemptState = "succeeded"
	StateFailed     AttemptState = "failed"
)

var (
	nowFunc   = time.Now   // mockable
	sleepFunc = time.Sleep // mockable
)

// RetryPolicy bounds the attempts made against a flaky collaborator.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	IsRetryable func(error) bool
}

// DefaultRetryPolicy matches the grade ledger tuning: 3 attempts, exponential
// backoff from 1s capped at 5s, retrying transient failures only.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
		IsRetryable: IsTransient,
	}
}

// Backoff returns the delay observed after the given attempt (1-based)
// fails: BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay << uint(attempt-1)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	return delay
}

func (p RetryPolicy) retryable(err error) bool {
	if p.IsRetryable == nil {
		return IsTransient(err)
	}
	return p.IsRetryable(err)
}

// Run drives fn through the attempt state machine, invoking observe (when
// set) on every transition. The error returned is the last attempt's.
func (p RetryPolicy) Run(fn func() error, observe func(state AttemptState, attempt int, err error)) error {
	if observe == nil {
		observe = func(AttemptState, int, error) {}
	}
	observe(StatePending, 0, nil)

	var err error
	var attempt int
	for attempt = 1; attempt <= p.MaxAttempts; attempt++ {
		observe(StateAttempting, attempt, nil)
		if err = fn(); err == nil {
			observe(StateSucceeded, attempt, nil)
			return nil
		}
		if !p.retryable(err) || attempt == p.MaxAttempts {
			break
		}
		observe(StateRetrying, attempt, err)
		sleepFunc(p.Backoff(attempt))
	}
	observe(StateFailed, attempt, err)
	return err
}
