package migration

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/retry"
)

const (
	defaultDiskConflictAttemptsConstant = 5
	defaultDiskConflictDelayConstant    = 2 * time.Second
	defaultDiskConflictMaxDelayConstant = 30 * time.Second
	pathSuffixSeparatorConstant         = "-"
	pathSuffixLengthConstant            = 8
)

// RetryPolicy bounds the disk conflict retry loop. Delays double between
// attempts up to MaxDelay.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Clock        clock.Clock
}

// DefaultRetryPolicy returns the bounded policy used for disk conflicts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  defaultDiskConflictAttemptsConstant,
		InitialDelay: defaultDiskConflictDelayConstant,
		MaxDelay:     defaultDiskConflictMaxDelayConstant,
		Clock:        clock.WallClock,
	}
}

// Sanitize replaces missing policy values with defaults.
func (policy RetryPolicy) Sanitize() RetryPolicy {
	sanitizedPolicy := policy
	if sanitizedPolicy.MaxAttempts <= 0 {
		sanitizedPolicy.MaxAttempts = defaultDiskConflictAttemptsConstant
	}
	if sanitizedPolicy.InitialDelay <= 0 {
		sanitizedPolicy.InitialDelay = defaultDiskConflictDelayConstant
	}
	if sanitizedPolicy.MaxDelay <= 0 {
		sanitizedPolicy.MaxDelay = defaultDiskConflictMaxDelayConstant
	}
	if sanitizedPolicy.Clock == nil {
		sanitizedPolicy.Clock = clock.WallClock
	}
	return sanitizedPolicy
}

// Run executes attempt until it succeeds, a non-retryable error occurs, or
// the attempt bound is exhausted. isRetryable decides which errors trigger
// another attempt. The returned count is the number of retries performed
// after the first attempt.
func (policy RetryPolicy) Run(stopChannel <-chan struct{}, attempt func() error, isRetryable func(error) bool) (int, error) {
	sanitizedPolicy := policy.Sanitize()

	retriesPerformed := 0
	callError := retry.Call(retry.CallArgs{
		Func: attempt,
		IsFatalError: func(candidateError error) bool {
			return !isRetryable(candidateError)
		},
		NotifyFunc: func(lastError error, attemptNumber int) {
			retriesPerformed = attemptNumber
		},
		Attempts:    sanitizedPolicy.MaxAttempts,
		Delay:       sanitizedPolicy.InitialDelay,
		MaxDelay:    sanitizedPolicy.MaxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       sanitizedPolicy.Clock,
		Stop:        stopChannel,
	})

	return retriesPerformed, callError
}

// IsAttemptsExceeded reports whether an error from Run means the attempt
// bound was exhausted while the failure stayed retryable.
func IsAttemptsExceeded(candidateError error) bool {
	return retry.IsAttemptsExceeded(candidateError)
}

// AppendUniquePathSuffix returns the path with a fresh random suffix, used to
// sidestep destination storage collisions that survive API existence checks.
func AppendUniquePathSuffix(originalPath string) string {
	randomSuffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:pathSuffixLengthConstant]
	return originalPath + pathSuffixSeparatorConstant + randomSuffix
}
