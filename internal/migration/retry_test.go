package migration_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/glmigrate/internal/migration"
)

var errTransientCollision = errors.New("repository with that name already exists on disk")

func newFastRetryPolicy(maximumAttempts int) migration.RetryPolicy {
	return migration.RetryPolicy{
		MaxAttempts:  maximumAttempts,
		InitialDelay: time.Nanosecond,
		MaxDelay:     time.Nanosecond,
	}
}

func TestRetryPolicyRunCountsRetries(testInstance *testing.T) {
	testCases := []struct {
		name                    string
		failuresBeforeSuccess   int
		maximumAttempts         int
		expectedRetriesReported int
		expectSuccess           bool
	}{
		{
			name:                    "first_attempt_succeeds",
			failuresBeforeSuccess:   0,
			maximumAttempts:         5,
			expectedRetriesReported: 0,
			expectSuccess:           true,
		},
		{
			name:                    "two_failures_then_success",
			failuresBeforeSuccess:   2,
			maximumAttempts:         5,
			expectedRetriesReported: 2,
			expectSuccess:           true,
		},
		{
			name:                    "every_attempt_fails",
			failuresBeforeSuccess:   10,
			maximumAttempts:         5,
			expectedRetriesReported: 5,
			expectSuccess:           false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			testInstance.Parallel()

			attemptCount := 0
			retriesPerformed, runError := newFastRetryPolicy(testCase.maximumAttempts).Run(
				nil,
				func() error {
					attemptCount++
					if attemptCount <= testCase.failuresBeforeSuccess {
						return errTransientCollision
					}
					return nil
				},
				func(candidateError error) bool { return true },
			)

			require.Equal(testInstance, testCase.expectedRetriesReported, retriesPerformed)
			if testCase.expectSuccess {
				require.NoError(testInstance, runError)
				return
			}
			require.Error(testInstance, runError)
			require.True(testInstance, migration.IsAttemptsExceeded(runError))
			require.Equal(testInstance, testCase.maximumAttempts, attemptCount)
		})
	}
}

func TestRetryPolicyRunStopsOnFatalError(testInstance *testing.T) {
	testInstance.Parallel()

	fatalFailure := errors.New("namespace is not valid")
	attemptCount := 0
	retriesPerformed, runError := newFastRetryPolicy(5).Run(
		nil,
		func() error {
			attemptCount++
			return fatalFailure
		},
		func(candidateError error) bool { return false },
	)

	require.Equal(testInstance, 0, retriesPerformed)
	require.Equal(testInstance, 1, attemptCount)
	require.ErrorIs(testInstance, runError, fatalFailure)
	require.False(testInstance, migration.IsAttemptsExceeded(runError))
}

func TestAppendUniquePathSuffix(testInstance *testing.T) {
	testInstance.Parallel()

	const originalPathConstant = "platform-api"

	firstCandidate := migration.AppendUniquePathSuffix(originalPathConstant)
	secondCandidate := migration.AppendUniquePathSuffix(originalPathConstant)

	require.True(testInstance, strings.HasPrefix(firstCandidate, originalPathConstant+"-"))
	require.Len(testInstance, firstCandidate, len(originalPathConstant)+1+8)
	require.NotEqual(testInstance, firstCandidate, secondCandidate)
}
