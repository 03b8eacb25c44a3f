package derive

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorLevels(t *testing.T) {
	cause := errors.New("boom")

	temp := NewTemporaryError(cause)
	require.ErrorIs(t, temp, ErrTemporary)
	require.NotErrorIs(t, temp, ErrReset)
	require.NotErrorIs(t, temp, ErrCritical)
	require.ErrorIs(t, temp, cause)

	reset := fmt.Errorf("wrapped: %w", NewResetError(cause))
	require.ErrorIs(t, reset, ErrReset)
	require.NotErrorIs(t, reset, ErrTemporary)

	crit := NewCriticalError(cause)
	require.ErrorIs(t, crit, ErrCritical)
	require.Equal(t, "boom: critical error", crit.Error())

	require.NotErrorIs(t, NotEnoughData, ErrTemporary)
}

func TestStepResult(t *testing.T) {
	require.Equal(t, PreparedAttributes, Prepared().Outcome)
	require.Equal(t, AdvancedOrigin, Advanced().Outcome)
	err := errors.New("oops")
	require.Equal(t, StepResult{Outcome: OriginAdvanceErr, Err: err}, OriginAdvanceFailed(err))
	require.Equal(t, StepResult{Outcome: StepFailed, Err: err}, Failed(err))
	require.Equal(t, "step-failed", StepFailed.String())
}
