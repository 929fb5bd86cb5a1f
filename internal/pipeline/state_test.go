package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextTransitions(t *testing.T) {
	cases := []struct {
		from State
		ev   Event
		to   State
	}{
		{StateInput, EventStart, StateGeneratingAnalysis},
		{StateGeneratingAnalysis, EventSuccess, StateGeneratingImage},
		{StateGeneratingAnalysis, EventFailure, StateError},
		{StateGeneratingImage, EventSuccess, StateAnalyzingCompliance},
		{StateGeneratingImage, EventFailure, StateError},
		{StateAnalyzingCompliance, EventSuccess, StateResult},
		{StateResult, EventStart, StateGeneratingAnalysis},
		{StateError, EventStart, StateGeneratingAnalysis},
	}
	for _, tc := range cases {
		got, err := Next(tc.from, tc.ev)
		require.NoError(t, err, "%s on %s", tc.ev, tc.from)
		assert.Equal(t, tc.to, got, "%s on %s", tc.ev, tc.from)
	}
}

func TestNextResetFromAnyState(t *testing.T) {
	for _, s := range []State{StateInput, StateGeneratingAnalysis, StateGeneratingImage, StateAnalyzingCompliance, StateResult, StateError} {
		got, err := Next(s, EventReset)
		require.NoError(t, err)
		assert.Equal(t, StateInput, got)
	}
}

func TestNextRejects(t *testing.T) {
	for _, s := range []State{StateGeneratingAnalysis, StateGeneratingImage, StateAnalyzingCompliance} {
		got, err := Next(s, EventStart)
		assert.ErrorIs(t, err, ErrInProgress)
		assert.Equal(t, s, got)
	}

	_, err := Next(StateAnalyzingCompliance, EventFailure)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = Next(StateInput, EventSuccess)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = Next(StateResult, EventFailure)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestStageLabels(t *testing.T) {
	assert.Equal(t, "Architectural Analysis AI", StageLabel(StateGeneratingAnalysis))
	assert.Equal(t, "Rendering Blueprint", StageLabel(StateGeneratingImage))
	assert.Equal(t, "Verifying Regulatory Compliance", StageLabel(StateAnalyzingCompliance))
	assert.Empty(t, StageLabel(StateResult))
	assert.Equal(t, StageCompliance, StageOf(StateAnalyzingCompliance))
	assert.True(t, StateGeneratingImage.Running())
	assert.True(t, StateError.Terminal())
	assert.False(t, StateInput.Running())
}
