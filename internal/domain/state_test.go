package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatePredicates(t *testing.T) {
	tests := []struct {
		state    State
		polling  bool
		ready    bool
		terminal bool
	}{
		{state: IdleState()},
		{state: AwaitingIntroGeneration(), polling: true},
		{state: IntroReady(), ready: true},
		{state: AwaitingChoice(1)},
		{state: ChoiceSubmittedPolling(1), polling: true},
		{state: StageReady(3), ready: true},
		{state: AllStagesComplete()},
		{state: AwaitingFinalize(), polling: true},
		{state: FinalizeComplete(), terminal: true},
		{state: Failed(2, FailureGeneration, "x"), terminal: true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.True(t, tt.state.Phase.Valid())
			assert.Equal(t, tt.polling, tt.state.IsPolling())
			assert.Equal(t, tt.ready, tt.state.IsReady())
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
		})
	}

	assert.False(t, Phase("paused").Valid())
}

func TestIsExpired(t *testing.T) {
	assert.True(t, Failed(0, FailureExpired, "").IsExpired())
	assert.False(t, Failed(0, FailureGeneration, "").IsExpired())
	assert.False(t, IdleState().IsExpired())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_choice(2)", AwaitingChoice(2).String())
	assert.Equal(t, "intro_ready", IntroReady().String())
	assert.Equal(t, "failed(expired)", Failed(1, FailureExpired, "").String())
	assert.Equal(t, "failed(generation: gpu on fire)", Failed(1, FailureGeneration, "gpu on fire").String())
}

func TestTransitionError(t *testing.T) {
	err := &TransitionError{From: IdleState(), Op: "advance", Stage: 0}
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Contains(t, err.Error(), "advance")
	assert.Contains(t, err.Error(), "idle")
}
