package domain

import "fmt"

// Phase is the position of a session in the stage pipeline
type Phase string

const (
	PhaseIdle                    Phase = "idle"
	PhaseAwaitingIntroGeneration Phase = "awaiting_intro_generation"
	PhaseIntroReady              Phase = "intro_ready"
	PhaseAwaitingChoice          Phase = "awaiting_choice"
	PhaseChoiceSubmittedPolling  Phase = "choice_submitted_polling"
	PhaseStageReady              Phase = "stage_ready"
	PhaseAllStagesComplete       Phase = "all_stages_complete"
	PhaseAwaitingFinalize        Phase = "awaiting_finalize"
	PhaseFinalizeComplete        Phase = "finalize_complete"
	PhaseFailed                  Phase = "failed"
)

// Valid reports whether the phase is one of the known phases
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseAwaitingIntroGeneration, PhaseIntroReady, PhaseAwaitingChoice,
		PhaseChoiceSubmittedPolling, PhaseStageReady, PhaseAllStagesComplete,
		PhaseAwaitingFinalize, PhaseFinalizeComplete, PhaseFailed:
		return true
	}
	return false
}

// FailureReason classifies why a session reached the failed phase
type FailureReason string

const (
	FailureExpired    FailureReason = "expired"
	FailureGeneration FailureReason = "generation"
)

// State is the single source of truth for what a session is doing.
// Every UI condition (loading, playable, finished) is a projection of it.
type State struct {
	Failure FailureReason
	Message string
	Phase   Phase
	Stage   int
}

// IdleState is the state of a controller with no session
func IdleState() State { return State{Phase: PhaseIdle} }

// AwaitingIntroGeneration is the state right after a job starts
func AwaitingIntroGeneration() State {
	return State{Phase: PhaseAwaitingIntroGeneration, Stage: 0}
}

// IntroReady is the state once the intro has been generated
func IntroReady() State { return State{Phase: PhaseIntroReady, Stage: 0} }

// AwaitingChoice is the state of a stage waiting for the user's choice
func AwaitingChoice(stage int) State {
	return State{Phase: PhaseAwaitingChoice, Stage: stage}
}

// ChoiceSubmittedPolling is the state of a stage being generated after its choice
func ChoiceSubmittedPolling(stage int) State {
	return State{Phase: PhaseChoiceSubmittedPolling, Stage: stage}
}

// StageReady is the state of a generated stage waiting to be advanced
func StageReady(stage int) State { return State{Phase: PhaseStageReady, Stage: stage} }

// AllStagesComplete is the state once the ending has been generated and accepted
func AllStagesComplete() State {
	return State{Phase: PhaseAllStagesComplete, Stage: LastStageIndex}
}

// AwaitingFinalize is the state while the final artifact is assembled
func AwaitingFinalize() State {
	return State{Phase: PhaseAwaitingFinalize, Stage: LastStageIndex}
}

// FinalizeComplete is the terminal success state
func FinalizeComplete() State {
	return State{Phase: PhaseFinalizeComplete, Stage: LastStageIndex}
}

// Failed is the absorbing failure state
func Failed(stage int, reason FailureReason, message string) State {
	return State{Phase: PhaseFailed, Stage: stage, Failure: reason, Message: message}
}

// IsPolling reports whether a poll loop belongs to this state
func (s State) IsPolling() bool {
	switch s.Phase {
	case PhaseAwaitingIntroGeneration, PhaseChoiceSubmittedPolling, PhaseAwaitingFinalize:
		return true
	}
	return false
}

// IsReady reports whether the stage content is available for playback
func (s State) IsReady() bool {
	return s.Phase == PhaseIntroReady || s.Phase == PhaseStageReady
}

// IsTerminal reports whether no further automatic transition can happen
func (s State) IsTerminal() bool {
	return s.Phase == PhaseFinalizeComplete || s.Phase == PhaseFailed
}

// IsExpired reports whether the service no longer knows the job
func (s State) IsExpired() bool {
	return s.Phase == PhaseFailed && s.Failure == FailureExpired
}

func (s State) String() string {
	switch s.Phase {
	case PhaseAwaitingChoice, PhaseChoiceSubmittedPolling, PhaseStageReady:
		return fmt.Sprintf("%s(%d)", s.Phase, s.Stage)
	case PhaseFailed:
		if s.Message != "" {
			return fmt.Sprintf("%s(%s: %s)", s.Phase, s.Failure, s.Message)
		}
		return fmt.Sprintf("%s(%s)", s.Phase, s.Failure)
	default:
		return string(s.Phase)
	}
}
