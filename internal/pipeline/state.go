package pipeline

import "fmt"

// State is the workflow position of a Controller.
type State string

const (
	StateInput               State = "INPUT"
	StateGeneratingAnalysis  State = "GENERATING_ANALYSIS"
	StateGeneratingImage     State = "GENERATING_IMAGE"
	StateAnalyzingCompliance State = "ANALYZING_COMPLIANCE"
	StateResult              State = "RESULT"
	StateError               State = "ERROR"
)

// Running reports whether a stage is in flight.
func (s State) Running() bool {
	switch s {
	case StateGeneratingAnalysis, StateGeneratingImage, StateAnalyzingCompliance:
		return true
	}
	return false
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool { return s == StateResult || s == StateError }

// Stage names used for context tags, logs and metrics.
const (
	StageAnalysis   = "analysis"
	StageImage      = "image"
	StageCompliance = "compliance"
)

// StageOf returns the stage running in s, or "".
func StageOf(s State) string {
	switch s {
	case StateGeneratingAnalysis:
		return StageAnalysis
	case StateGeneratingImage:
		return StageImage
	case StateAnalyzingCompliance:
		return StageCompliance
	}
	return ""
}

// StageLabel is the progress caption shown while s is active.
func StageLabel(s State) string {
	switch s {
	case StateGeneratingAnalysis:
		return "Architectural Analysis AI"
	case StateGeneratingImage:
		return "Rendering Blueprint"
	case StateAnalyzingCompliance:
		return "Verifying Regulatory Compliance"
	}
	return ""
}

// Event drives a transition.
type Event string

const (
	EventStart   Event = "start"
	EventSuccess Event = "success"
	EventFailure Event = "failure"
	EventReset   Event = "reset"
)

var transitions = map[State]map[Event]State{
	StateInput: {
		EventStart: StateGeneratingAnalysis,
	},
	StateGeneratingAnalysis: {
		EventSuccess: StateGeneratingImage,
		EventFailure: StateError,
	},
	StateGeneratingImage: {
		EventSuccess: StateAnalyzingCompliance,
		EventFailure: StateError,
	},
	// compliance recovers its own failures, so only success leaves it
	StateAnalyzingCompliance: {
		EventSuccess: StateResult,
	},
	// start from a terminal state is an implicit reset followed by start
	StateResult: {
		EventStart: StateGeneratingAnalysis,
	},
	StateError: {
		EventStart: StateGeneratingAnalysis,
	},
}

// Next returns the state reached from s on ev. Reset is accepted from every
// state. Start while running yields ErrInProgress.
func Next(s State, ev Event) (State, error) {
	if ev == EventReset {
		return StateInput, nil
	}
	if to, ok := transitions[s][ev]; ok {
		return to, nil
	}
	if ev == EventStart && s.Running() {
		return s, ErrInProgress
	}
	return s, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, s)
}
