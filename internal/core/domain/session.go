package domain

// SessionID identifies one transient session.
type SessionID string

// SessionState is the controller's state machine position.
type SessionState string

const (
	StateIdle             SessionState = "idle"
	StateNegotiating      SessionState = "negotiating"
	StatePipelineBuilding SessionState = "pipeline_building"
	StateRunning          SessionState = "running"
	StateDraining         SessionState = "draining"
	StateStopped          SessionState = "stopped"
	StateFailed           SessionState = "failed"
)

// Terminal reports whether the session can never leave this state.
func (s SessionState) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

var sessionTransitions = map[SessionState][]SessionState{
	StateIdle:             {StateNegotiating, StateStopped, StateFailed},
	StateNegotiating:      {StatePipelineBuilding, StateStopped, StateFailed},
	StatePipelineBuilding: {StateRunning, StateDraining, StateFailed},
	StateRunning:          {StateDraining},
	StateDraining:         {StateStopped},
	StateStopped:          {},
	StateFailed:           {},
}

// CanTransition reports whether the state machine permits moving from s
// to next.
func (s SessionState) CanTransition(next SessionState) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Direction of the media pipeline, derived from the role.
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// PipelineState tracks the single pipeline owned by a session.
type PipelineState string

const (
	PipelineBuilding PipelineState = "building"
	PipelineRunning  PipelineState = "running"
	PipelineDraining PipelineState = "draining"
	PipelineStopped  PipelineState = "stopped"
	PipelineFailed   PipelineState = "failed"
)
