package domain

import (
	"time"

	"screenlink/pkg/errors"
)

// EventType tags the outbound event stream consumed by adapters.
type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventProgress     EventType = "progress"
	EventError        EventType = "error"
	EventStreamStats  EventType = "stream_stats"
)

// Event is the tagged union flowing from the session controller to the
// UI/CLI adapter. The core knows nothing about how these are rendered.
type Event interface {
	Type() EventType
	Session() SessionID
}

// StateChanged is emitted on every state machine transition, no
// transition is silent.
type StateChanged struct {
	SessionID SessionID
	Old       SessionState
	New       SessionState
	At        time.Time
}

func (StateChanged) Type() EventType      { return EventStateChanged }
func (e StateChanged) Session() SessionID { return e.SessionID }

// Progress reports candidate-pair checking during negotiation.
type Progress struct {
	SessionID         SessionID
	CandidatesChecked int
	Total             int
}

func (Progress) Type() EventType      { return EventProgress }
func (e Progress) Session() SessionID { return e.SessionID }

// ErrorEvent carries kind + human-readable detail, enough for display.
type ErrorEvent struct {
	SessionID SessionID
	Kind      errors.Kind
	Message   string
}

func (ErrorEvent) Type() EventType      { return EventError }
func (e ErrorEvent) Session() SessionID { return e.SessionID }

// StreamStats is emitted periodically while media is flowing.
type StreamStats struct {
	SessionID       SessionID
	BitrateKbps     float64
	FPS             float64
	LatencyObserved time.Duration
	PacketLoss      float64
	FramesDropped   uint64
}

func (StreamStats) Type() EventType      { return EventStreamStats }
func (e StreamStats) Session() SessionID { return e.SessionID }

// PipelineStats is the raw counter snapshot a pipeline exposes; the
// controller turns deltas of these into StreamStats events.
type PipelineStats struct {
	FramesCaptured  uint64
	FramesEncoded   uint64
	FramesDropped   uint64
	FramesDelivered uint64
	PacketsSent     uint64
	PacketsReceived uint64
	PacketsLost     uint64
	BytesSent       uint64
	BytesReceived   uint64
	RTT             time.Duration
	FractionLost    float64
	At              time.Time
}
