package ports

import (
	"context"

	"screenlink/internal/core/domain"
)

// ProgressFunc receives candidate-check progress during negotiation.
type ProgressFunc func(checked, total int)

// Negotiator establishes exactly one confirmed bidirectional transport
// between the two endpoints, or fails. Negotiate blocks until a terminal
// outcome and honors ctx cancellation by aborting all outstanding probes
// and closing their sockets.
type Negotiator interface {
	Negotiate(ctx context.Context, params domain.ParameterSet, onProgress ProgressFunc) (*domain.NegotiatedTransport, error)
}

// Pipeline is one directional media flow. Once Start has been called the
// pipeline is the exclusive owner of its transport.
type Pipeline interface {
	// Start activates the data path and returns immediately.
	Start(ctx context.Context) error
	// Done delivers the terminal pipeline error (e.g. transport loss)
	// at most once, then is closed.
	Done() <-chan error
	// Stats returns a snapshot of the pipeline counters.
	Stats() domain.PipelineStats
	// State returns the current pipeline state.
	State() domain.PipelineState
	// Drain stops the stages in order, flushes what the grace period
	// allows and releases every resource. Safe to call more than once.
	Drain(ctx context.Context) error
}

// PipelineBuilder turns a confirmed transport plus media parameters into
// an inactive pipeline of the right direction. media is nil for the
// receive direction.
type PipelineBuilder interface {
	Build(ctx context.Context, direction domain.Direction, transport *domain.NegotiatedTransport, media *domain.MediaParams) (Pipeline, error)
}

// MetricsRecorder receives operational measurements. Implementations
// must be safe for concurrent use; a nil-safe noop is available in the
// services package.
type MetricsRecorder interface {
	RecordStateTransition(old, new domain.SessionState)
	RecordNegotiationDuration(seconds float64)
	RecordFrameCaptured()
	RecordFrameEncoded()
	RecordFrameDropped()
	RecordFrameDelivered()
	AddBytesSent(n int)
	AddBytesReceived(n int)
}
