package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"screenlink/internal/core/domain"
	"screenlink/internal/core/ports"
	errs "screenlink/pkg/errors"
	"screenlink/pkg/tracing"
)

// SessionConfig bounds the controller's timing.
type SessionConfig struct {
	DrainTimeout  time.Duration
	StatsInterval time.Duration
	EventBuffer   int
}

// DefaultSessionConfig returns the controller defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		DrainTimeout:  5 * time.Second,
		StatsInterval: 2 * time.Second,
		EventBuffer:   64,
	}
}

// Session is the state machine tying negotiation and the media pipeline
// together. It owns exactly one parameter set, one negotiator run and,
// after negotiation, one pipeline. All state changes happen on the run
// loop goroutine; observers consume Events().
type Session struct {
	id         domain.SessionID
	params     domain.ParameterSet
	negotiator ports.Negotiator
	builder    ports.PipelineBuilder
	metrics    ports.MetricsRecorder
	logger     *zap.SugaredLogger
	cfg        SessionConfig

	events chan domain.Event
	cancel chan struct{}
	done   chan struct{}

	cancelOnce sync.Once
	startOnce  sync.Once

	mu       sync.RWMutex
	state    domain.SessionState
	pipeline ports.Pipeline
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m ports.MetricsRecorder) Option {
	return func(s *Session) { s.metrics = m }
}

// WithConfig overrides the controller timing.
func WithConfig(cfg SessionConfig) Option {
	return func(s *Session) { s.cfg = cfg }
}

// NewSession validates the parameter set and builds an idle session.
// Validation failures surface as InvalidParameters before any network
// activity.
func NewSession(params domain.ParameterSet, negotiator ports.Negotiator, builder ports.PipelineBuilder, opts ...Option) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:         domain.SessionID(uuid.NewString()),
		params:     params,
		negotiator: negotiator,
		builder:    builder,
		metrics:    NoopMetrics(),
		logger:     zap.NewNop().Sugar(),
		cfg:        DefaultSessionConfig(),
		cancel:     make(chan struct{}),
		done:       make(chan struct{}),
		state:      domain.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.EventBuffer <= 0 {
		s.cfg.EventBuffer = DefaultSessionConfig().EventBuffer
	}
	s.events = make(chan domain.Event, s.cfg.EventBuffer)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() domain.SessionID { return s.id }

// State returns the current state.
func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Events is the outbound event stream. It is closed once the session
// reaches a terminal state; the adapter must drain it.
func (s *Session) Events() <-chan domain.Event { return s.events }

// Done is closed when the session has reached a terminal state and all
// resources are released.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start drives the session from Idle. It returns immediately; progress
// is reported through Events.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.run(ctx)
	})
}

// Cancel requests teardown. Valid in every state: during negotiation it
// aborts all outstanding probes, during Running it routes through
// Draining. Idempotent.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancel) })
}

type negResult struct {
	transport *domain.NegotiatedTransport
	err       error
}

type buildResult struct {
	pipeline ports.Pipeline
	err      error
}

func (s *Session) run(parent context.Context) {
	defer close(s.done)
	defer close(s.events)

	ctx, stop := context.WithCancel(parent)
	defer stop()
	go func() {
		select {
		case <-s.cancel:
			stop()
		case <-ctx.Done():
		}
	}()

	// Negotiating
	s.transition(domain.StateNegotiating)
	negStart := time.Now()
	negCtx, negSpan := tracing.TraceNegotiation(ctx, string(s.id), string(s.params.Mode))
	negCh := make(chan negResult, 1)
	go func() {
		transport, err := s.negotiator.Negotiate(negCtx, s.params, s.emitProgress)
		negCh <- negResult{transport: transport, err: err}
	}()

	res := <-negCh
	if res.err != nil {
		tracing.RecordError(negCtx, res.err)
		negSpan.End()
		if ctx.Err() != nil {
			s.logger.Infow("negotiation cancelled", "session_id", s.id)
			s.transition(domain.StateStopped)
			return
		}
		s.fail(res.err)
		return
	}
	negSpan.End()
	transport := res.transport
	s.metrics.RecordNegotiationDuration(time.Since(negStart).Seconds())
	s.logger.Infow("transport negotiated",
		"session_id", s.id,
		"local", res.transport.SelectedPair.Local.Address,
		"remote", res.transport.SelectedPair.Remote.Address,
		"rtt", res.transport.SelectedPair.RTT,
	)

	// PipelineBuilding
	s.transition(domain.StatePipelineBuilding)
	buildCtx, buildSpan := tracing.TracePipelineBuild(ctx, string(s.id), string(s.params.Direction()))
	buildCh := make(chan buildResult, 1)
	go func() {
		p, err := s.builder.Build(buildCtx, s.params.Direction(), transport, s.params.Media)
		buildCh <- buildResult{pipeline: p, err: err}
	}()

	bres := <-buildCh
	if bres.err != nil {
		tracing.RecordError(buildCtx, bres.err)
		buildSpan.End()
		_ = transport.Close()
		s.fail(bres.err)
		return
	}
	buildSpan.End()
	pipeline := bres.pipeline
	s.mu.Lock()
	s.pipeline = pipeline
	s.mu.Unlock()

	if ctx.Err() != nil {
		// cancelled between negotiation and activation
		s.drainAndStop(pipeline)
		return
	}

	if err := pipeline.Start(ctx); err != nil {
		_ = transport.Close()
		s.fail(err)
		return
	}
	s.transition(domain.StateRunning)

	// Running: watch pipeline health and report stats
	ticker := time.NewTicker(s.cfg.StatsInterval)
	defer ticker.Stop()
	prev := pipeline.Stats()

	for {
		select {
		case <-ctx.Done():
			s.drainAndStop(pipeline)
			return

		case err, ok := <-pipeline.Done():
			if ok && err != nil {
				s.emitError(err)
			}
			s.drainAndStop(pipeline)
			return

		case <-ticker.C:
			cur := pipeline.Stats()
			s.emitEvent(streamStats(s.id, prev, cur))
			prev = cur
		}
	}
}

// drainAndStop releases the pipeline with a bounded grace period and
// always reaches Stopped.
func (s *Session) drainAndStop(pipeline ports.Pipeline) {
	s.transition(domain.StateDraining)
	drainCtx, cancel := context.WithTimeout(context.Background(), s.cfg.DrainTimeout)
	defer cancel()
	drainCtx, drainSpan := tracing.TraceDrain(drainCtx, string(s.id))
	defer drainSpan.End()
	if err := pipeline.Drain(drainCtx); err != nil {
		tracing.RecordError(drainCtx, err)
		s.logger.Warnw("pipeline drain incomplete", "session_id", s.id, "error", err)
	}
	s.transition(domain.StateStopped)
}

func (s *Session) fail(err error) {
	s.emitError(err)
	s.transition(domain.StateFailed)
}

func (s *Session) transition(next domain.SessionState) {
	s.mu.Lock()
	old := s.state
	if !old.CanTransition(next) {
		s.mu.Unlock()
		s.logger.Errorw("invalid state transition", "session_id", s.id, "from", old, "to", next)
		return
	}
	s.state = next
	s.mu.Unlock()

	s.metrics.RecordStateTransition(old, next)
	s.logger.Debugw("session state changed", "session_id", s.id, "from", old, "to", next)
	s.emitEvent(domain.StateChanged{SessionID: s.id, Old: old, New: next, At: time.Now()})
}

func (s *Session) emitProgress(checked, total int) {
	s.emitDroppable(domain.Progress{SessionID: s.id, CandidatesChecked: checked, Total: total})
}

func (s *Session) emitError(err error) {
	se := errs.GetSessionError(err)
	kind := errs.KindOf(err)
	msg := err.Error()
	if se != nil {
		msg = se.Message
		if se.Cause != nil {
			msg = msg + ": " + se.Cause.Error()
		}
	}
	s.logger.Warnw("session error", "session_id", s.id, "kind", kind, "error", err)
	s.emitEvent(domain.ErrorEvent{SessionID: s.id, Kind: kind, Message: msg})
}

// emitEvent delivers events that must not be lost (state changes and
// errors); the adapter is required to drain Events().
func (s *Session) emitEvent(ev domain.Event) {
	s.events <- ev
}

// emitDroppable delivers best-effort events (progress, stats) without
// ever blocking the controller.
func (s *Session) emitDroppable(ev domain.Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func streamStats(id domain.SessionID, prev, cur domain.PipelineStats) domain.StreamStats {
	elapsed := cur.At.Sub(prev.At).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}

	bytes := (cur.BytesSent - prev.BytesSent) + (cur.BytesReceived - prev.BytesReceived)
	frames := (cur.FramesEncoded - prev.FramesEncoded) + (cur.FramesDelivered - prev.FramesDelivered)

	return domain.StreamStats{
		SessionID:       id,
		BitrateKbps:     float64(bytes) * 8 / 1000 / elapsed,
		FPS:             float64(frames) / elapsed,
		LatencyObserved: cur.RTT,
		PacketLoss:      cur.FractionLost,
		FramesDropped:   cur.FramesDropped,
	}
}
