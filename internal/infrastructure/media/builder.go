package media

import (
	"context"
	"time"

	"go.uber.org/zap"

	"screenlink/internal/core/domain"
	"screenlink/internal/core/ports"
	errs "screenlink/pkg/errors"
)

// Config carries the transport-level media settings shared by both
// directions.
type Config struct {
	MTU            int
	PayloadType    uint8
	RTCPInterval   time.Duration
	ReceiveLatency time.Duration
	ReceiveFPSHint int
}

// DefaultConfig returns the media defaults.
func DefaultConfig() Config {
	return Config{
		MTU:            1200,
		PayloadType:    96,
		RTCPInterval:   2 * time.Second,
		ReceiveLatency: time.Second,
		ReceiveFPSHint: 30,
	}
}

// Builder assembles a directional pipeline over a confirmed transport.
// Construction acquires every stage resource up front, so a session
// either starts streaming or fails before any media flows.
type Builder struct {
	capture  ports.CaptureService
	encoders ports.EncoderService
	sinks    ports.VideoSinkFactory
	cfg      Config
	metrics  ports.MetricsRecorder
	logger   *zap.SugaredLogger
}

// NewBuilder wires the stage factories for both directions.
func NewBuilder(capture ports.CaptureService, encoders ports.EncoderService, sinks ports.VideoSinkFactory, cfg Config, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) *Builder {
	return &Builder{
		capture:  capture,
		encoders: encoders,
		sinks:    sinks,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

var _ ports.PipelineBuilder = (*Builder)(nil)

// Build creates the pipeline for the given direction. On any stage
// failure everything already acquired is released before returning.
func (b *Builder) Build(ctx context.Context, direction domain.Direction, transport *domain.NegotiatedTransport, media *domain.MediaParams) (ports.Pipeline, error) {
	if transport == nil || transport.Conn == nil {
		return nil, errs.NewBuildFailed("no confirmed transport")
	}

	switch direction {
	case domain.DirectionSend:
		if media == nil {
			return nil, errs.NewBuildFailed("send pipeline requires media parameters")
		}
		return b.buildSend(transport, *media)
	case domain.DirectionReceive:
		return b.buildReceive(ctx, transport)
	default:
		return nil, errs.NewBuildFailed("unknown pipeline direction: " + string(direction))
	}
}

func (b *Builder) buildSend(transport *domain.NegotiatedTransport, media domain.MediaParams) (ports.Pipeline, error) {
	grabber, err := b.capture.GrabberFor(media)
	if err != nil {
		return nil, err
	}

	encoder, err := b.encoders.NewEncoder(grabber.Bounds().Size(), media.FPS)
	if err != nil {
		grabber.Stop()
		return nil, err
	}

	cfg := sendConfig{
		MTU:          b.cfg.MTU,
		PayloadType:  b.cfg.PayloadType,
		RTCPInterval: b.cfg.RTCPInterval,
		FPS:          media.FPS,
		BitrateKbps:  media.BitrateKbps,
		LatencyMS:    media.LatencyMS,
	}
	b.logger.Infow("send pipeline built",
		"capture", grabber.Bounds(),
		"encode", encoder.Size(),
		"fps", media.FPS,
		"bitrate_kbps", media.BitrateKbps,
	)
	return newSendPipeline(transport, grabber, encoder, cfg, b.metrics, b.logger), nil
}

func (b *Builder) buildReceive(ctx context.Context, transport *domain.NegotiatedTransport) (ports.Pipeline, error) {
	sink, err := b.sinks.NewSink(ctx)
	if err != nil {
		return nil, err
	}

	cfg := recvConfig{
		RTCPInterval: b.cfg.RTCPInterval,
		Latency:      b.cfg.ReceiveLatency,
		FPSHint:      b.cfg.ReceiveFPSHint,
	}
	b.logger.Infow("receive pipeline built",
		"latency", cfg.Latency,
		"reorder_window", maxLatePackets(cfg.Latency, cfg.FPSHint),
	)
	return newRecvPipeline(transport, sink, cfg, b.metrics, b.logger), nil
}
