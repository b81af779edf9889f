package services

import (
	"screenlink/internal/core/domain"
	"screenlink/internal/core/ports"
)

type noopMetrics struct{}

// NoopMetrics returns a recorder that discards everything.
func NoopMetrics() ports.MetricsRecorder { return noopMetrics{} }

func (noopMetrics) RecordStateTransition(_, _ domain.SessionState) {}
func (noopMetrics) RecordNegotiationDuration(float64)              {}
func (noopMetrics) RecordFrameCaptured()                           {}
func (noopMetrics) RecordFrameEncoded()                            {}
func (noopMetrics) RecordFrameDropped()                            {}
func (noopMetrics) RecordFrameDelivered()                          {}
func (noopMetrics) AddBytesSent(int)                               {}
func (noopMetrics) AddBytesReceived(int)                           {}
