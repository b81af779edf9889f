package media

import (
	"math"
	"sync/atomic"
	"time"

	"screenlink/internal/core/domain"
)

// counters are the shared pipeline measurements. Written from the data
// path goroutines, snapshotted by the controller's stats ticker.
type counters struct {
	framesCaptured  atomic.Uint64
	framesEncoded   atomic.Uint64
	framesDropped   atomic.Uint64
	framesDelivered atomic.Uint64
	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	packetsLost     atomic.Uint64
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	rttNanos        atomic.Int64
	fractionLost    atomic.Uint64 // float64 bits
}

func (c *counters) setFractionLost(f float64) {
	c.fractionLost.Store(math.Float64bits(f))
}

func (c *counters) snapshot() domain.PipelineStats {
	return domain.PipelineStats{
		FramesCaptured:  c.framesCaptured.Load(),
		FramesEncoded:   c.framesEncoded.Load(),
		FramesDropped:   c.framesDropped.Load(),
		FramesDelivered: c.framesDelivered.Load(),
		PacketsSent:     c.packetsSent.Load(),
		PacketsReceived: c.packetsReceived.Load(),
		PacketsLost:     c.packetsLost.Load(),
		BytesSent:       c.bytesSent.Load(),
		BytesReceived:   c.bytesReceived.Load(),
		RTT:             time.Duration(c.rttNanos.Load()),
		FractionLost:    math.Float64frombits(c.fractionLost.Load()),
		At:              time.Now(),
	}
}
