package media

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3/pkg/media/samplebuilder"
	"go.uber.org/zap"

	"screenlink/internal/core/domain"
	"screenlink/internal/core/ports"
	errs "screenlink/pkg/errors"
)

type recvConfig struct {
	RTCPInterval time.Duration
	Latency      time.Duration
	FPSHint      int
}

// recvPipeline is the viewer data path: read datagrams, demux RTCP,
// resequence RTP into access units, hand them to the sink. Out-of-order
// arrivals inside the latency window are reordered; anything later is
// dropped, never delivered out of order.
type recvPipeline struct {
	transport *domain.NegotiatedTransport
	sink      ports.VideoSink
	builder   *samplebuilder.SampleBuilder
	cfg       recvConfig
	ssrc      uint32
	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger

	ctr counters

	// reception accounting for receiver reports, readLoop-owned except
	// under mu for the report ticker
	repMu       sync.Mutex
	remoteSSRC  uint32
	firstSeq    uint16
	haveFirst   bool
	cycles      uint32
	highestSeq  uint16
	received    uint64
	prevExpect  uint64
	prevRecv    uint64
	lastSRNTP   uint32
	lastSRAt    time.Time

	mu    sync.Mutex
	state domain.PipelineState

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	done      chan error
	termOnce  sync.Once
	drainOnce sync.Once
	draining  chan struct{}
	drainErr  error
}

func newRecvPipeline(transport *domain.NegotiatedTransport, sink ports.VideoSink, cfg recvConfig, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) *recvPipeline {
	return &recvPipeline{
		transport: transport,
		sink:      sink,
		builder:   samplebuilder.New(maxLatePackets(cfg.Latency, cfg.FPSHint), &codecs.H264Packet{}, rtpClockRate),
		cfg:       cfg,
		ssrc:      rand.Uint32(),
		metrics:   metrics,
		logger:    logger,
		state:     domain.PipelineBuilding,
		done:      make(chan error, 1),
		draining:  make(chan struct{}),
	}
}

// maxLatePackets sizes the reorder window from the latency budget and
// the expected frame rate, assuming a handful of packets per frame.
func maxLatePackets(latency time.Duration, fpsHint int) uint16 {
	const packetsPerFrame = 8
	n := int(latency.Seconds() * float64(fpsHint) * packetsPerFrame)
	if n < 32 {
		n = 32
	}
	if n > 2048 {
		n = 2048
	}
	return uint16(n)
}

var _ ports.Pipeline = (*recvPipeline)(nil)

func (p *recvPipeline) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.setState(domain.PipelineRunning)

	p.wg.Add(2)
	go p.reportLoop(runCtx)
	go p.readLoop()
	return nil
}

func (p *recvPipeline) Done() <-chan error { return p.done }
func (p *recvPipeline) Stats() domain.PipelineStats { return p.ctr.snapshot() }

func (p *recvPipeline) State() domain.PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *recvPipeline) setState(s domain.PipelineState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *recvPipeline) readLoop() {
	defer p.wg.Done()
	buf := make([]byte, 1500)
	for {
		n, err := p.transport.Conn.Read(buf)
		if err != nil {
			p.fail(errs.NewTransportLost("transport read failed").WithCause(err))
			return
		}
		if isRTCP(buf[:n]) {
			p.handleRTCP(buf[:n])
			continue
		}

		var pkt rtp.Packet
		if err := pkt.Unmarshal(append([]byte(nil), buf[:n]...)); err != nil {
			continue
		}
		p.ctr.packetsReceived.Add(1)
		p.ctr.bytesReceived.Add(uint64(n))
		p.metrics.AddBytesReceived(n)
		p.trackReception(&pkt)

		p.builder.Push(&pkt)
		for {
			sample := p.builder.Pop()
			if sample == nil {
				break
			}
			if err := p.sink.WriteAccessUnit(sample.Data); err != nil {
				p.fail(errs.Wrap(err, errs.KindInternal, "display sink rejected access unit"))
				return
			}
			p.ctr.framesDelivered.Add(1)
			p.metrics.RecordFrameDelivered()
		}
	}
}

func (p *recvPipeline) handleRTCP(buf []byte) {
	pkts, err := rtcp.Unmarshal(buf)
	if err != nil {
		return
	}
	for _, pkt := range pkts {
		if sr, ok := pkt.(*rtcp.SenderReport); ok {
			p.repMu.Lock()
			p.lastSRNTP = compactNTP(sr.NTPTime)
			p.lastSRAt = time.Now()
			p.repMu.Unlock()
		}
	}
}

// trackReception maintains the extended highest sequence number and the
// cumulative receive count the receiver reports are built from.
func (p *recvPipeline) trackReception(pkt *rtp.Packet) {
	p.repMu.Lock()
	defer p.repMu.Unlock()

	p.remoteSSRC = pkt.SSRC
	p.received++
	if !p.haveFirst {
		p.haveFirst = true
		p.firstSeq = pkt.SequenceNumber
		p.highestSeq = pkt.SequenceNumber
		return
	}
	// sequence wrap: a big negative jump means a new cycle
	if pkt.SequenceNumber < p.highestSeq && p.highestSeq-pkt.SequenceNumber > 0x8000 {
		p.cycles++
		p.highestSeq = pkt.SequenceNumber
	} else if pkt.SequenceNumber > p.highestSeq {
		p.highestSeq = pkt.SequenceNumber
	}
}

// reportLoop sends periodic receiver reports so the sender can observe
// loss and round trips.
func (p *recvPipeline) reportLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.RTCPInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.draining:
			return
		case <-ticker.C:
			rr := p.buildReceiverReport()
			if rr == nil {
				continue
			}
			buf, err := rtcp.Marshal([]rtcp.Packet{rr})
			if err != nil {
				continue
			}
			if _, err := p.transport.Conn.Write(buf); err != nil {
				p.fail(errs.NewTransportLost("rtcp write failed").WithCause(err))
				return
			}
		}
	}
}

func (p *recvPipeline) buildReceiverReport() *rtcp.ReceiverReport {
	p.repMu.Lock()
	defer p.repMu.Unlock()
	if !p.haveFirst {
		return nil
	}

	extended := uint64(p.cycles)<<16 | uint64(p.highestSeq)
	expected := extended - uint64(p.firstSeq) + 1
	lost := int64(expected) - int64(p.received)
	if lost < 0 {
		lost = 0
	}

	intervalExpected := expected - p.prevExpect
	intervalReceived := p.received - p.prevRecv
	p.prevExpect = expected
	p.prevRecv = p.received

	var fraction uint8
	if intervalExpected > intervalReceived && intervalExpected > 0 {
		fraction = uint8((intervalExpected - intervalReceived) * 256 / intervalExpected)
	}
	p.ctr.packetsLost.Store(uint64(lost))
	p.ctr.setFractionLost(float64(fraction) / 256.0)

	var delay uint32
	if !p.lastSRAt.IsZero() {
		delay = uint32(time.Since(p.lastSRAt).Seconds() * 65536)
	}

	return &rtcp.ReceiverReport{
		SSRC: p.ssrc,
		Reports: []rtcp.ReceptionReport{{
			SSRC:               p.remoteSSRC,
			FractionLost:       fraction,
			TotalLost:          uint32(lost),
			LastSequenceNumber: uint32(extended),
			LastSenderReport:   p.lastSRNTP,
			Delay:              delay,
		}},
	}
}

func (p *recvPipeline) fail(err error) {
	select {
	case <-p.draining:
		return
	default:
	}
	p.termOnce.Do(func() {
		p.setState(domain.PipelineFailed)
		p.done <- err
		close(p.done)
	})
	if p.cancel != nil {
		p.cancel()
	}
}

// Drain closes the transport first so the read loop unblocks, then
// releases the sink.
func (p *recvPipeline) Drain(ctx context.Context) error {
	p.drainOnce.Do(func() {
		p.setState(domain.PipelineDraining)
		close(p.draining)
		if p.cancel != nil {
			p.cancel()
		}
		_ = p.transport.Close()

		finished := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-ctx.Done():
			p.drainErr = ctx.Err()
		}

		_ = p.sink.Close()
		p.setState(domain.PipelineStopped)
		p.termOnce.Do(func() { close(p.done) })
	})
	return p.drainErr
}
