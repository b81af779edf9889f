package media

import (
	"context"
	"image"
	"image/draw"
	"math/rand"
	"sync"
	"time"

	"github.com/nfnt/resize"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"screenlink/internal/core/domain"
	"screenlink/internal/core/ports"
	errs "screenlink/pkg/errors"
)

const rtpClockRate = 90000

type sendConfig struct {
	MTU          int
	PayloadType  uint8
	RTCPInterval time.Duration
	FPS          int
	BitrateKbps  int
	LatencyMS    int
}

// sendPipeline is the host data path: capture, encode, packetize, pace,
// write. It owns the transport exclusively once started.
type sendPipeline struct {
	transport  *domain.NegotiatedTransport
	grabber    ports.Grabber
	encoder    ports.Encoder
	queue      *frameQueue
	packetizer rtp.Packetizer
	pace       *rate.Limiter
	cfg        sendConfig
	ssrc       uint32
	metrics    ports.MetricsRecorder
	logger     *zap.SugaredLogger

	ctr     counters
	startAt time.Time

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

func newSendPipeline(transport *domain.NegotiatedTransport, grabber ports.Grabber, encoder ports.Encoder, cfg sendConfig, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) *sendPipeline {
	ssrc := rand.Uint32()

	// pace writes to the configured bitrate; the burst absorbs one MTU
	// plus slack so a keyframe does not stall forever
	bytesPerSecond := cfg.BitrateKbps * 1000 / 8
	burst := bytesPerSecond / 10
	if burst < cfg.MTU*2 {
		burst = cfg.MTU * 2
	}

	queueDepth := cfg.LatencyMS * cfg.FPS / 1000
	return &sendPipeline{
		transport: transport,
		grabber:   grabber,
		encoder:   encoder,
		queue:     newFrameQueue(queueDepth),
		packetizer: rtp.NewPacketizer(
			uint16(cfg.MTU),
			cfg.PayloadType,
			ssrc,
			&codecs.H264Payloader{},
			rtp.NewRandomSequencer(),
			rtpClockRate,
		),
		pace:     rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
		cfg:      cfg,
		ssrc:     ssrc,
		metrics:  metrics,
		logger:   logger,
		state:    domain.PipelineBuilding,
		done:     make(chan error, 1),
		draining: make(chan struct{}),
	}
}

var _ ports.Pipeline = (*sendPipeline)(nil)

func (p *sendPipeline) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.startAt = time.Now()
	p.setState(domain.PipelineRunning)

	p.grabber.Start()
	p.wg.Add(3)
	go p.captureLoop()
	go p.encodeLoop(runCtx)
	go p.feedbackLoop(runCtx)
	return nil
}

func (p *sendPipeline) Done() <-chan error { return p.done }
func (p *sendPipeline) Stats() domain.PipelineStats { return p.ctr.snapshot() }

func (p *sendPipeline) State() domain.PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *sendPipeline) setState(s domain.PipelineState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// captureLoop moves frames from the grabber into the bounded queue.
func (p *sendPipeline) captureLoop() {
	defer p.wg.Done()
	defer p.queue.Close()
	for frame := range p.grabber.Frames() {
		p.ctr.framesCaptured.Add(1)
		p.metrics.RecordFrameCaptured()
		if dropped := p.queue.Push(frame); dropped > 0 {
			p.ctr.framesDropped.Add(uint64(dropped))
			p.metrics.RecordFrameDropped()
		}
	}
}

// encodeLoop drains the queue: fit, encode, packetize, pace, write.
func (p *sendPipeline) encodeLoop(ctx context.Context) {
	defer p.wg.Done()
	samplesPerFrame := uint32(rtpClockRate / p.cfg.FPS)

	for {
		frame, ok := p.queue.Pop()
		if !ok {
			return
		}
		au, err := p.encoder.Encode(p.fitFrame(frame))
		if err != nil {
			p.logger.Warnw("frame encode failed", "error", err)
			p.ctr.framesDropped.Add(1)
			p.metrics.RecordFrameDropped()
			continue
		}
		if len(au) == 0 {
			continue
		}
		p.ctr.framesEncoded.Add(1)
		p.metrics.RecordFrameEncoded()

		for _, pkt := range p.packetizer.Packetize(au, samplesPerFrame) {
			buf, err := pkt.Marshal()
			if err != nil {
				p.logger.Warnw("rtp marshal failed", "error", err)
				continue
			}
			if err := p.pace.WaitN(ctx, len(buf)); err != nil {
				return
			}
			if _, err := p.transport.Conn.Write(buf); err != nil {
				p.fail(errs.NewTransportLost("rtp write failed").WithCause(err))
				return
			}
			p.ctr.packetsSent.Add(1)
			p.ctr.bytesSent.Add(uint64(len(buf)))
			p.metrics.AddBytesSent(len(buf))
		}
		p.ctr.framesDelivered.Add(1)
		p.metrics.RecordFrameDelivered()
	}
}

// fitFrame scales the captured frame to the encoder's profile-legal size.
func (p *sendPipeline) fitFrame(frame *image.RGBA) *image.RGBA {
	want := p.encoder.Size()
	if frame.Bounds().Size() == want {
		return frame
	}
	scaled := resize.Resize(uint(want.X), uint(want.Y), frame, resize.Bilinear)
	if rgba, ok := scaled.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, want.X, want.Y))
	draw.Draw(rgba, rgba.Bounds(), scaled, image.Point{}, draw.Src)
	return rgba
}

// feedbackLoop sends periodic sender reports and consumes the viewer's
// receiver reports for round-trip and loss measurements.
func (p *sendPipeline) feedbackLoop(ctx context.Context) {
	defer p.wg.Done()

	go p.readReports()

	ticker := time.NewTicker(p.cfg.RTCPInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.draining:
			return
		case <-ticker.C:
			sr := &rtcp.SenderReport{
				SSRC:        p.ssrc,
				NTPTime:     ntpTime(time.Now()),
				RTPTime:     uint32(time.Since(p.startAt).Seconds() * rtpClockRate),
				PacketCount: uint32(p.ctr.packetsSent.Load()),
				OctetCount:  uint32(p.ctr.bytesSent.Load()),
			}
			buf, err := rtcp.Marshal([]rtcp.Packet{sr})
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

func (p *sendPipeline) readReports() {
	buf := make([]byte, 1500)
	for {
		n, err := p.transport.Conn.Read(buf)
		if err != nil {
			p.fail(errs.NewTransportLost("transport read failed").WithCause(err))
			return
		}
		if !isRTCP(buf[:n]) {
			continue
		}
		pkts, err := rtcp.Unmarshal(buf[:n])
		if err != nil {
			continue
		}
		for _, pkt := range pkts {
			rr, ok := pkt.(*rtcp.ReceiverReport)
			if !ok {
				continue
			}
			for _, rep := range rr.Reports {
				if rep.SSRC != p.ssrc {
					continue
				}
				p.ctr.packetsLost.Store(uint64(rep.TotalLost))
				p.ctr.setFractionLost(float64(rep.FractionLost) / 256.0)
				if rep.LastSenderReport != 0 {
					if rtt := rttFromReport(time.Now(), rep.LastSenderReport, rep.Delay); rtt > 0 {
						p.ctr.rttNanos.Store(int64(rtt))
					}
				}
			}
		}
	}
}

// fail records the terminal error exactly once; during an orderly drain
// transport errors are expected and swallowed.
func (p *sendPipeline) fail(err error) {
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

// Drain stops capture, lets the encoder flush what the grace period
// allows, then releases the codec and the transport.
func (p *sendPipeline) Drain(ctx context.Context) error {
	p.drainOnce.Do(func() {
		p.setState(domain.PipelineDraining)
		close(p.draining)
		p.grabber.Stop()

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

		if p.cancel != nil {
			p.cancel()
		}
		_ = p.encoder.Close()
		_ = p.transport.Close()
		p.setState(domain.PipelineStopped)
		p.termOnce.Do(func() { close(p.done) })
	})
	return p.drainErr
}
