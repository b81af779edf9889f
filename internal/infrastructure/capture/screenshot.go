package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"screenlink/internal/core/domain"
	"screenlink/internal/core/ports"
	errs "screenlink/pkg/errors"
)

// Service captures displays through the X/Win32/Quartz screenshot API.
type Service struct {
	logger *zap.SugaredLogger
}

// NewService returns the platform capture service.
func NewService(logger *zap.SugaredLogger) *Service {
	return &Service{logger: logger}
}

var _ ports.CaptureService = (*Service)(nil)

// Screens enumerates the attached displays.
func (s *Service) Screens() ([]ports.Screen, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, errs.NewCaptureUnavailable("no active displays")
	}
	screens := make([]ports.Screen, n)
	for i := 0; i < n; i++ {
		screens[i] = ports.Screen{Index: i, Bounds: screenshot.GetDisplayBounds(i)}
	}
	return screens, nil
}

// GrabberFor resolves the media parameters to a capture region and
// returns a paced grabber for it. An explicit rectangle wins over the
// screen index; all-screens captures the union of the display bounds.
func (s *Service) GrabberFor(media domain.MediaParams) (ports.Grabber, error) {
	bounds, err := s.resolveBounds(media)
	if err != nil {
		return nil, err
	}
	return newGrabber(bounds, media.FPS, s.logger), nil
}

func (s *Service) resolveBounds(media domain.MediaParams) (image.Rectangle, error) {
	screens, err := s.Screens()
	if err != nil {
		return image.Rectangle{}, err
	}

	if media.Rect != nil {
		r := image.Rect(
			media.Rect.OffsetX,
			media.Rect.OffsetY,
			media.Rect.OffsetX+media.Rect.Width,
			media.Rect.OffsetY+media.Rect.Height,
		)
		whole := screens[0].Bounds
		for _, sc := range screens[1:] {
			whole = whole.Union(sc.Bounds)
		}
		if !r.In(whole) {
			return image.Rectangle{}, errs.NewCaptureUnavailable(
				fmt.Sprintf("capture rectangle %v outside display bounds %v", r, whole))
		}
		return r, nil
	}

	if media.AllScreens {
		union := screens[0].Bounds
		for _, sc := range screens[1:] {
			union = union.Union(sc.Bounds)
		}
		return union, nil
	}

	if media.ScreenIndex >= len(screens) {
		return image.Rectangle{}, errs.NewCaptureUnavailable(
			fmt.Sprintf("screen %d not present, %d attached", media.ScreenIndex, len(screens)))
	}
	return screens[media.ScreenIndex].Bounds, nil
}

// grabber captures one region at a fixed rate. The limiter, not a sleep
// loop, does the pacing, so a slow CaptureRect call does not stack up
// extra frames afterwards.
type grabber struct {
	bounds  image.Rectangle
	fps     int
	limiter *rate.Limiter
	frames  chan *image.RGBA
	stop    chan struct{}
	logger  *zap.SugaredLogger
}

func newGrabber(bounds image.Rectangle, fps int, logger *zap.SugaredLogger) *grabber {
	return &grabber{
		bounds:  bounds,
		fps:     fps,
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
		frames:  make(chan *image.RGBA),
		stop:    make(chan struct{}),
		logger:  logger,
	}
}

func (g *grabber) Frames() <-chan *image.RGBA { return g.frames }

func (g *grabber) FPS() int { return g.fps }

func (g *grabber) Bounds() image.Rectangle { return g.bounds }

func (g *grabber) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-g.stop
		cancel()
	}()
	go func() {
		defer close(g.frames)
		for {
			if err := g.limiter.Wait(ctx); err != nil {
				return
			}
			img, err := screenshot.CaptureRect(g.bounds)
			if err != nil {
				g.logger.Warnw("frame capture failed", "error", err)
				continue
			}
			select {
			case g.frames <- img:
			case <-g.stop:
				return
			}
		}
	}()
}

func (g *grabber) Stop() {
	select {
	case <-g.stop:
	default:
		close(g.stop)
	}
}
