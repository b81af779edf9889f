package domain

import (
	"fmt"
	"net"
	"regexp"
	"strconv"

	"screenlink/pkg/errors"
)

// Role says which side of the session we are: the host captures and sends,
// the viewer receives and displays.
type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

// Mode says who initiates transport-level contact. Independent from Role:
// a host may listen or call, and so may a viewer.
type Mode string

const (
	ModeListen Mode = "listen"
	ModeCall   Mode = "call"
)

// Endpoint is a host/port pair. Host is required in call mode only.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// CaptureRect is an explicit screen region, WxH+X,Y.
type CaptureRect struct {
	Width   int
	Height  int
	OffsetX int
	OffsetY int
}

func (r CaptureRect) String() string {
	return fmt.Sprintf("%dx%d+%d,%d", r.Width, r.Height, r.OffsetX, r.OffsetY)
}

var captureRectRe = regexp.MustCompile(`^(\d+)x(\d+)\+(\d+),(\d+)$`)

// ParseCaptureRect parses the WxH+X,Y capture rectangle syntax.
func ParseCaptureRect(s string) (CaptureRect, error) {
	m := captureRectRe.FindStringSubmatch(s)
	if m == nil {
		return CaptureRect{}, errors.NewInvalidParameters(
			fmt.Sprintf("capture rectangle %q must be of form WIDTHxHEIGHT+OFFSET_X,OFFSET_Y", s))
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	x, _ := strconv.Atoi(m[3])
	y, _ := strconv.Atoi(m[4])
	if w == 0 || h == 0 {
		return CaptureRect{}, errors.NewInvalidParameters(
			fmt.Sprintf("capture rectangle %q must have non-zero width and height", s))
	}
	return CaptureRect{Width: w, Height: h, OffsetX: x, OffsetY: y}, nil
}

// MediaParams describe what the host captures and how it is encoded.
// Present only on the host side; the viewer infers everything from the
// received stream.
type MediaParams struct {
	ScreenIndex int
	Rect        *CaptureRect // overrides ScreenIndex when set
	AllScreens  bool         // union of all display bounds
	FPS         int
	BitrateKbps int
	LatencyMS   int
}

// ParameterSet is the immutable description of one session request, built
// by the CLI/GUI adapter and validated before any network activity.
type ParameterSet struct {
	Role     Role
	Mode     Mode
	Endpoint Endpoint
	Media    *MediaParams
}

// Direction derives the media direction from the role: the host always
// sends, the viewer always receives, regardless of who listens or calls.
func (p ParameterSet) Direction() Direction {
	if p.Role == RoleHost {
		return DirectionSend
	}
	return DirectionReceive
}

// Validate fails fast with an InvalidParameters error on contract
// violations the core cannot have been protected against. Range checking
// beyond this is the adapter's job.
func (p ParameterSet) Validate() error {
	switch p.Role {
	case RoleHost, RoleViewer:
	default:
		return errors.NewInvalidParameters(fmt.Sprintf("role must be host or viewer, got %q", p.Role))
	}

	switch p.Mode {
	case ModeListen, ModeCall:
	default:
		return errors.NewInvalidParameters(fmt.Sprintf("mode must be listen or call, got %q", p.Mode))
	}

	if p.Endpoint.Port <= 0 || p.Endpoint.Port > 65535 {
		return errors.NewInvalidParameters(fmt.Sprintf("port %d out of range", p.Endpoint.Port))
	}
	if p.Mode == ModeCall && p.Endpoint.Host == "" {
		return errors.NewInvalidParameters("call mode requires a remote host")
	}

	if p.Role == RoleHost {
		if p.Media == nil {
			return errors.NewInvalidParameters("host role requires media parameters")
		}
		if p.Media.FPS <= 0 {
			return errors.NewInvalidParameters(fmt.Sprintf("fps must be positive, got %d", p.Media.FPS)).
				WithContext("fps", p.Media.FPS)
		}
		if p.Media.BitrateKbps <= 0 {
			return errors.NewInvalidParameters(fmt.Sprintf("bitrate must be positive, got %d", p.Media.BitrateKbps)).
				WithContext("bitrate_kbps", p.Media.BitrateKbps)
		}
		if p.Media.LatencyMS < 0 {
			return errors.NewInvalidParameters(fmt.Sprintf("latency must be non-negative, got %d", p.Media.LatencyMS)).
				WithContext("latency_ms", p.Media.LatencyMS)
		}
		if p.Media.Rect == nil && !p.Media.AllScreens && p.Media.ScreenIndex < 0 {
			return errors.NewInvalidParameters(fmt.Sprintf("screen index must be non-negative, got %d", p.Media.ScreenIndex))
		}
	} else if p.Media != nil {
		return errors.NewInvalidParameters("viewer role takes no media parameters")
	}

	return nil
}
