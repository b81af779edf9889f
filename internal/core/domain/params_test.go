package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlink/pkg/errors"
)

func hostMedia() *MediaParams {
	return &MediaParams{ScreenIndex: 0, FPS: 30, BitrateKbps: 2048, LatencyMS: 1000}
}

func TestParameterSet_Validate_AllRoleModeCombinations(t *testing.T) {
	// role and mode are independent axes; all four combinations are legal
	for _, role := range []Role{RoleHost, RoleViewer} {
		for _, mode := range []Mode{ModeListen, ModeCall} {
			p := ParameterSet{
				Role:     role,
				Mode:     mode,
				Endpoint: Endpoint{Host: "localhost", Port: 5000},
			}
			if role == RoleHost {
				p.Media = hostMedia()
			}
			assert.NoError(t, p.Validate(), "role=%s mode=%s", role, mode)
		}
	}
}

func TestParameterSet_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		p    ParameterSet
	}{
		{"no role", ParameterSet{Mode: ModeListen, Endpoint: Endpoint{Port: 5000}}},
		{"bad mode", ParameterSet{Role: RoleViewer, Mode: "dial", Endpoint: Endpoint{Port: 5000}}},
		{"host without media", ParameterSet{Role: RoleHost, Mode: ModeListen, Endpoint: Endpoint{Port: 5000}}},
		{"viewer with media", ParameterSet{Role: RoleViewer, Mode: ModeListen, Endpoint: Endpoint{Port: 5000}, Media: hostMedia()}},
		{"call without host", ParameterSet{Role: RoleViewer, Mode: ModeCall, Endpoint: Endpoint{Port: 5000}}},
		{"port zero", ParameterSet{Role: RoleViewer, Mode: ModeListen, Endpoint: Endpoint{Port: 0}}},
		{"port too large", ParameterSet{Role: RoleViewer, Mode: ModeListen, Endpoint: Endpoint{Port: 70000}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.KindInvalidParameters, errors.KindOf(err))
		})
	}
}

func TestParameterSet_Validate_MediaRanges(t *testing.T) {
	base := func() ParameterSet {
		return ParameterSet{Role: RoleHost, Mode: ModeListen, Endpoint: Endpoint{Port: 5000}, Media: hostMedia()}
	}

	p := base()
	p.Media.FPS = 0
	assert.Error(t, p.Validate())

	p = base()
	p.Media.BitrateKbps = -1
	assert.Error(t, p.Validate())

	p = base()
	p.Media.LatencyMS = -1
	assert.Error(t, p.Validate())

	// latency of zero is legal (no jitter budget)
	p = base()
	p.Media.LatencyMS = 0
	assert.NoError(t, p.Validate())

	p = base()
	p.Media.ScreenIndex = -1
	assert.Error(t, p.Validate())

	// negative screen index is fine when an explicit rectangle is given
	p = base()
	p.Media.ScreenIndex = -1
	p.Media.Rect = &CaptureRect{Width: 640, Height: 480}
	assert.NoError(t, p.Validate())
}

func TestParameterSet_Direction(t *testing.T) {
	host := ParameterSet{Role: RoleHost}
	viewer := ParameterSet{Role: RoleViewer}
	assert.Equal(t, DirectionSend, host.Direction())
	assert.Equal(t, DirectionReceive, viewer.Direction())
}

func TestParseCaptureRect(t *testing.T) {
	r, err := ParseCaptureRect("1920x1080+0,0")
	require.NoError(t, err)
	assert.Equal(t, CaptureRect{Width: 1920, Height: 1080}, r)

	r, err = ParseCaptureRect("640x480+100,200")
	require.NoError(t, err)
	assert.Equal(t, CaptureRect{Width: 640, Height: 480, OffsetX: 100, OffsetY: 200}, r)
	assert.Equal(t, "640x480+100,200", r.String())

	for _, bad := range []string{"", "1920x1080", "axb+0,0", "1920x1080+0", "0x0+0,0"} {
		_, err := ParseCaptureRect(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestEndpoint_String(t *testing.T) {
	assert.Equal(t, "localhost:5000", Endpoint{Host: "localhost", Port: 5000}.String())
	assert.Equal(t, "[::1]:5000", Endpoint{Host: "::1", Port: 5000}.String())
}
