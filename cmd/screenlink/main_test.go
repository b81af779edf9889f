package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlink/internal/core/domain"
)

func TestBuildParamsHostListen(t *testing.T) {
	params, err := buildParams(5000, "", false, 1, false, "", 2048, 1000, 30)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleHost, params.Role)
	assert.Equal(t, domain.ModeListen, params.Mode)
	assert.Equal(t, 5000, params.Endpoint.Port)
	require.NotNil(t, params.Media)
	assert.Equal(t, 1, params.Media.ScreenIndex)
}

func TestBuildParamsViewerCall(t *testing.T) {
	params, err := buildParams(0, "198.51.100.7:5000", true, -1, false, "", 2048, 1000, 30)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, params.Role)
	assert.Equal(t, domain.ModeCall, params.Mode)
	assert.Equal(t, "198.51.100.7", params.Endpoint.Host)
	assert.Nil(t, params.Media)
}

func TestBuildParamsRectangle(t *testing.T) {
	params, err := buildParams(5000, "", false, -1, false, "1280x720+100,50", 2048, 1000, 30)
	require.NoError(t, err)
	require.NotNil(t, params.Media)
	require.NotNil(t, params.Media.Rect)
	assert.Equal(t, 1280, params.Media.Rect.Width)
	assert.Equal(t, 50, params.Media.Rect.OffsetY)
}

func TestBuildParamsRejectsConflicts(t *testing.T) {
	cases := []struct {
		name string
		fn   func() error
	}{
		{"listen and call", func() error {
			_, err := buildParams(5000, "h:1", true, -1, false, "", 2048, 1000, 30)
			return err
		}},
		{"view and share", func() error {
			_, err := buildParams(5000, "", true, 0, false, "", 2048, 1000, 30)
			return err
		}},
		{"no mode", func() error {
			_, err := buildParams(0, "", true, -1, false, "", 2048, 1000, 30)
			return err
		}},
		{"no role", func() error {
			_, err := buildParams(5000, "", false, -1, false, "", 2048, 1000, 30)
			return err
		}},
		{"bad rectangle", func() error {
			_, err := buildParams(5000, "", false, -1, false, "1280x720", 2048, 1000, 30)
			return err
		}},
		{"bad call endpoint", func() error {
			_, err := buildParams(0, "noport", true, -1, false, "", 2048, 1000, 30)
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.fn())
		})
	}
}

func TestBuildParamsAllScreens(t *testing.T) {
	params, err := buildParams(5000, "", false, -1, true, "", 4096, 500, 60)
	require.NoError(t, err)
	require.NotNil(t, params.Media)
	assert.True(t, params.Media.AllScreens)
	assert.Equal(t, 4096, params.Media.BitrateKbps)
	assert.Equal(t, 60, params.Media.FPS)
}
