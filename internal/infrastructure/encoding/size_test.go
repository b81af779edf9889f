package encoding

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBestSizeExactMatch(t *testing.T) {
	size, err := FindBestSizeForProfile("3.1", image.Point{X: 1280, Y: 720})
	require.NoError(t, err)
	assert.Equal(t, image.Point{X: 1280, Y: 720}, size)
}

func TestFindBestSizeScalesDownSameRatio(t *testing.T) {
	size, err := FindBestSizeForProfile("3.1", image.Point{X: 2560, Y: 1440})
	require.NoError(t, err)
	assert.Equal(t, image.Point{X: 1280, Y: 720}, size)
}

func TestFindBestSizeNearestRatio(t *testing.T) {
	size, err := FindBestSizeForProfile("3.1", image.Point{X: 1080, Y: 1920})
	require.NoError(t, err)
	assert.Contains(t, profileSizes["3.1"], size)
}

func TestFindBestSizeUnknownProfile(t *testing.T) {
	_, err := FindBestSizeForProfile("9.9", image.Point{X: 640, Y: 480})
	assert.Error(t, err)
}
