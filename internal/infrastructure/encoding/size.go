package encoding

import (
	"fmt"
	"image"
	"math"
)

var profileSizes = map[string][]image.Point{
	"3.1": {
		{X: 1280, Y: 720},
		{X: 720, Y: 576},
		{X: 720, Y: 480},
	},
}

// FindBestSizeForProfile picks the profile-legal frame size closest in
// aspect ratio to the capture region. An exact match wins; otherwise a
// smaller size with matching ratio; otherwise the nearest ratio.
func FindBestSizeForProfile(profile string, constraints image.Point) (image.Point, error) {
	sizes, ok := profileSizes[profile]
	if !ok {
		return image.Point{}, fmt.Errorf("unsupported H264 profile %s", profile)
	}

	minRatioDiff := math.MaxFloat64
	var best image.Point
	for _, size := range sizes {
		if size == constraints {
			return size, nil
		}
		lowerRes := size.X < constraints.X && size.Y < constraints.Y
		hRatio := float64(constraints.X) / float64(size.X)
		vRatio := float64(constraints.Y) / float64(size.Y)
		ratioDiff := math.Abs(hRatio - vRatio)
		if lowerRes && ratioDiff < 0.0001 {
			return size, nil
		}
		if ratioDiff < minRatioDiff {
			minRatioDiff = ratioDiff
			best = size
		}
	}
	return best, nil
}
