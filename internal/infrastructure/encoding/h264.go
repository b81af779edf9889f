package encoding

import (
	"bytes"
	"image"

	"github.com/gen2brain/x264-go"

	"screenlink/internal/core/ports"
	errs "screenlink/pkg/errors"
)

const h264Profile = "3.1"

// h264Encoder wraps x264 tuned for live capture: zero-latency, baseline
// profile, every frame flushed so no access unit sits in the codec.
type h264Encoder struct {
	buffer  *bytes.Buffer
	encoder *x264.Encoder
	size    image.Point
}

func newH264Encoder(size image.Point, fps int) (ports.Encoder, error) {
	realSize, err := FindBestSizeForProfile(h264Profile, size)
	if err != nil {
		return nil, errs.NewEncoderInitFailed("no encodable size for capture region").WithCause(err)
	}

	buffer := bytes.NewBuffer(nil)
	opts := x264.Options{
		Width:     realSize.X,
		Height:    realSize.Y,
		FrameRate: fps,
		Tune:      "zerolatency",
		Preset:    "veryfast",
		Profile:   "baseline",
		LogLevel:  x264.LogWarning,
	}
	enc, err := x264.NewEncoder(buffer, &opts)
	if err != nil {
		return nil, errs.NewEncoderInitFailed("x264 rejected encoder options").
			WithCause(err).
			WithContext("width", realSize.X).
			WithContext("height", realSize.Y).
			WithContext("fps", fps)
	}
	return &h264Encoder{buffer: buffer, encoder: enc, size: realSize}, nil
}

// Encode compresses one frame and returns the complete access unit.
func (e *h264Encoder) Encode(frame *image.RGBA) ([]byte, error) {
	if err := e.encoder.Encode(frame); err != nil {
		return nil, err
	}
	if err := e.encoder.Flush(); err != nil {
		return nil, err
	}
	au := make([]byte, e.buffer.Len())
	copy(au, e.buffer.Bytes())
	e.buffer.Reset()
	return au, nil
}

func (e *h264Encoder) Size() image.Point { return e.size }

func (e *h264Encoder) Close() error {
	return e.encoder.Close()
}
