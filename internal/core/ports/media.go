package ports

import (
	"context"
	"image"
	"io"

	"screenlink/internal/core/domain"
)

// Screen is one attached display.
type Screen struct {
	Index  int
	Bounds image.Rectangle
}

// Grabber produces a paced stream of raw frames from one screen region.
// The frames channel is closed after Stop.
type Grabber interface {
	Start()
	Frames() <-chan *image.RGBA
	Stop()
	FPS() int
	Bounds() image.Rectangle
}

// CaptureService enumerates screens and creates grabbers. GrabberFor
// resolves the media parameters (screen index, explicit rectangle or
// all-screens union) to a concrete capture region.
type CaptureService interface {
	Screens() ([]Screen, error)
	GrabberFor(media domain.MediaParams) (Grabber, error)
}

// Encoder compresses raw frames into H.264 access units.
type Encoder interface {
	io.Closer
	Encode(*image.RGBA) ([]byte, error)
	// Size is the encoded frame size, which may differ from the capture
	// size to satisfy the codec profile.
	Size() image.Point
}

// EncoderService creates encoder instances.
type EncoderService interface {
	NewEncoder(size image.Point, fps int) (Encoder, error)
}

// VideoSink consumes decoded-order H.264 access units on the viewer
// side. The sink owns whatever decodes and displays them.
type VideoSink interface {
	io.Closer
	WriteAccessUnit(au []byte) error
}

// VideoSinkFactory opens the display path; failure maps to
// DecoderInitFailed.
type VideoSinkFactory interface {
	NewSink(ctx context.Context) (VideoSink, error)
}
