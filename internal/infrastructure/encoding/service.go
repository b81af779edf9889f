package encoding

import (
	"image"

	"screenlink/internal/core/ports"
)

// Service creates H.264 encoders for the send pipeline.
type Service struct{}

// NewService returns the encoder factory.
func NewService() *Service { return &Service{} }

var _ ports.EncoderService = (*Service)(nil)

// NewEncoder opens an encoder for the given capture size and rate.
func (*Service) NewEncoder(size image.Point, fps int) (ports.Encoder, error) {
	return newH264Encoder(size, fps)
}
