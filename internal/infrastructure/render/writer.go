package render

import (
	"context"
	"io"

	"screenlink/internal/core/ports"
)

// WriterFactory writes access units straight to an io.Writer. Used for
// dumping a stream to a file and for tests.
type WriterFactory struct {
	W io.Writer
}

var _ ports.VideoSinkFactory = (*WriterFactory)(nil)

func (f *WriterFactory) NewSink(context.Context) (ports.VideoSink, error) {
	return &writerSink{w: f.W}, nil
}

type writerSink struct {
	w io.Writer
}

func (s *writerSink) WriteAccessUnit(au []byte) error {
	_, err := s.w.Write(au)
	return err
}

func (s *writerSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
