package render

import (
	"context"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"screenlink/internal/core/ports"
	errs "screenlink/pkg/errors"
)

// PlayerFactory starts an external player process and feeds it Annex-B
// H.264 over stdin. Decode and display live in the player; we only own
// the pipe. The default argv drives ffplay in low-latency mode.
type PlayerFactory struct {
	Command []string
	Logger  *zap.SugaredLogger
}

// DefaultPlayerCommand is a low-latency ffplay invocation reading raw
// H.264 from stdin.
func DefaultPlayerCommand() []string {
	return []string{
		"ffplay",
		"-loglevel", "warning",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-framedrop",
		"-f", "h264",
		"-i", "pipe:0",
	}
}

var _ ports.VideoSinkFactory = (*PlayerFactory)(nil)

// NewSink spawns the player. A spawn failure means nothing can decode or
// display the stream.
func (f *PlayerFactory) NewSink(ctx context.Context) (ports.VideoSink, error) {
	argv := f.Command
	if len(argv) == 0 {
		argv = DefaultPlayerCommand()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errs.NewDecoderInitFailed("player stdin unavailable").WithCause(err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errs.NewDecoderInitFailed("player process failed to start").
			WithCause(err).
			WithContext("command", argv[0])
	}
	f.Logger.Infow("player started", "command", argv[0], "pid", cmd.Process.Pid)

	sink := &playerSink{cmd: cmd, stdin: stdin, logger: f.Logger, exited: make(chan error, 1)}
	go func() {
		// single waiter; an abnormal exit explains a vanished window
		err := cmd.Wait()
		if err != nil {
			f.Logger.Warnw("player exited", "error", err)
		}
		sink.exited <- err
	}()
	return sink, nil
}

type playerSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *zap.SugaredLogger
	exited chan error

	closeOnce sync.Once
	closeErr  error
}

func (s *playerSink) WriteAccessUnit(au []byte) error {
	_, err := s.stdin.Write(au)
	return err
}

func (s *playerSink) Close() error {
	s.closeOnce.Do(func() {
		_ = s.stdin.Close()
		s.closeErr = <-s.exited
	})
	return s.closeErr
}
