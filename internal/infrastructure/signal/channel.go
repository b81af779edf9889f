package signal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"screenlink/internal/core/domain"
	errs "screenlink/pkg/errors"
)

// Config bounds the signaling channel's timing.
type Config struct {
	HandshakeTimeout time.Duration
	DialAttempts     int
	DialBackoff      time.Duration
	PingInterval     time.Duration
	WriteTimeout     time.Duration
}

// DefaultConfig returns the signaling defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		DialAttempts:     5,
		DialBackoff:      500 * time.Millisecond,
		PingInterval:     10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// Channel is one established signaling connection, after the hello
// exchange. It stays open as a liveness side channel for the life of
// the session; media never flows on it.
type Channel struct {
	conn       *websocket.Conn
	cfg        Config
	logger     *zap.SugaredLogger
	remoteRole domain.Role
	remoteID   string

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error

	// listen side keeps the acceptor alive until the channel closes
	cleanup func()
}

// RemoteRole is the peer's announced role.
func (c *Channel) RemoteRole() domain.Role { return c.remoteRole }

// RemoteSessionID is the peer's session identifier.
func (c *Channel) RemoteSessionID() string { return c.remoteID }

// SendCredentials sends the local ICE ufrag/pwd.
func (c *Channel) SendCredentials(ufrag, pwd string) error {
	return c.send(MessageCredentials, CredentialsPayload{Ufrag: ufrag, Pwd: pwd})
}

// SendCandidate sends one local candidate in ICE attribute syntax.
func (c *Channel) SendCandidate(raw string) error {
	return c.send(MessageCandidate, CandidatePayload{Candidate: raw})
}

// SendDone signals the end of local candidates.
func (c *Channel) SendDone() error {
	return c.send(MessageDone, nil)
}

// Bye asks for an orderly close.
func (c *Channel) Bye() error {
	return c.send(MessageBye, nil)
}

func (c *Channel) send(t MessageType, payload interface{}) error {
	msg, err := newMessage(t, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("signal write %s: %w", t, err)
	}
	return nil
}

// Next blocks for the peer's next message, honoring ctx.
func (c *Channel) Next(ctx context.Context) (Message, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	} else {
		_ = c.conn.SetReadDeadline(time.Time{})
	}

	var msg Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		if ctx.Err() != nil {
			return Message{}, ctx.Err()
		}
		return Message{}, fmt.Errorf("signal read: %w", err)
	}
	return msg, nil
}

// Close shuts the socket and, on the listen side, the acceptor.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		_ = c.send(MessageBye, nil)
		c.closeErr = c.conn.Close()
		if c.cleanup != nil {
			c.cleanup()
		}
	})
	return c.closeErr
}

// exchangeHello runs the symmetric opening: both sides send hello, both
// read one. Two identical roles on one session pair is a parameter
// conflict.
func exchangeHello(ctx context.Context, c *Channel, localRole domain.Role, sessionID string) error {
	if err := c.send(MessageHello, HelloPayload{
		Version:   ProtocolVersion,
		SessionID: sessionID,
		Role:      localRole,
	}); err != nil {
		return err
	}

	msg, err := c.Next(ctx)
	if err != nil {
		return err
	}
	if msg.Type != MessageHello {
		return fmt.Errorf("expected hello, got %s", msg.Type)
	}
	var hello HelloPayload
	if err := DecodePayload(msg, &hello); err != nil {
		return err
	}
	if hello.Version != ProtocolVersion {
		return fmt.Errorf("protocol version mismatch: local %d, remote %d", ProtocolVersion, hello.Version)
	}
	if hello.Role == localRole {
		wire := errs.NewInvalidParameters(fmt.Sprintf("both sides configured as %s", localRole))
		_ = c.send(MessageError, ErrorPayload{Message: wire.Message})
		return wire
	}

	c.remoteRole = hello.Role
	c.remoteID = hello.SessionID
	return nil
}
