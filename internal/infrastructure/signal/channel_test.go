package signal

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"screenlink/internal/core/domain"
	errs "screenlink/pkg/errors"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HandshakeTimeout = 2 * time.Second
	cfg.DialAttempts = 10
	cfg.DialBackoff = 20 * time.Millisecond
	return cfg
}

// pair establishes a listen/dial channel pair over the loopback.
func pair(t *testing.T, listenRole, dialRole domain.Role) (*Channel, *Channel) {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	type res struct {
		ch  *Channel
		err error
	}
	listenCh := make(chan res, 1)
	go func() {
		ch, err := listenOn(ctx, ln, listenRole, "listen-session", testConfig(), logger)
		listenCh <- res{ch, err}
	}()

	dialer, err := Dial(ctx, domain.Endpoint{Host: "127.0.0.1", Port: port}, dialRole, "dial-session", testConfig(), logger)
	require.NoError(t, err)

	lres := <-listenCh
	require.NoError(t, lres.err)

	t.Cleanup(func() {
		_ = dialer.Close()
		_ = lres.ch.Close()
	})
	return lres.ch, dialer
}

func TestChannel_HelloExchange(t *testing.T) {
	listener, dialer := pair(t, domain.RoleHost, domain.RoleViewer)

	assert.Equal(t, domain.RoleViewer, listener.RemoteRole())
	assert.Equal(t, domain.RoleHost, dialer.RemoteRole())
	assert.Equal(t, "dial-session", listener.RemoteSessionID())
	assert.Equal(t, "listen-session", dialer.RemoteSessionID())
}

func TestChannel_SymmetricCandidateExchange(t *testing.T) {
	listener, dialer := pair(t, domain.RoleViewer, domain.RoleHost)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// whatever one side emits, the other consumes: run the same script
	// in both directions
	sides := []struct {
		name string
		from *Channel
		to   *Channel
	}{
		{"listen to call", listener, dialer},
		{"call to listen", dialer, listener},
	}

	for _, side := range sides {
		t.Run(side.name, func(t *testing.T) {
			require.NoError(t, side.from.SendCredentials("ufrag-"+side.name, "pwd"))
			for i := 0; i < 3; i++ {
				require.NoError(t, side.from.SendCandidate(fmt.Sprintf("candidate %d", i)))
			}
			require.NoError(t, side.from.SendDone())

			msg, err := side.to.Next(ctx)
			require.NoError(t, err)
			require.Equal(t, MessageCredentials, msg.Type)
			var creds CredentialsPayload
			require.NoError(t, DecodePayload(msg, &creds))
			assert.Equal(t, "ufrag-"+side.name, creds.Ufrag)

			for i := 0; i < 3; i++ {
				msg, err = side.to.Next(ctx)
				require.NoError(t, err)
				require.Equal(t, MessageCandidate, msg.Type)
				var cand CandidatePayload
				require.NoError(t, DecodePayload(msg, &cand))
				assert.Equal(t, fmt.Sprintf("candidate %d", i), cand.Candidate)
			}

			msg, err = side.to.Next(ctx)
			require.NoError(t, err)
			assert.Equal(t, MessageDone, msg.Type)
		})
	}
}

func TestChannel_RoleConflictRejected(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	listenErr := make(chan error, 1)
	go func() {
		ch, err := listenOn(ctx, ln, domain.RoleHost, "a", testConfig(), logger)
		if ch != nil {
			_ = ch.Close()
		}
		listenErr <- err
	}()

	// both sides claim host
	ch, err := Dial(ctx, domain.Endpoint{Host: "127.0.0.1", Port: port}, domain.RoleHost, "b", testConfig(), logger)
	if ch != nil {
		_ = ch.Close()
	}
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidParameters, errs.KindOf(err))

	require.Error(t, <-listenErr)
}

func TestListen_CancelledBeforePeerArrives(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = listenOn(ctx, ln, domain.RoleViewer, "s", testConfig(), logger)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// the acceptor socket must be released
	ln2, err := net.Listen("tcp", ln.Addr().String())
	require.NoError(t, err)
	_ = ln2.Close()
}
