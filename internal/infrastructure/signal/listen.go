package signal

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"screenlink/internal/core/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Listen binds the session port and waits for exactly one inbound peer,
// then runs the hello exchange. Later connections are rejected; the
// acceptor stays bound until the returned channel closes so the socket
// ownership is unambiguous.
func Listen(ctx context.Context, port int, localRole domain.Role, sessionID string, cfg Config, logger *zap.SugaredLogger) (*Channel, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind signaling port %d: %w", port, err)
	}
	return listenOn(ctx, ln, localRole, sessionID, cfg, logger)
}

func listenOn(ctx context.Context, ln net.Listener, localRole domain.Role, sessionID string, cfg Config, logger *zap.SugaredLogger) (*Channel, error) {
	connCh := make(chan *websocket.Conn, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnw("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		select {
		case connCh <- conn:
		default:
			// one-to-one session: a peer is already attached
			logger.Warnw("rejecting extra signaling connection", "remote", r.RemoteAddr)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session occupied"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}
	})

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Debugw("signaling acceptor stopped", "error", err)
		}
	}()

	var conn *websocket.Conn
	select {
	case conn = <-connCh:
	case <-ctx.Done():
		_ = srv.Close()
		return nil, ctx.Err()
	}

	ch := &Channel{
		conn:    conn,
		cfg:     cfg,
		logger:  logger,
		cleanup: func() { _ = srv.Close() },
	}

	hctx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	if err := exchangeHello(hctx, ch, localRole, sessionID); err != nil {
		_ = ch.Close()
		return nil, err
	}

	logger.Infow("peer attached",
		"remote_role", ch.remoteRole,
		"remote_session", ch.remoteID,
	)
	return ch, nil
}
