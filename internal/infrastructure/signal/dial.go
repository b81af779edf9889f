package signal

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"screenlink/internal/core/domain"
	"screenlink/pkg/retry"
)

// Dial connects to a listening peer's session endpoint and runs the
// hello exchange. The dial is retried with backoff inside the caller's
// deadline, since the listening side may still be starting up.
func Dial(ctx context.Context, endpoint domain.Endpoint, localRole domain.Role, sessionID string, cfg Config, logger *zap.SugaredLogger) (*Channel, error) {
	url := fmt.Sprintf("ws://%s/session", endpoint.String())

	conn, err := retry.Do(ctx, retry.Config{
		MaxAttempts:  cfg.DialAttempts,
		InitialDelay: cfg.DialBackoff,
		MaxDelay:     cfg.HandshakeTimeout,
		Multiplier:   2.0,
	}, func() (*websocket.Conn, error) {
		c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			logger.Debugw("signaling dial attempt failed", "url", url, "error", err)
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dial signaling endpoint %s: %w", url, err)
	}

	ch := &Channel{
		conn:   conn,
		cfg:    cfg,
		logger: logger,
	}

	hctx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	if err := exchangeHello(hctx, ch, localRole, sessionID); err != nil {
		_ = ch.Close()
		return nil, err
	}

	logger.Infow("attached to peer",
		"remote_role", ch.remoteRole,
		"remote_session", ch.remoteID,
	)
	return ch, nil
}
