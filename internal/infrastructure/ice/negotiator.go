package ice

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/ice/v2"
	"github.com/pion/stun"
	"go.uber.org/zap"

	"screenlink/internal/core/domain"
	"screenlink/internal/core/ports"
	"screenlink/internal/infrastructure/signal"
	errs "screenlink/pkg/errors"
)

// Config bounds connectivity establishment.
type Config struct {
	STUNServers        []string
	NegotiationTimeout time.Duration
	KeepaliveInterval  time.Duration
	FailedTimeout      time.Duration
}

// DefaultConfig returns the negotiation defaults.
func DefaultConfig() Config {
	return Config{
		STUNServers:        []string{"stun:stun.l.google.com:19302"},
		NegotiationTimeout: 30 * time.Second,
		KeepaliveInterval:  2 * time.Second,
		FailedTimeout:      10 * time.Second,
	}
}

// Negotiator establishes one confirmed UDP path between the two peers.
// Candidates are exchanged in-band over the signaling channel; the
// listening side runs the controlled agent, the calling side controls.
type Negotiator struct {
	cfg    Config
	sigCfg signal.Config
	logger *zap.SugaredLogger
}

// NewNegotiator builds a Negotiator with the given bounds.
func NewNegotiator(cfg Config, sigCfg signal.Config, logger *zap.SugaredLogger) *Negotiator {
	return &Negotiator{cfg: cfg, sigCfg: sigCfg, logger: logger}
}

var _ ports.Negotiator = (*Negotiator)(nil)

// Negotiate blocks until a confirmed transport exists or the attempt is
// terminal. The whole exchange, gathering included, runs under the
// negotiation timeout.
func (n *Negotiator) Negotiate(parent context.Context, params domain.ParameterSet, onProgress ports.ProgressFunc) (*domain.NegotiatedTransport, error) {
	ctx, cancel := context.WithTimeout(parent, n.cfg.NegotiationTimeout)
	defer cancel()

	sessionID := uuid.NewString()
	log := n.logger.With("session_id", sessionID, "mode", params.Mode)

	ch, err := n.openSignaling(ctx, params, sessionID, log)
	if err != nil {
		return nil, n.mapErr(parent, ctx, err, "signaling")
	}

	agent, err := n.newAgent(log)
	if err != nil {
		_ = ch.Close()
		return nil, errs.NewNoConnectivity("agent setup failed").WithCause(err)
	}

	transport, err := n.exchange(ctx, parent, params, agent, ch, onProgress, log)
	if err != nil {
		_ = agent.Close()
		_ = ch.Close()
		return nil, err
	}
	return transport, nil
}

func (n *Negotiator) openSignaling(ctx context.Context, params domain.ParameterSet, sessionID string, log *zap.SugaredLogger) (*signal.Channel, error) {
	if params.Mode == domain.ModeListen {
		return signal.Listen(ctx, params.Endpoint.Port, params.Role, sessionID, n.sigCfg, log)
	}
	return signal.Dial(ctx, params.Endpoint, params.Role, sessionID, n.sigCfg, log)
}

func (n *Negotiator) newAgent(log *zap.SugaredLogger) (*ice.Agent, error) {
	urls := make([]*stun.URI, 0, len(n.cfg.STUNServers))
	for _, raw := range n.cfg.STUNServers {
		u, err := stun.ParseURI(raw)
		if err != nil {
			return nil, errs.NewInvalidParameters("bad STUN server URI: " + raw).WithCause(err)
		}
		urls = append(urls, u)
	}

	keepalive := n.cfg.KeepaliveInterval
	failed := n.cfg.FailedTimeout
	return ice.NewAgent(&ice.AgentConfig{
		Urls:              urls,
		NetworkTypes:      []ice.NetworkType{ice.NetworkTypeUDP4},
		KeepaliveInterval: &keepalive,
		FailedTimeout:     &failed,
		LoggerFactory:     newLoggerFactory(log),
	})
}

// exchange runs trickle gathering, the credential swap and the
// connectivity checks. On success the returned transport owns the agent
// connection, the agent itself and the signaling channel.
func (n *Negotiator) exchange(ctx, parent context.Context, params domain.ParameterSet, agent *ice.Agent, ch *signal.Channel, onProgress ports.ProgressFunc, log *zap.SugaredLogger) (*domain.NegotiatedTransport, error) {
	var (
		mu        sync.Mutex
		local     []domain.Candidate
		remote    []domain.Candidate
		confirmed []domain.CandidatePair
	)

	reportProgress := func() {
		if onProgress == nil {
			return
		}
		mu.Lock()
		checked := len(confirmed)
		total := len(local) * len(remote)
		mu.Unlock()
		if total < checked {
			total = checked
		}
		onProgress(checked, total)
	}

	if err := agent.OnCandidate(func(c ice.Candidate) {
		if c == nil {
			_ = ch.SendDone()
			return
		}
		mu.Lock()
		local = append(local, toDomainCandidate(c))
		mu.Unlock()
		if err := ch.SendCandidate(c.Marshal()); err != nil {
			log.Warnw("sending candidate failed", "error", err)
		}
	}); err != nil {
		return nil, errs.NewNoConnectivity("candidate callback rejected").WithCause(err)
	}

	if err := agent.OnSelectedCandidatePairChange(func(lc, rc ice.Candidate) {
		mu.Lock()
		confirmed = append(confirmed, domain.CandidatePair{
			Local:       toDomainCandidate(lc),
			Remote:      toDomainCandidate(rc),
			ConfirmedAt: time.Now(),
		})
		mu.Unlock()
		reportProgress()
	}); err != nil {
		return nil, errs.NewNoConnectivity("pair callback rejected").WithCause(err)
	}

	localUfrag, localPwd, err := agent.GetLocalUserCredentials()
	if err != nil {
		return nil, errs.NewNoConnectivity("no local credentials").WithCause(err)
	}
	if err := ch.SendCredentials(localUfrag, localPwd); err != nil {
		return nil, n.mapErr(parent, ctx, err, "credential exchange")
	}
	if err := agent.GatherCandidates(); err != nil {
		return nil, errs.NewNoConnectivity("candidate gathering failed").WithCause(err)
	}

	// the reader feeds remote candidates into the agent as they trickle
	// in and delivers the peer credentials exactly once
	credCh := make(chan signal.CredentialsPayload, 1)
	readErr := make(chan error, 1)
	go func() {
		credSent := false
		for {
			msg, err := ch.Next(ctx)
			if err != nil {
				readErr <- err
				return
			}
			switch msg.Type {
			case signal.MessageCredentials:
				var creds signal.CredentialsPayload
				if err := decodeOr(msg, &creds, readErr); err != nil {
					return
				}
				if !credSent {
					credSent = true
					credCh <- creds
				}
			case signal.MessageCandidate:
				var cand signal.CandidatePayload
				if err := decodeOr(msg, &cand, readErr); err != nil {
					return
				}
				c, err := ice.UnmarshalCandidate(cand.Candidate)
				if err != nil {
					log.Warnw("unparseable remote candidate", "raw", cand.Candidate, "error", err)
					continue
				}
				if err := agent.AddRemoteCandidate(c); err != nil {
					log.Warnw("remote candidate rejected", "error", err)
					continue
				}
				mu.Lock()
				remote = append(remote, toDomainCandidate(c))
				mu.Unlock()
				reportProgress()
			case signal.MessageDone:
				log.Debug("remote candidate list complete")
			case signal.MessageBye, signal.MessageError:
				readErr <- errs.NewNoConnectivity("peer abandoned negotiation")
				return
			}
		}
	}()

	var creds signal.CredentialsPayload
	select {
	case creds = <-credCh:
	case err := <-readErr:
		return nil, n.mapErr(parent, ctx, err, "candidate exchange")
	case <-ctx.Done():
		return nil, n.mapErr(parent, ctx, ctx.Err(), "candidate exchange")
	}

	var conn *ice.Conn
	if params.Mode == domain.ModeCall {
		conn, err = agent.Dial(ctx, creds.Ufrag, creds.Pwd)
	} else {
		conn, err = agent.Accept(ctx, creds.Ufrag, creds.Pwd)
	}
	if err != nil {
		return nil, n.mapErr(parent, ctx, err, "connectivity checks")
	}

	mu.Lock()
	defer mu.Unlock()

	selected, ok := BestPair(confirmed, params.Mode == domain.ModeCall)
	if !ok {
		// checks succeeded without a pair-change callback; fall back to
		// the agent's own report
		if pair, perr := agent.GetSelectedCandidatePair(); perr == nil && pair != nil {
			selected = domain.CandidatePair{
				Local:       toDomainCandidate(pair.Local),
				Remote:      toDomainCandidate(pair.Remote),
				ConfirmedAt: time.Now(),
			}
		}
	}

	log.Infow("transport confirmed",
		"local", selected.Local.Address, "local_type", selected.Local.Type,
		"remote", selected.Remote.Address, "remote_type", selected.Remote.Type,
	)

	t := domain.NewNegotiatedTransport(conn, agent, ch)
	t.LocalCandidates = append([]domain.Candidate(nil), local...)
	t.RemoteCandidates = append([]domain.Candidate(nil), remote...)
	t.SelectedPair = selected
	return t, nil
}

// mapErr folds transport-level failures into the session error kinds:
// the caller cancelling stays a plain context error, our own deadline is
// a Timeout, anything else means no path was found. Session errors pass
// through untouched.
func (n *Negotiator) mapErr(parent, ctx context.Context, err error, stage string) error {
	if errs.IsSessionError(err) {
		return err
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	if ctx.Err() == context.DeadlineExceeded {
		return errs.NewTimeout("negotiation deadline exceeded during " + stage).WithCause(err)
	}
	return errs.NewNoConnectivity(stage + " failed").WithCause(err)
}

func decodeOr(msg signal.Message, into interface{}, readErr chan<- error) error {
	if err := signal.DecodePayload(msg, into); err != nil {
		readErr <- err
		return err
	}
	return nil
}

func toDomainCandidate(c ice.Candidate) domain.Candidate {
	return domain.Candidate{
		Address:  c.Address(),
		Port:     c.Port(),
		Priority: c.Priority(),
		Type:     c.Type().String(),
		Raw:      c.Marshal(),
	}
}
