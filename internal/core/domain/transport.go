package domain

import (
	"io"
	"net"
	"time"
)

// Candidate is one possible address a peer might be reachable on.
type Candidate struct {
	Address  string
	Port     int
	Priority uint32
	Type     string
	Raw      string // ICE candidate attribute syntax, as exchanged
}

// CandidatePair is a local/remote combination that passed (or is being)
// checked.
type CandidatePair struct {
	Local       Candidate
	Remote      Candidate
	RTT         time.Duration
	ConfirmedAt time.Time
}

// NegotiatedTransport is the negotiator's sole output: the confirmed
// bidirectional path plus the bookkeeping that led to it. It is read-only
// once handed to the pipeline builder, which becomes the exclusive owner
// of Conn.
type NegotiatedTransport struct {
	LocalCandidates  []Candidate
	RemoteCandidates []Candidate
	SelectedPair     CandidatePair

	// Conn is a packet-oriented net.Conn over the selected pair.
	Conn net.Conn

	closers []io.Closer
}

// NewNegotiatedTransport wires the transport with the resources that must
// be released when the pipeline lets go of it.
func NewNegotiatedTransport(conn net.Conn, closers ...io.Closer) *NegotiatedTransport {
	return &NegotiatedTransport{Conn: conn, closers: closers}
}

// Close releases the live socket and everything keeping it alive.
func (t *NegotiatedTransport) Close() error {
	var first error
	if t.Conn != nil {
		if err := t.Conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	for _, c := range t.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
