package signal

import (
	"encoding/json"
	"fmt"

	"screenlink/internal/core/domain"
)

// ProtocolVersion guards against schema drift between the two sides.
const ProtocolVersion = 1

// MessageType tags the in-band candidate exchange. The schema is fully
// symmetric: whatever the listening side emits, the calling side can
// consume, and vice versa.
type MessageType string

const (
	MessageHello       MessageType = "hello"
	MessageCredentials MessageType = "credentials"
	MessageCandidate   MessageType = "candidate"
	MessageDone        MessageType = "done"
	MessageBye         MessageType = "bye"
	MessageError       MessageType = "error"
)

// Message is the JSON envelope on the signaling socket.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload opens the exchange from both sides.
type HelloPayload struct {
	Version   int         `json:"version"`
	SessionID string      `json:"session_id"`
	Role      domain.Role `json:"role"`
}

// CredentialsPayload carries the local ICE credentials.
type CredentialsPayload struct {
	Ufrag string `json:"ufrag"`
	Pwd   string `json:"pwd"`
}

// CandidatePayload carries one candidate in ICE attribute syntax; one
// message per gathered candidate (trickle).
type CandidatePayload struct {
	Candidate string `json:"candidate"`
}

// ErrorPayload reports a handshake-level problem to the peer.
type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(t MessageType, payload interface{}) (Message, error) {
	if payload == nil {
		return Message{Type: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Message{Type: t, Payload: raw}, nil
}

// DecodePayload unmarshals a message payload into the given shape.
func DecodePayload(msg Message, into interface{}) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s message without payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, into); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.Type, err)
	}
	return nil
}
