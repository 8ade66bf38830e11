package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"

	// Server -> Client
	TypeQuestionAcquired = "question_acquired"
	TypeSubscribed       = "subscribed"
	TypeError            = "error"
	TypePong             = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Client Messages (incoming)

type SubscribePayload struct {
	Topic string `json:"topic"`
}

// Server Messages (outgoing)

type SubscribedPayload struct {
	Topics []string `json:"topics"`
}

type QuestionAcquiredPayload struct {
	QuestionID string   `json:"question_id"`
	Topic      string   `json:"topic"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
	Difficulty string   `json:"difficulty"`
	Source     string   `json:"source"`
	AcquiredAt string   `json:"acquired_at"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
