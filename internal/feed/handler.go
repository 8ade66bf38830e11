package feed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbank/internal/question"
	ws "github.com/gokatarajesh/quizbank/pkg/http/ws"
)

// Handler upgrades /ws/questions requests and serves topic subscriptions.
type Handler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler builds a feed handler. An empty origin list accepts any origin.
func NewHandler(hub *ws.Hub, allowedOrigins []string, logger zerolog.Logger) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[strings.ToLower(r.Header.Get("Origin"))]
				return ok
			},
		},
		logger: logger.With().Str("component", "feed_ws").Logger(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := ws.NewConnection(raw, h.logger)
	h.hub.RegisterConnection(conn)
	go conn.WritePump()

	conn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(conn, msg)
	})
	h.hub.UnregisterConnection(conn.ID())
}

func (h *Handler) handleMessage(conn *ws.Connection, msg ws.Message) error {
	switch msg.Type {
	case ws.TypePing:
		return h.reply(conn, msg.RequestID, ws.TypePong, nil)

	case ws.TypeSubscribe, ws.TypeUnsubscribe:
		var payload ws.SubscribePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return h.replyError(conn, msg.RequestID, "invalid_payload", "Invalid subscribe payload")
		}
		topic, err := question.NormalizeTopic(payload.Topic)
		if err != nil {
			return h.replyError(conn, msg.RequestID, "invalid_topic", "Topic must be non-empty")
		}
		var topics []string
		if msg.Type == ws.TypeSubscribe {
			topics = h.hub.Subscribe(conn.ID(), topic)
		} else {
			topics = h.hub.Unsubscribe(conn.ID(), topic)
		}
		return h.reply(conn, msg.RequestID, ws.TypeSubscribed, ws.SubscribedPayload{Topics: topics})

	default:
		return h.replyError(conn, msg.RequestID, "unknown_message_type", fmt.Sprintf("Unknown message type %q", msg.Type))
	}
}

func (h *Handler) reply(conn *ws.Connection, requestID, msgType string, payload any) error {
	out, err := ws.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	out.RequestID = requestID
	return conn.Send(out)
}

func (h *Handler) replyError(conn *ws.Connection, requestID, code, message string) error {
	return h.reply(conn, requestID, ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
}
