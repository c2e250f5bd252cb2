package ws

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	server "nock-and-loose/server"
	"nock-and-loose/server/internal/telemetry"
)

type clientMessage struct {
	Ver     int                 `json:"ver,omitempty"`
	Type    string              `json:"type"`
	Request *server.ShotRequest `json:"request,omitempty"`
	SentAt  int64               `json:"sentAt,omitempty"`
}

// Handler upgrades connections and runs the read loop for one subscriber.
type Handler struct {
	hub      *server.Hub
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket handler for the given hub.
func NewHandler(hub *server.Hub, logger telemetry.Logger) *Handler {
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// Handle serves one websocket session identified by the id query param.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", playerID, err)
		return
	}

	sub, welcome, ok := h.hub.Subscribe(playerID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown player")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	data, err := json.Marshal(welcome)
	if err != nil {
		h.logger.Printf("failed to marshal welcome for %s: %v", playerID, err)
		h.hub.Disconnect(playerID, "welcome_failed")
		return
	}
	if err := sub.WriteMessage(data); err != nil {
		h.hub.Disconnect(playerID, "write_failed")
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(playerID, "read_failed")
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", playerID, err)
			continue
		}

		switch msg.Type {
		case "fire":
			if msg.Request == nil {
				continue
			}
			// The hub loop validates identity and ammunition; here we
			// only stage the intent under the verified sender.
			h.hub.EnqueueFire(playerID, *msg.Request)
		case "heartbeat":
			now := time.Now()
			rtt, ok := h.hub.UpdateHeartbeat(playerID, now, msg.SentAt)
			if !ok {
				continue
			}
			ack := server.HeartbeatAckMessage{
				Ver:        server.ProtocolVersion,
				Type:       "heartbeat",
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			}
			data, err := json.Marshal(ack)
			if err != nil {
				h.logger.Printf("failed to marshal heartbeat ack for %s: %v", playerID, err)
				continue
			}
			if err := sub.WriteMessage(data); err != nil {
				h.hub.Disconnect(playerID, "write_failed")
				return
			}
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, playerID)
		}
	}
}
