package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ecofest/ecobingo/internal/events"
	"github.com/ecofest/ecobingo/internal/logging"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = 54 * time.Second
)

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Session cookie auth already gates the route; the frontend may be
	// served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveHandler streams game events over a websocket: item completions,
// bingo achievements and game updates, in publication order. Venue
// screens and the player's own board both subscribe here.
type LiveHandler struct {
	bus events.Bus
}

func NewLiveHandler(bus events.Bus) *LiveHandler {
	return &LiveHandler{bus: bus}
}

type liveMessage struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	sub, err := h.bus.Subscribe(r.Context())
	if err != nil {
		logging.Error("Live subscription failed", map[string]interface{}{"error": err.Error()})
		_ = conn.Close()
		return
	}

	logging.Debug("Live client connected", map[string]interface{}{"user_id": user.ID.String()})

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, sub, done)

	_ = sub.Close()
	_ = conn.Close()
	logging.Debug("Live client disconnected", map[string]interface{}{"user_id": user.ID.String()})
}

// readPump drains client frames so pongs and close frames are processed.
// Clients never send application messages on this socket.
func (h *LiveHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LiveHandler) writePump(conn *websocket.Conn, sub events.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.C():
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			payload, err := json.Marshal(liveMessage{Topic: ev.Topic, Payload: ev.Payload})
			if err != nil {
				logging.Error("Live event encode failed", map[string]interface{}{
					"topic": ev.Topic,
					"error": err.Error(),
				})
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
