package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smazurov/videowall/internal/events"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// wsMessage is one event on the WebSocket feed.
type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

var upgrader = websocket.Upgrader{
	// Same policy as the CORS handler: any origin may watch the wall.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket mirrors /api/events over a WebSocket for clients without
// EventSource. Incoming messages are discarded.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.logger.Debug("WebSocket client connected", "remote", r.RemoteAddr)

	eventCh := make(chan any, 32)
	unsubscribe := events.SubscribeAll(s.eventBus, eventCh)
	readDone := make(chan struct{})

	go func() {
		defer close(readDone)
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("WebSocket read error", "remote", r.RemoteAddr, "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		unsubscribe()
		conn.Close()
		s.logger.Debug("WebSocket client disconnected", "remote", r.RemoteAddr)
	}()

	write := func(ev any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(wsMessage{Event: events.Name(ev), Data: ev})
	}

	if err := write(events.PauseChangedEvent{
		Paused:    s.wall.Paused(),
		Timestamp: time.Now().Format(time.RFC3339),
	}); err != nil {
		return
	}

	for {
		select {
		case <-readDone:
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(wsWriteWait))
			return
		case ev := <-eventCh:
			if err := write(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
