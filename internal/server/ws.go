package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/conesteer/internal/hub"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// SteeringHandler pushes every steering sample to websocket clients as JSON.
type SteeringHandler struct {
	hub *hub.Hub
}

// NewSteeringHandler creates a new SteeringHandler reading from h.
func NewSteeringHandler(h *hub.Hub) *SteeringHandler {
	return &SteeringHandler{hub: h}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SteeringHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	samples, cancel := h.hub.Subscribe(64)
	defer cancel()

	// Clients never send anything; reading notices when they leave.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case s, ok := <-samples:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(s); err != nil {
				return
			}
		}
	}
}
