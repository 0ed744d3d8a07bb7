package http

import (
	"log"
	"net/http"
	"time"

	"quizhost-session-service/internal/engine"
	"github.com/gorilla/websocket"
)

// Observer streams a session's status and leaderboard to an admin dashboard
// over a websocket. It polls the engine on behalf of the connection; the
// engine itself stays strictly poll-driven and never pushes.
type Observer struct {
	engine   *engine.Engine
	upgrader websocket.Upgrader
	interval time.Duration
}

func NewObserver(e *engine.Engine) *Observer {
	return &Observer{
		engine: e,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		interval: time.Second,
	}
}

type observerFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWatch upgrades the request and streams status/results frames until the
// session ends or the client disconnects. Ownership is checked before the
// upgrade so unauthorized callers get a plain HTTP error.
func (o *Observer) ServeWatch(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	requester := requesterID(r)

	if _, err := o.engine.SessionStatus(r.Context(), sessionID, requester); err != nil {
		writeError(w, err)
		return
	}

	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		status, err := o.engine.SessionStatus(r.Context(), sessionID, requester)
		if err != nil {
			_ = conn.WriteJSON(observerFrame{Type: "error", Payload: err.Error()})
			return
		}
		results, err := o.engine.SessionResults(r.Context(), sessionID, requester)
		if err != nil {
			_ = conn.WriteJSON(observerFrame{Type: "error", Payload: err.Error()})
			return
		}
		if err := conn.WriteJSON(observerFrame{Type: "status", Payload: status}); err != nil {
			return
		}
		if err := conn.WriteJSON(observerFrame{Type: "results", Payload: results}); err != nil {
			return
		}
		if !status.Active {
			return
		}

		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
