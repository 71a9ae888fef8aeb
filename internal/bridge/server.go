package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/logging"
	"github.com/sirupsen/logrus"
)

// request is one inbound frame from the UI.
type request struct {
	ID      string                 `json:"id"`
	Channel string                 `json:"channel"`
	Payload map[string]interface{} `json:"payload"`
}

// response answers one request. Push frames reuse Event instead and carry no
// id.
type response struct {
	ID      string              `json:"id"`
	OK      bool                `json:"ok"`
	Payload interface{}         `json:"payload,omitempty"`
	Error   *errors.HearthError `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The server binds to loopback; the UI process is the only client.
		return true
	},
}

// Server exposes the dispatcher and event hub to the UI process over a
// WebSocket endpoint.
type Server struct {
	dispatcher *Dispatcher
	hub        *Hub
	logger     *logrus.Entry
	server     *http.Server
}

// NewServer creates a Server for the given dispatcher and hub.
func NewServer(dispatcher *Dispatcher, hub *Hub) *Server {
	return &Server{
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logging.NewLogger("bridge-server"),
	}
}

// ListenAndServe starts the bridge on addr and blocks until the server
// stops or fails.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/bridge", s.handleBridge)

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	s.logger.WithField("addr", addr).Info("Bridge listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down bridge server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleBridge upgrades one UI connection and serves it until it closes.
func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	s.logger.Debug("UI client connected")

	// Outbound frames funnel through one channel so responses and pushes
	// never interleave mid-write.
	send := make(chan []byte, 256)
	done := make(chan struct{})

	go s.writePump(conn, send, done)

	// Forward push events for this connection
	events, cancel := s.hub.Subscribe()
	defer cancel()
	go func() {
		for ev := range events {
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal push event")
				continue
			}
			select {
			case send <- data:
			case <-done:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.WithError(err).Debug("UI client disconnected")
			close(done)
			return
		}

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			s.logger.WithError(err).Warn("Malformed bridge frame")
			continue
		}

		result, err := s.dispatcher.Dispatch(r.Context(), req.Channel, req.Payload)
		resp := response{ID: req.ID, OK: err == nil, Payload: result}
		if err != nil {
			resp.Error = asHearthError(err)
		}

		out, err := json.Marshal(resp)
		if err != nil {
			s.logger.WithError(err).Error("Failed to marshal response")
			continue
		}
		select {
		case send <- out:
		default:
			s.logger.Warn("Dropping response for slow client")
		}
	}
}

// writePump serializes all writes for one connection.
func (s *Server) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case data := <-send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// asHearthError coerces any handler failure into the structured wire shape.
func asHearthError(err error) *errors.HearthError {
	if herr, ok := err.(*errors.HearthError); ok {
		return herr
	}
	return errors.Wrap(err, errors.ErrCodeInternal, err.Error())
}
