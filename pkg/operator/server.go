package operator

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
)

// Server exposes the hub over HTTP: a duplex WebSocket event bus for the
// operator console, plus a small REST surface for tooling that would
// rather poll than subscribe.
type Server struct {
	hub    *Hub
	logger orchestrator.Logger
	router *mux.Router
	http   *http.Server
}

// NewServer wires a Server around an existing Hub. listenAddr is the
// address http.Server.Addr will bind (e.g. ":8090").
func NewServer(hub *Hub, logger orchestrator.Logger, listenAddr string) *Server {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	s := &Server{hub: hub, logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleWebSocket)
	router.HandleFunc("/api/calls", s.handleActiveCalls).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router = router

	s.http = &http.Server{
		Addr:         listenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving the operator console until the server is
// shut down or a fatal listener error occurs.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests and WebSocket connections.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleActiveCalls(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.hub.ActiveCalls())
}

// handleWebSocket upgrades one operator console connection, subscribes it
// to the hub's broadcast stream, and pumps inbound client messages to
// Hub.HandleClientMessage. The write side and read side run on separate
// goroutines so a slow console reader never blocks digesting its requests.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("operator websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	observerID := uuid.NewString()
	events, unsubscribe := s.hub.Subscribe(observerID)
	defer unsubscribe()

	if err := wsjson.Write(ctx, conn, Envelope{Type: EventSessionCreated, Timestamp: time.Now(), Payload: observerID}); err != nil {
		return
	}
	if err := wsjson.Write(ctx, conn, Envelope{Type: EventActiveCallsList, Timestamp: time.Now(), Payload: s.hub.ActiveCalls()}); err != nil {
		return
	}

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- s.pumpEvents(ctx, conn, events)
	}()

	s.pumpClientMessages(ctx, conn)

	select {
	case <-writeErr:
	case <-ctx.Done():
	}
}

func (s *Server) pumpEvents(ctx context.Context, conn *websocket.Conn, events <-chan Envelope) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, env); err != nil {
				return err
			}
		}
	}
}

func (s *Server) pumpClientMessages(ctx context.Context, conn *websocket.Conn) {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		reply := s.hub.HandleClientMessage(msg)
		if reply == nil {
			continue
		}
		if err := wsjson.Write(ctx, conn, *reply); err != nil {
			return
		}
	}
}
