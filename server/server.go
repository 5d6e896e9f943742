// Package server implements the connection and dispatch core of the FACET
// MCP server: it accepts WebSocket connections, drives one receive loop per
// connection, routes tool calls through the Dispatcher and writes structured
// responses back on the same connection. A health endpoint is served beside
// the WebSocket upgrade path.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rokoss21/FACET-mcp/config"
	"github.com/rokoss21/FACET-mcp/logging"
	"github.com/rokoss21/FACET-mcp/protocol"
	"github.com/rokoss21/FACET-mcp/tool"
)

const serviceVersion = "0.1.0"

// connection is one live client channel plus the handle needed for cleanup.
type connection struct {
	id      string
	ws      *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	limiter *rateLimiter
}

// send serializes writes so the receive loop and the ping ticker never
// interleave frames on the socket.
func (c *connection) send(msg *protocol.Message) error {
	raw, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, raw)
}

// Server accepts agent connections and serves the tool-dispatch protocol.
//
// Each connection runs its own goroutine: messages on one connection are
// handled strictly in order, while separate connections proceed
// independently. The only cross-connection shared state lives behind the
// tool registry (the validator cache), which is concurrency-safe.
type Server struct {
	cfg        config.Config
	dispatcher *Dispatcher
	logger     logging.Logger
	router     *chi.Mux
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu       sync.RWMutex
	conns    map[string]*connection
	inflight sync.WaitGroup
}

// New constructs a Server over the given registry. The registry must not be
// mutated afterwards.
func New(cfg config.Config, registry *tool.Registry, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	s := &Server{
		cfg:        cfg,
		dispatcher: NewDispatcher(registry, logger, cfg.Server.RequestTimeout),
		logger:     logger,
		router:     chi.NewRouter(),
		conns:      make(map[string]*connection),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: cfg.Server.ConnectionTimeout,
	}

	return s
}

// Router exposes the root HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// ConnectionCount reports the number of live connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// ListenAndServe starts accepting connections on the configured address and
// blocks until the server shuts down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server.started", "addr", s.cfg.Server.Addr())
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new connections, waits for in-flight dispatches
// up to the context deadline and then closes the remaining connections.
// Closing a connection only ever cancels that connection's own dispatch.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server.shutdown")
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	s.closeAll()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "healthy",
		"service": "FACET MCP Server",
		"version": serviceVersion,
	})
}

// handleWS upgrades the request and runs the connection's receive loop until
// the peer disconnects. A malformed frame or a failing dispatch answers with
// an error envelope and keeps the loop alive; only transport-level failures
// end the connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("connection.upgrade_failed", "remote", r.RemoteAddr, "error", err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := &connection{
		id:     uuid.NewString(),
		ws:     ws,
		cancel: cancel,
	}
	if s.cfg.Security.EnableRateLimiting {
		conn.limiter = newRateLimiter(s.cfg.Security.MaxRequestsPerMinute, time.Minute)
	}

	s.register(conn)
	defer s.deregister(conn)

	s.logger.Info("connection.opened", "conn_id", conn.id, "remote", r.RemoteAddr)

	stopPing := s.startPing(conn)
	defer stopPing()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("connection.read_error", "conn_id", conn.id, "error", err.Error())
			} else {
				s.logger.Info("connection.closed", "conn_id", conn.id)
			}
			return
		}

		msg, err := protocol.Decode(raw)
		if err != nil {
			s.logger.Warn("connection.decode_error", "conn_id", conn.id, "error", err.Error())
			s.reply(conn, protocol.NewError("Invalid JSON format", "DecodeError", nil, nil))
			continue
		}

		if !conn.limiter.Allow() {
			s.logger.Warn("connection.rate_limited", "conn_id", conn.id)
			s.reply(conn, protocol.NewError("Rate limit exceeded", "RateLimitError", nil, nil))
			continue
		}

		s.reply(conn, s.dispatch(ctx, conn, msg))
	}
}

// dispatch runs one message through the Dispatcher with a defensive recover:
// if the dispatch machinery itself fails, the connection gets a generic
// error envelope naming the panic value's type and keeps receiving.
func (s *Server) dispatch(ctx context.Context, conn *connection, msg *protocol.Message) (resp *protocol.Message) {
	s.inflight.Add(1)
	defer s.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dispatch.panic", "conn_id", conn.id, "panic", fmt.Sprintf("%v", r))
			resp = protocol.NewError(
				fmt.Sprintf("Internal server error: %v", r),
				fmt.Sprintf("%T", r), nil, nil)
		}
	}()
	return s.dispatcher.Handle(ctx, msg)
}

func (s *Server) reply(conn *connection, msg *protocol.Message) {
	if msg == nil {
		return
	}
	if err := conn.send(msg); err != nil {
		s.logger.Warn("connection.write_error", "conn_id", conn.id, "error", err.Error())
	}
}

// startPing keeps the connection alive with control pings at the configured
// interval. The returned stop function is idempotent via channel close.
func (s *Server) startPing(conn *connection) func() {
	if s.cfg.Server.PingInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.cfg.Server.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn.writeMu.Lock()
				err := conn.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.Server.PingTimeout))
				conn.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

func (s *Server) register(conn *connection) {
	s.mu.Lock()
	s.conns[conn.id] = conn
	s.mu.Unlock()
}

// deregister removes the connection from the live set, cancels its in-flight
// dispatch and releases the socket. Connections on other sockets are
// untouched.
func (s *Server) deregister(conn *connection) {
	s.mu.Lock()
	delete(s.conns, conn.id)
	s.mu.Unlock()
	conn.cancel()
	_ = conn.ws.Close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.cancel()
		_ = c.ws.Close()
	}
}
