// Package httpapi exposes the router over HTTP and streams reload
// notifications to page contexts over websockets.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"pagesmith.dev/engine/internal/application/ports"
	"pagesmith.dev/engine/internal/application/router"
	"pagesmith.dev/engine/internal/core/apperr"
)

const (
	maxRequestBytes  = 1 << 20
	// Listing every plugin can be far larger than any single request.
	maxResponseBytes = 64 << 20
	writeWait        = 10 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// PageContexts registers page contexts for reload notifications.
type PageContexts interface {
	Register() (<-chan []byte, func())
	Len() int
}

// Server serves the engine API.
type Server struct {
	router       *router.Router
	contexts     PageContexts
	metrics      http.Handler
	logger       ports.LoggingGateway
	upgrader     websocket.Upgrader
	pingInterval time.Duration

	closeOnce sync.Once
	closing   chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the logging gateway.
func WithLogger(l ports.LoggingGateway) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPingInterval sets how often idle event streams are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// NewServer creates a server over r that registers event streams with contexts.
func NewServer(r *router.Router, contexts PageContexts, opts ...Option) *Server {
	s := &Server{
		router:   r,
		contexts: contexts,
		logger:   ports.NoopLogger{},
		upgrader: websocket.Upgrader{
			// Page contexts connect from whatever origin they run on.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
		closing:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages", s.handleMessage)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
// and closes open event streams.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Log(ports.LogLevelInfo, "http server listening", map[string]interface{}{"addr": ln.Addr().String()})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close ends every open event stream.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeResponse(w, router.Response{Error: router.NewErrorBody(apperr.Parse("", "request body too large or unreadable", err))})
		return
	}

	req, err := router.DecodeRequest(body)
	if err != nil {
		writeResponse(w, router.Response{Error: router.NewErrorBody(err)})
		return
	}
	writeResponse(w, s.router.Dispatch(r.Context(), req))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.LogError(err, "websocket upgrade failed", nil)
		return
	}
	defer conn.Close()

	messages, unregister := s.contexts.Register()
	defer unregister()

	// Page contexts never send anything; reading detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"plugins":  len(s.router.GetAllPlugins()),
		"contexts": s.contexts.Len(),
	})
}

func writeResponse(w http.ResponseWriter, resp router.Response) {
	status := http.StatusOK
	if resp.Error != nil {
		status = StatusFor(resp.Error.Code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation, apperr.CodeParse:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodePolicyDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
