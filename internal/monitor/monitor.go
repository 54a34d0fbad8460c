// Package monitor exposes engine diagnostics over a socket.io endpoint.
// Connected tools receive one event per completed compilation or execution
// on the /runtime namespace; a plain /health endpoint reports liveness.
package monitor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/zishang520/socket.io/v2/socket"

	"github.com/jsjgdh/Graphite/internal/ctxlog"
	"github.com/jsjgdh/Graphite/internal/engine"
)

// Server broadcasts engine events to monitoring clients.
type Server struct {
	io       *socket.Server
	ns       socket.Namespace
	httpSrv  *http.Server
	listener net.Listener
}

// New creates a monitor server listening on the given port. Port 0 picks a
// free port; Addr reports the bound address.
func New(ctx context.Context, port int) (*Server, error) {
	logger := ctxlog.FromContext(ctx).With("component", "monitor")

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to bind monitor port: %w", err)
	}

	io := socket.NewServer(nil, nil)
	ns := io.Of("/runtime", nil)
	ns.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		logger.Debug("Monitor client connected.", "sid", client.Id())
		client.On("disconnect", func(...any) {
			logger.Debug("Monitor client disconnected.", "sid", client.Id())
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", io.ServeHandler(nil))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	s := &Server{
		io:       io,
		ns:       ns,
		httpSrv:  &http.Server{Handler: mux},
		listener: listener,
	}
	go func() {
		logger.Info("Monitor server starting.", "address", listener.Addr().String())
		if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("Monitor server failed.", "error", err)
		}
	}()
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Hook returns an engine hook broadcasting each event to the /runtime
// namespace. Emission is fire-and-forget so the engine goroutine never
// blocks on slow clients.
func (s *Server) Hook() engine.Hook {
	return func(ev engine.Event) {
		s.ns.Emit(ev.Kind, map[string]any{
			"id":          ev.ID,
			"ok":          ev.OK,
			"message":     ev.Message,
			"duration_ms": ev.Duration.Milliseconds(),
		})
	}
}

// Close disconnects all clients and shuts the HTTP server down.
func (s *Server) Close(ctx context.Context) error {
	s.io.Close(nil)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}
