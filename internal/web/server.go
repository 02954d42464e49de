// Package web hosts the thin HTTP surface around the bridge: the
// observer WebSocket, a status API, the metrics endpoint and a minimal
// index page. It owns no bridge state of its own.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/nothingworksright/unblinkingbot/internal/metrics"
	"github.com/nothingworksright/unblinkingbot/internal/observer"
	"github.com/nothingworksright/unblinkingbot/internal/slack"
)

// Server serves the front-end surface on one port.
type Server struct {
	addr    string
	hub     *observer.Hub
	manager *slack.Manager
	logger  *slog.Logger
}

// New creates a server listening on addr.
func New(addr string, hub *observer.Hub, manager *slack.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{addr: addr, hub: hub, manager: manager, logger: logger}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket upgrades share this server
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type statusResponse struct {
	State     string `json:"state"`
	Team      string `json:"team,omitempty"`
	User      string `json:"user,omitempty"`
	Observers int    `json:"observers"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	self := s.manager.Self()
	resp := statusResponse{
		State:     s.manager.State().String(),
		Team:      self.TeamName,
		User:      self.UserName,
		Observers: s.hub.Count(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("web: writing status", "err", err)
	}
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>unblinkingbot</title></head>
<body>
<h1>unblinkingbot</h1>
<pre id="log"></pre>
<script>
const log = document.getElementById("log");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (e) => { log.textContent += e.data + "\n"; };
</script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}
