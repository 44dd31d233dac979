// Package webshare serves the media download root over HTTP so the
// configured base URL can point straight at the relay process instead
// of a separate web server. It also exposes /metrics and /healthz.
package webshare

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ircgram/internal/metrics"
)

type Server struct {
	addr   string
	root   string
	logger *slog.Logger
	server *http.Server
}

func New(addr, root string, logger *slog.Logger) *Server {
	return &Server{addr: addr, root: root, logger: logger}
}

// Start serves until ctx is cancelled. The error is returned only for
// startup failures; a graceful shutdown returns nil.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Default.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.Handle("/", noListing(http.FileServer(http.Dir(s.root))))

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("media server listening", "addr", s.addr, "root", s.root)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// noListing rejects directory requests; only concrete files are served.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
