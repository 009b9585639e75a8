// Package web provides an HTTP status server for the hello-dongle daemon.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/androbi-embedded/hello-dongle/internal/status"
)

// Source supplies the state shown by the server. *status.Tracker implements it.
type Source interface {
	Snapshot() status.Snapshot
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	src        Source
	log        *logrus.Entry
}

// New creates a Server reading state from src. A nil log uses the standard logger.
func New(addr string, src Source, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{src: src, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.get(s.handleIndex))
	mux.HandleFunc("/index.html", s.get(s.handleIndex))
	mux.HandleFunc("/index.json", s.get(s.handleJSON))
	mux.HandleFunc("/healthz", s.get(s.handleHealth))

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// get restricts h to GET and HEAD and logs each request at debug level.
func (s *Server) get(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("http request")
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		h(w, r)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, s.src.Snapshot()); err != nil {
		s.log.WithError(err).Warn("render status page")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.src.Snapshot()))
}

// handleHealth answers 200 "ok" when all GPIO lines were configured and
// 503 "degraded" otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.src.Snapshot().GPIOError != "" {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("degraded\n"))
		return
	}
	w.Write([]byte("ok\n"))
}
