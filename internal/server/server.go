// Package server shows rendered convergence charts in a browser.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cwbudde/learningcurves/internal/plot"
	"github.com/cwbudde/learningcurves/internal/ui"
)

// chart holds one figure pre-rendered in every supported format.
type chart struct {
	Name  string
	Title string
	data  map[plot.Format][]byte
}

// Server represents the HTTP server
type Server struct {
	addr   string
	charts []chart
	server *http.Server
}

// New renders every figure of arts up front; the server only serves the
// resulting bytes.
func New(addr string, arts *plot.Artifacts) (*Server, error) {
	s := &Server{addr: addr}
	for _, fig := range arts.Figures() {
		c := chart{Name: fig.Name, Title: fig.Title, data: map[plot.Format][]byte{}}
		for _, format := range []plot.Format{plot.SVG, plot.PNG} {
			data, err := fig.Bytes(format)
			if err != nil {
				return nil, fmt.Errorf("render %s chart: %w", fig.Name, err)
			}
			c.data[format] = data
		}
		s.charts = append(s.charts, c)
	}
	return s, nil
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/", s.handleIndex)
	r.Get("/charts/{file}", s.handleChart)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting chart viewer", "url", "http://"+s.addr+"/")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down chart viewer")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	items := make([]ui.ChartItem, len(s.charts))
	for i, c := range s.charts {
		items[i] = ui.ChartItem{Name: c.Name, Title: c.Title}
	}

	if err := ui.Index(items).Render(r.Context(), w); err != nil {
		slog.Error("Failed to render index", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// handleChart handles GET /charts/{name}.{png,svg}
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	dot := strings.LastIndexByte(file, '.')
	if dot <= 0 {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	name := file[:dot]
	format, err := plot.ParseFormat(file[dot+1:])
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	for _, c := range s.charts {
		if c.Name != name {
			continue
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(c.data[format]); err != nil {
			slog.Error("Failed to write chart", "chart", name, "error", err)
		}
		return
	}
	http.Error(w, "Chart not found", http.StatusNotFound)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
