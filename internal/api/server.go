package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/semmidev/omran/internal/app"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Server exposes the backup operations to the UI over HTTP and pushes
// notifications over a websocket.
type Server struct {
	app    *app.App
	logger Logger
	http   *http.Server
}

func New(a *app.App, addr string, logger Logger) *Server {
	s := &Server{app: a, logger: logger}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", s.app.Metrics().Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.events)
		r.Get("/channels", s.listChannels)

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", s.listBackups)
			r.Post("/", s.createBackup)
			r.Post("/import", s.importBackup)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getBackup)
				r.Delete("/", s.deleteBackup)
				r.Post("/restore", s.restoreBackup)
				r.Post("/export", s.exportBackup)
				r.Get("/download", s.downloadBackup)
			})
		})

		r.Get("/schedule", s.getSchedule)
		r.Put("/schedule", s.applySchedule)
		r.Post("/cleanup", s.runCleanup)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Infof("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("API server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	s.logger.Infof("API server stopped")
	return nil
}
