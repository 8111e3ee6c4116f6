// ABOUTME: HTTP API server built on chi
// ABOUTME: Exposes view sessions, board moves, customer bulk actions, exports and record CRUD
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/export"
	"github.com/harperreed/pipeboard/metrics"
	"github.com/harperreed/pipeboard/view"
)

type Options struct {
	Store  *db.Store
	Views  *view.Registry
	Vault  *export.Vault // nil disables /exports
	Logger *log.Logger

	CORSOrigins []string
}

type Server struct {
	store  *db.Store
	views  *view.Registry
	vault  *export.Vault
	logger *log.Logger
	router chi.Router
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Server{
		store:  opts.Store,
		views:  opts.Views,
		vault:  opts.Vault,
		logger: opts.Logger,
	}
	s.router = s.routes(opts.CORSOrigins)
	return s
}

func (s *Server) routes(origins []string) chi.Router {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/views", func(r chi.Router) {
		r.Post("/", s.handleOpenView)
		r.Route("/{viewID}", func(r chi.Router) {
			r.Delete("/", s.handleCloseView)
			r.Get("/board", s.handleBoard)
			r.Post("/moves", s.handleMove)
			r.Get("/customers", s.handleCustomers)
			r.Post("/selection", s.handleSelection)
			r.Post("/bulk", s.handleBulk)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/graph", s.handleGraph)
		})
	})

	r.Route("/leads", func(r chi.Router) {
		r.Get("/", s.handleListLeads)
		r.Post("/", s.handleCreateRecord(db.EntityLeads))
		r.Get("/{id}", s.handleGetLead)
		r.Patch("/{id}", s.handlePatchRecord(db.EntityLeads))
		r.Post("/{id}/entries", s.handleAddEntry)
	})

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", s.handleCreateRecord(db.EntityCustomers))
		r.Get("/{id}", s.handleGetCustomer)
		r.Patch("/{id}", s.handlePatchRecord(db.EntityCustomers))
		r.Post("/{id}/contact", s.handleContactCustomer)
	})

	if s.vault != nil {
		r.Get("/exports", s.handleListExports)
		r.Get("/exports/{handle}", s.handleDownloadExport)
	}

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves on addr until ctx is cancelled, then drains in-flight
// requests and unmounts every open view.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down web server")
	err := srv.Shutdown(shutdownCtx)
	s.views.CloseAll()
	if err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	return nil
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
