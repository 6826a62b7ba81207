package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/k8ika0s/optimizer-api/internal/api"
	"github.com/k8ika0s/optimizer-api/internal/config"
	"github.com/k8ika0s/optimizer-api/internal/optimizer"
	"github.com/k8ika0s/optimizer-api/internal/privilege"
	"github.com/k8ika0s/optimizer-api/internal/settings"
)

const shutdownTimeout = 10 * time.Second

// Service owns the HTTP server and the backends behind it.
type Service struct {
	cfg      config.Config
	logger   *slog.Logger
	handler  http.Handler
	settings *settings.Holder
	closers  []func() error
}

// New connects every configured backend and builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{cfg: cfg, logger: logger, settings: settings.NewHolder(nil, cfg.SettingsPath)}
	h := &api.Handler{
		Optimizer: optimizer.NewClient(cfg.OptimizerURL, cfg.OptimizerToken, cfg.OptimizerTimeout),
		Settings:  s.settings,
		Config:    cfg,
		Logger:    logger,
	}

	j, closeJournal, err := openJournal(cfg)
	if err != nil {
		return nil, err
	}
	h.Journal = j
	s.addCloser(closeJournal)

	if h.Archive, err = openArchive(ctx, cfg); err != nil {
		s.Close()
		return nil, fmt.Errorf("archive: %w", err)
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("store: %w", err)
	}
	if st != nil {
		h.Documents = st
		h.Grants = st
		s.addCloser(st.Close)
	}
	switch {
	case !cfg.ApplyPermissions:
		h.Privileges = privilege.AllowAll{}
	case st != nil:
		h.Privileges = privilege.PolicyChecker{Grants: st}
	default:
		s.Close()
		return nil, errors.New("apply_permissions requires postgres_dsn")
	}

	sp, err := openStats(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("stats: %w", err)
	}
	if sp != nil {
		h.Stats = sp
		s.addCloser(func() error { sp.Close(); return nil })
	}

	s.handler = NewRouter(cfg, h)
	logger.Info("backends ready",
		"journal", cfg.JournalBackend,
		"archive", cfg.ArchiveEndpoint != "",
		"documents", st != nil,
		"stats", sp != nil,
		"apply_permissions", cfg.ApplyPermissions)
	return s, nil
}

// NewRouter mounts the optimizer routes and the operational endpoints.
func NewRouter(cfg config.Config, h *api.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(api.UserMiddleware(cfg.UserHeader, cfg.RequireUser))
		h.Routes(r)
	})
	return withCORS(cfg, withGzip(r))
}

func (s *Service) addCloser(fn func() error) {
	if fn != nil {
		s.closers = append(s.closers, fn)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Service) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then shuts down gracefully. The
// settings watcher runs alongside the server.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return settings.Watch(ctx, s.settings, s.logger)
	})
	err := g.Wait()
	s.Close()
	return err
}

// Close releases backend connections.
func (s *Service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close backend", "err", err)
		}
	}
	s.closers = nil
}
