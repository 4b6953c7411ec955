// Package server exposes the realm feeds, uploads and gallery pages over
// HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/koustreak/realms/internal/catalog"
	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/events"
	"github.com/koustreak/realms/internal/feed"
	"github.com/koustreak/realms/internal/logger"
	"github.com/koustreak/realms/internal/metrics"
	"github.com/koustreak/realms/internal/realm"
	"github.com/koustreak/realms/internal/render"
	"github.com/koustreak/realms/internal/upload"
)

// Config holds the listener settings.
type Config struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	// SupersededWait bounds how long a request whose load was superseded
	// waits for the newer result before loading again.
	SupersededWait time.Duration `yaml:"superseded_wait"`
}

// UploadConfig guards the upload endpoint.
type UploadConfig struct {
	// JWTSecret enables HS256 bearer auth on uploads when set.
	JWTSecret string `yaml:"jwt_secret"`
	MaxBytes  int64  `yaml:"max_bytes"`
}

const (
	DefaultMaxUploadBytes = 100 << 20
	DefaultSupersededWait = 10 * time.Second
	multipartMemory       = 8 << 20
)

// DefaultConfig returns the listener settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		AllowedOrigins:  []string{"*"},
		SupersededWait:  DefaultSupersededWait,
	}
}

// Reloader runs a feed load. *feed.Service implements it.
type Reloader interface {
	Reload(ctx context.Context, id realm.ID) (feed.Result, bool)
}

// ResultBoard returns the last emitted result of a realm. *render.Board
// implements it.
type ResultBoard interface {
	Latest(id realm.ID) (feed.Result, bool)
	Wait(ctx context.Context, id realm.ID, after uint64) (feed.Result, bool)
}

// FolderLister lists a realm's folders. *feed.Pipeline implements it.
type FolderLister interface {
	Folders(ctx context.Context, id realm.ID) ([]string, error)
}

// Uploader stores one file. *upload.Service implements it.
type Uploader interface {
	Upload(ctx context.Context, req upload.Request) (*catalog.File, error)
}

// Subscriber hands out event channels. *events.Broadcaster implements it.
type Subscriber interface {
	Subscribe() chan events.Event
	Unsubscribe(ch chan events.Event)
}

// Deps are the collaborators behind the handlers. Uploads may be nil when
// no writable store is configured.
type Deps struct {
	Feeds    Reloader
	Board    ResultBoard
	Folders  FolderLister
	Uploads  Uploader
	Events   Subscriber
	Policies *realm.Table
	Page     *render.Page
	Logger   *logger.Logger
}

type Server struct {
	cfg    Config
	upload UploadConfig
	deps   Deps
	log    *logger.Logger
}

// New returns a Server over deps. Missing policies, page and logger fall
// back to their defaults.
func New(cfg Config, up UploadConfig, deps Deps) *Server {
	if deps.Policies == nil {
		deps.Policies = realm.DefaultTable()
	}
	if deps.Page == nil {
		deps.Page = render.NewPage(deps.Policies)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Global()
	}
	if up.MaxBytes <= 0 {
		up.MaxBytes = DefaultMaxUploadBytes
	}
	if cfg.SupersededWait <= 0 {
		cfg.SupersededWait = DefaultSupersededWait
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{cfg: cfg, upload: up, deps: deps, log: deps.Logger}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/realms/"+string(realm.Visuals), http.StatusFound)
	})
	r.Get("/realms/{realm}", s.handlePage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/realms", s.handleRealms)
		r.Get("/events", s.handleEvents)

		r.Route("/realms/{realm}", func(r chi.Router) {
			r.Get("/feed", s.handleFeed)
			r.Get("/feed.csv", s.handleFeedCSV)
			r.Get("/folders", s.handleFolders)
			r.Group(func(r chi.Router) {
				if s.upload.JWTSecret != "" {
					r.Use(requireToken(s.upload.JWTSecret))
				}
				r.Post("/files", s.handleUpload)
			})
		})
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return base },
	}
	// event streams never finish on their own
	srv.RegisterOnShutdown(cancelBase)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("server listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errs.Wrap(errs.ErrKindConnectionFailed, "listen", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "forced shutdown", err)
	}
	s.log.Info("server stopped")
	return nil
}
