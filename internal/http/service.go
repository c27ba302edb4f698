package http

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"

	"github.com/ngocanhtran/product-catalog/internal/config"
	"github.com/ngocanhtran/product-catalog/internal/http/middleware"
	"github.com/ngocanhtran/product-catalog/internal/http/swagger"
	"github.com/ngocanhtran/product-catalog/internal/service"
	"github.com/ngocanhtran/product-catalog/internal/session"
	"github.com/ngocanhtran/product-catalog/internal/storage/db"
)

var tracer = otel.Tracer("internal/http")

// Service represents the HTTP service.
type Service struct {
	cfg    config.HTTP
	logger *slog.Logger

	sessions   *session.Manager
	authSvc    service.AuthService
	catalogSvc service.CatalogService
	uploads    *uploadSaver
	health     db.HealthChecker
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	storageCfg config.Storage,
	log *slog.Logger,
	sessions *session.Manager,
	authSvc service.AuthService,
	catalogSvc service.CatalogService,
	health db.HealthChecker,
) *Service {
	return &Service{
		cfg:        cfg,
		logger:     log.With(slog.String("service", "http")),
		sessions:   sessions,
		authSvc:    authSvc,
		catalogSvc: catalogSvc,
		uploads:    newUploadSaver(storageCfg.UploadDir),
		health:     health,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		swagger.Register(r)
	}

	s.RegisterHandlers(r)

	return s.RunWithServer(ctx, r)
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Cors(),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	authH := newAuthHandler(s, s.authSvc, s.sessions)
	productH := newProductHandler(s, s.catalogSvc, s.uploads)

	r.Get("/healthz", s.Healthz)

	r.Get("/register/", authH.RegisterForm)
	r.Post("/register/", authH.Register)
	r.Get("/login/", authH.LoginForm)
	r.Post("/login/", authH.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.sessions))

		r.Get("/logout/", authH.Logout)
		r.Post("/logout/", authH.Logout)

		r.Get("/", productH.List)
		r.Get("/add/", productH.AddForm)
		r.Post("/add/", productH.Create)
		r.Get("/edit/{id}/", productH.EditForm)
		r.Post("/edit/{id}/", productH.Update)
		r.Get("/delete/{id}/", productH.DeleteConfirm)
		r.Post("/delete/{id}/", productH.Delete)
	})
}

// Healthz reports liveness, including the data store when one is wired.
func (s *Service) Healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if ok, err := s.health.IsHealthy(r.Context()); !ok {
			s.logger.ErrorContext(r.Context(), "health check failed", slog.Any("error", err))
			s.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}

	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
