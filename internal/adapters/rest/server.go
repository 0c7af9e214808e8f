package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	core_port "listing-service/internal/core/port"
	"listing-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Handlers - все группы обработчиков REST API
type Handlers struct {
	Properties    *PropertyHandler
	Verifications *VerificationHandler
	Media         *MediaHandler
	Usage         *UsageHandler
	EnsureProfile usecases_port.EnsureProfileUseCasePort
}

// MetricsProvider - middleware сбора метрик и обработчик /metrics
type MetricsProvider interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

type Server struct {
	httpServer *http.Server
	logger     core_port.LoggerPort
}

// NewRouter собирает маршруты. Вынесен отдельно, чтобы тесты работали без сети.
func NewRouter(cfg ServerConfig, h Handlers, metrics MetricsProvider, baseLogger core_port.LoggerPort) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(baseLogger), middleware.Recoverer)
	if metrics != nil {
		r.Use(metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Trace-ID", "X-User-ID", "X-User-Role", "X-User-Name", "X-User-Email"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if metrics != nil {
		r.Handle("/metrics", metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(IdentityMiddleware(h.EnsureProfile))

		// доступны и анонимно
		r.Get("/properties/{propertyID}", h.Properties.GetProperty)
		r.Post("/properties/{propertyID}/views", h.Usage.RecordView)
		r.Post("/properties/{propertyID}/inquiries", h.Usage.RecordInquiry)

		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity)

			r.Post("/properties", h.Properties.CreateProperty)
			r.Patch("/properties/{propertyID}", h.Properties.UpdateProperty)
			r.Post("/properties/{propertyID}/submit", h.Properties.SubmitProperty)
			r.Post("/properties/{propertyID}/draft", h.Properties.ReturnToDraft)
			r.Get("/properties/{propertyID}/history", h.Verifications.History)
			r.Post("/properties/{propertyID}/media/{kind}", h.Media.AttachMedia)
			r.Delete("/properties/{propertyID}/media", h.Media.RemoveMedia)
			r.Get("/properties/{propertyID}/analytics", h.Usage.Analytics)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireModerator)

			r.Post("/properties/{propertyID}/decision", h.Verifications.Decide)
			r.Get("/verifications/pending", h.Verifications.ListPending)
		})
	})

	return r
}

func NewServer(cfg ServerConfig, h Handlers, metrics MetricsProvider, baseLogger core_port.LoggerPort) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           NewRouter(cfg, h, metrics, baseLogger),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		logger: baseLogger,
	}
}

// Start запускает HTTP-сервер
func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", core_port.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Could not start server", err, nil)
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop корректно останавливает сервер
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST API server...", nil)
	return s.httpServer.Shutdown(ctx)
}
