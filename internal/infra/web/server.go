package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"coach-connect/internal/config"
	"coach-connect/internal/domain/model"
	"coach-connect/internal/usecase"
)

// Pinger reports the health of an optional dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg    config.ServerConfig
	flows  []model.Flow
	chatUC usecase.ChatUseCase
	checks map[string]Pinger
	log    *zerolog.Logger
	server *http.Server
}

// NewServer builds the HTTP surface. checks may be nil; each entry shows up
// in /health.
func NewServer(
	cfg config.ServerConfig,
	flows []model.Flow,
	chatUC usecase.ChatUseCase,
	checks map[string]Pinger,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		cfg:    cfg,
		flows:  flows,
		chatUC: chatUC,
		checks: checks,
		log:    &l,
	}
}

// Routes mounts one POST per flow path and one page per flow page path.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestContext)
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Vercel-AI-Data-Stream"},
	}).Handler)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, f := range s.flows {
		r.Post(f.Path, s.chatHandler(f))
		if f.PagePath != "" {
			r.Get(f.PagePath, pageHandler(f, s.log))
		}
	}
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	s.log.Info().Int("port", s.cfg.Port).Int("flows", len(s.flows)).Msg("HTTP server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, p := range s.checks {
			if err := p.Ping(ctx); err != nil {
				body[name] = "error: " + err.Error()
				body["status"] = "degraded"
				continue
			}
			body[name] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, body)
}
