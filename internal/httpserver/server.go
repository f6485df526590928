package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wisbric/sellowl/internal/config"
	"github.com/wisbric/sellowl/pkg/runtime"
)

// secretTokenHeader carries the webhook secret Telegram echoes back on
// every delivery.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// maxUpdateBody bounds inbound webhook payload size.
const maxUpdateBody = 1 << 20

// BotService is the slice of the tenant runtime the ingress needs.
// *runtime.Manager implements it; tests substitute a fake.
type BotService interface {
	ActiveIDs() []string
	Records() map[string]runtime.Record
	WebhookSecret(tenantID string) (secret string, ok bool)
	HandleUpdate(ctx context.Context, tenantID string, body []byte) error
}

// Server is the webhook ingress plus operational endpoints.
type Server struct {
	Router    *chi.Mux
	Logger    *slog.Logger
	bots      BotService
	startedAt time.Time
}

// NewServer creates the HTTP server with middleware, health and status
// endpoints, and the per-tenant webhook route.
func NewServer(cfg *config.Config, logger *slog.Logger, bots BotService, metricsReg *prometheus.Registry) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    logger,
		bots:      bots,
		startedAt: time.Now(),
	}

	// Global middleware
	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	s.Router.Get("/", s.handleRoot)
	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/uptime", s.handleUptime)
	s.Router.Head("/uptime", s.handleUptimeHead)
	s.Router.Get("/status", s.handleStatus)

	s.Router.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	s.Router.Post("/webhook/{tenantID}", s.handleWebhook)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	bots := s.bots.ActiveIDs()
	if bots == nil {
		bots = []string{}
	}
	Respond(w, http.StatusOK, map[string]any{
		"status": "ok",
		"bots":   bots,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUptime(w http.ResponseWriter, _ *http.Request) {
	uptime := time.Since(s.startedAt)
	Respond(w, http.StatusOK, map[string]any{
		"status":         "online",
		"uptime":         uptime.Truncate(time.Second).String(),
		"uptime_seconds": int64(uptime.Seconds()),
	})
}

func (s *Server) handleUptimeHead(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	uptime := time.Since(s.startedAt)
	bots := s.bots.ActiveIDs()
	if bots == nil {
		bots = []string{}
	}
	Respond(w, http.StatusOK, map[string]any{
		"loaded_bots":     bots,
		"startup_results": s.bots.Records(),
		"uptime":          uptime.Truncate(time.Second).String(),
	})
}

// handleWebhook is the per-tenant ingress. Response semantics are chosen to
// keep the transport provider from retrying poisoned events: only unknown
// tenants and malformed JSON are non-200; processing failures answer 200
// with ok=false.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	secret, ok := s.bots.WebhookSecret(tenantID)
	if !ok {
		Respond(w, http.StatusNotFound, map[string]string{"error": "unknown or inactive brand"})
		return
	}

	if secret != "" {
		got := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			Respond(w, http.StatusUnauthorized, map[string]string{"error": "invalid secret token"})
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBody))
	if err != nil || len(body) == 0 || !json.Valid(body) {
		Respond(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad_json"})
		return
	}

	if err := s.bots.HandleUpdate(r.Context(), tenantID, body); err != nil {
		if errors.Is(err, runtime.ErrUnknownTenant) {
			Respond(w, http.StatusNotFound, map[string]string{"error": "unknown or inactive brand"})
			return
		}
		s.Logger.Error("processing webhook update",
			"tenant", tenantID,
			"error", err,
			"request_id", RequestIDFromContext(r.Context()),
		)
		Respond(w, http.StatusOK, map[string]any{"ok": false, "error": "update_processing_error"})
		return
	}

	Respond(w, http.StatusOK, map[string]any{"ok": true})
}
