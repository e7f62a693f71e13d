package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"storefront-billing/internal/usecase"
)

// Server exposes the webhook endpoint, health and metrics probes, and the
// JWT-protected admin API.
type Server struct {
	subUC     usecase.SubscriptionUseCase
	planSync  usecase.PlanSyncUseCase
	webhookUC usecase.WebhookUseCase
	auth      *AuthManager
	log       *zerolog.Logger
}

func NewServer(
	subUC usecase.SubscriptionUseCase,
	planSync usecase.PlanSyncUseCase,
	webhookUC usecase.WebhookUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		subUC:     subUC,
		planSync:  planSync,
		webhookUC: webhookUC,
		auth:      auth,
		log:       logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Providers probe with GET before enabling deliveries, then POST events.
	r.Get("/webhooks/payment-provider", s.webhookHandler)
	r.Post("/webhooks/payment-provider", s.webhookHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Post("/plans/sync", s.plansSyncHandler)
		r.Route("/stores/{storeID}", func(r chi.Router) {
			r.Get("/billing", s.billingViewHandler)
			r.Post("/subscription", s.subscriptionCreateHandler)
			r.Delete("/subscription", s.subscriptionCancelHandler)
		})
	})

	return r
}
