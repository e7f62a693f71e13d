package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/infra/logging"
	"storefront-billing/internal/infra/metrics"
)

// webhookEnvelope covers both delivery shapes the provider uses: JSON bodies
// with a nested data.id, and legacy IPN-style query parameters.
type webhookEnvelope struct {
	ID     json.Number `json:"id"`
	Type   string      `json:"type"`
	Topic  string      `json:"topic"`
	Action string      `json:"action"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// webhookHandler always acks with 200. A non-2xx answer makes the provider
// retry-storm, and retries cannot fix an internal failure anyway; the sweeper
// re-derives anything a dropped delivery would have told us.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	defer func() {
		w.WriteHeader(http.StatusOK)
	}()

	topic, resourceID, eventID := parseWebhook(r)
	if topic == "" && resourceID == "" {
		// handshake probe or empty delivery
		return
	}
	metrics.IncWebhookReceived(topic)

	ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
	log := logging.With(ctx, s.log)

	sum, err := s.webhookUC.Handle(ctx, topic, resourceID, eventID)
	if err != nil {
		metrics.IncWebhookError()
		log.Error().Err(err).
			Str("topic", topic).
			Str("resource_id", resourceID).
			Msg("webhook processing failed")
		return
	}
	if sum.Action == "duplicate" {
		metrics.IncWebhookDuplicate()
	}
	log.Info().
		Str("topic", sum.Topic).
		Str("resource_id", sum.ResourceID).
		Str("store_id", sum.StoreID).
		Str("action", sum.Action).
		Msg("webhook processed")
}

func parseWebhook(r *http.Request) (topic, resourceID, eventID string) {
	q := r.URL.Query()
	topic = q.Get("topic")
	if topic == "" {
		topic = q.Get("type")
	}
	resourceID = q.Get("data.id")
	if resourceID == "" {
		resourceID = q.Get("id")
	}

	if r.Body != nil {
		var env webhookEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err == nil {
			if env.Type != "" {
				topic = env.Type
			} else if env.Topic != "" {
				topic = env.Topic
			}
			if env.Data.ID.String() != "" {
				resourceID = env.Data.ID.String()
			}
			eventID = env.ID.String()
		}
	}
	return topic, resourceID, eventID
}

func (s *Server) plansSyncHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.planSync.SyncAll(r.Context())
	if err != nil {
		http.Error(w, "Plan sync finished with errors", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"synced": n})
}

func (s *Server) billingViewHandler(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	view, err := s.subUC.BillingView(r.Context(), storeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type subscriptionCreateRequest struct {
	PlanID     string `json:"plan_id"`
	PayerEmail string `json:"payer_email"`
	CardToken  string `json:"card_token"`
}

func (s *Server) subscriptionCreateHandler(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")

	var req subscriptionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx := logging.WithStoreID(r.Context(), storeID)
	res, err := s.subUC.Create(ctx, storeID, req.PlanID, req.PayerEmail, req.CardToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"remote_id":    res.RemoteID,
		"status":       string(res.Status),
		"redirect_url": res.RedirectURL,
	})
}

func (s *Server) subscriptionCancelHandler(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	if err := s.subUC.Cancel(r.Context(), storeID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrPlanInactive), errors.Is(err, domain.ErrNoSubscription):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrProviderRejected):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrProviderUnavailable):
		http.Error(w, "Payment provider unavailable", http.StatusBadGateway)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
