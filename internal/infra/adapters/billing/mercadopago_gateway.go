package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/adapter"
)

// Ensure interface compliance
var _ adapter.BillingGateway = (*MercadoPagoGateway)(nil)

const defaultBaseURL = "https://api.mercadopago.com"

// MercadoPagoGateway implements BillingGateway against the MercadoPago
// preapproval API using direct HTTP calls. The bearer credential is resolved
// from the CredentialSource on every request and never cached.
type MercadoPagoGateway struct {
	baseURL string
	creds   adapter.CredentialSource
	client  *http.Client
}

func NewMercadoPagoGateway(baseURL string, creds adapter.CredentialSource) (*MercadoPagoGateway, error) {
	if creds == nil {
		return nil, domain.ErrInvalidArgument
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &MercadoPagoGateway{
		baseURL: baseURL,
		creds:   creds,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *MercadoPagoGateway) Name() string { return "mercadopago" }

type mpAutoRecurring struct {
	Frequency         int          `json:"frequency"`
	FrequencyType     string       `json:"frequency_type"`
	TransactionAmount float64      `json:"transaction_amount"`
	CurrencyID        string       `json:"currency_id"`
	FreeTrial         *mpFreeTrial `json:"free_trial,omitempty"`
}

type mpFreeTrial struct {
	Frequency     int    `json:"frequency"`
	FrequencyType string `json:"frequency_type"`
}

type mpPlanResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type mpPreapprovalResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
	InitPoint         string `json:"init_point"`
}

type mpPaymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
}

func (g *MercadoPagoGateway) CreatePlan(ctx context.Context, spec adapter.PlanSpec) (adapter.RemotePlan, error) {
	body := map[string]interface{}{
		"reason": spec.Name,
		"auto_recurring": mpAutoRecurring{
			Frequency:         1,
			FrequencyType:     "months",
			TransactionAmount: minorToAmount(spec.AmountMinor),
			CurrencyID:        spec.Currency,
			FreeTrial:         freeTrial(spec.TrialDays),
		},
	}
	var out mpPlanResponse
	if err := g.do(ctx, http.MethodPost, "/preapproval_plan", body, &out); err != nil {
		return adapter.RemotePlan{}, err
	}
	return adapter.RemotePlan{ID: out.ID, Status: out.Status}, nil
}

func (g *MercadoPagoGateway) UpdatePlan(ctx context.Context, remotePlanID string, spec adapter.PlanSpec) (adapter.RemotePlan, error) {
	status := "active"
	if !spec.Active {
		// plans are never deleted remotely, only flipped inactive
		status = "inactive"
	}
	body := map[string]interface{}{
		"reason": spec.Name,
		"status": status,
	}
	var out mpPlanResponse
	if err := g.do(ctx, http.MethodPut, "/preapproval_plan/"+remotePlanID, body, &out); err != nil {
		return adapter.RemotePlan{}, err
	}
	return adapter.RemotePlan{ID: out.ID, Status: out.Status}, nil
}

func (g *MercadoPagoGateway) CreateSubscription(ctx context.Context, req adapter.SubscriptionRequest) (adapter.RemoteSubscription, error) {
	body := map[string]interface{}{
		"preapproval_plan_id": req.RemotePlanID,
		"payer_email":         req.PayerEmail,
		"card_token_id":       req.CardToken,
		"external_reference":  req.ExternalReference,
		"reason":              req.Reason,
		"auto_recurring": mpAutoRecurring{
			Frequency:         1,
			FrequencyType:     "months",
			TransactionAmount: minorToAmount(req.AmountMinor),
			CurrencyID:        req.Currency,
		},
		"status": "authorized",
	}
	var out mpPreapprovalResponse
	if err := g.do(ctx, http.MethodPost, "/preapproval", body, &out); err != nil {
		return adapter.RemoteSubscription{}, err
	}
	return adapter.RemoteSubscription{
		ID:                out.ID,
		Status:            normalizeStatus(out.Status),
		ExternalReference: out.ExternalReference,
		RedirectURL:       out.InitPoint,
	}, nil
}

func (g *MercadoPagoGateway) GetSubscription(ctx context.Context, remoteID string) (adapter.RemoteSubscription, error) {
	var out mpPreapprovalResponse
	if err := g.do(ctx, http.MethodGet, "/preapproval/"+remoteID, nil, &out); err != nil {
		return adapter.RemoteSubscription{}, err
	}
	return adapter.RemoteSubscription{
		ID:                out.ID,
		Status:            normalizeStatus(out.Status),
		ExternalReference: out.ExternalReference,
		RedirectURL:       out.InitPoint,
	}, nil
}

func (g *MercadoPagoGateway) CancelSubscription(ctx context.Context, remoteID string) error {
	body := map[string]interface{}{"status": "cancelled"}
	var out mpPreapprovalResponse
	return g.do(ctx, http.MethodPut, "/preapproval/"+remoteID, body, &out)
}

func (g *MercadoPagoGateway) GetPayment(ctx context.Context, paymentID string) (adapter.RemotePayment, error) {
	var out mpPaymentResponse
	if err := g.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &out); err != nil {
		return adapter.RemotePayment{}, err
	}
	return adapter.RemotePayment{
		ID:                out.ID.String(),
		Status:            normalizeStatus(out.Status),
		ExternalReference: out.ExternalReference,
		AmountMinor:       int64(out.TransactionAmount * 100),
	}, nil
}

// do performs one authenticated JSON round trip. Transport failures wrap
// ErrProviderUnavailable; non-2xx responses become *domain.ProviderError.
func (g *MercadoPagoGateway) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	token, err := g.creds.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("resolve credential: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.ProviderError{StatusCode: resp.StatusCode, Message: providerMessage(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("unmarshal response: %w, body: %s", err, string(raw))
		}
	}
	return nil
}

// providerMessage pulls the human-readable error out of a provider error
// body, falling back to the raw payload.
func providerMessage(raw []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return string(raw)
}

func freeTrial(days int) *mpFreeTrial {
	if days <= 0 {
		return nil
	}
	return &mpFreeTrial{Frequency: days, FrequencyType: "days"}
}

func minorToAmount(minor int64) float64 { return float64(minor) / 100 }

// normalizeStatus maps provider statuses onto the transition-table rows.
// Payment statuses fold into the same vocabulary as preapproval statuses so
// both webhook channels feed one table.
func normalizeStatus(s string) model.ProviderStatus {
	switch s {
	case "authorized":
		return model.ProviderAuthorized
	case "active", "approved":
		return model.ProviderActive
	case "pending", "in_process":
		return model.ProviderPending
	case "paused", "rejected":
		return model.ProviderPaused
	case "cancelled", "refunded", "charged_back":
		return model.ProviderCancelled
	default:
		return model.ProviderStatus(s)
	}
}
