package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/service"
)

// maxWebhookBody is the largest gateway notification accepted.
const maxWebhookBody = 65536

// WebhookHandler receives payment gateway notifications.
//
// Routes handled:
// - POST /payments/toss/webhook   -> Toss
// - POST /payments/stripe/webhook -> Stripe
//
// Requests for a gateway other than the configured one get 404.
type WebhookHandler struct {
	billing service.BillingService
	logger  *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(billing service.BillingService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing: billing,
		logger:  logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These endpoints do NOT require authentication; gateways sign payloads.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /payments/toss/webhook", h.gateway("toss"))
	mux.HandleFunc("POST /payments/stripe/webhook", h.gateway("stripe"))
}

func (h *WebhookHandler) gateway(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "WebhookHandler.Handle"

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			h.logger.Error("failed to read webhook body", "gateway", name, "error", err)
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, op, "Webhook payload is too large"))
			return
		}

		if err := h.billing.HandleWebhook(r.Context(), name, payload, r.Header); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}

		// Acknowledge so the gateway stops retrying
		writeOK(w, map[string]bool{"received": true})
	}
}
