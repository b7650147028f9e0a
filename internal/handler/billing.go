package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/auth"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/service"
)

// CronSecretHeader lets the scheduler authenticate without a JSON body field.
const CronSecretHeader = "X-Cron-Secret"

// BillingHandler handles checkout, recurring charge and payment history
// HTTP requests.
//
// Routes handled:
// - GET  /pricing                         -> Pricing
// - GET  /user/payments                   -> Payments
// - POST /payments/toss/billing/checkout  -> Checkout
// - POST /payments/toss/billing/confirm   -> Confirm
// - POST /payments/toss/billing/charge    -> Charge (session or cron secret)
// - GET  /admin/subscriptions/due         -> DueSubscriptions (admin)
type BillingHandler struct {
	billing    service.BillingService
	cronSecret string
	logger     *slog.Logger
}

// NewBillingHandler creates a new BillingHandler. An empty cronSecret
// disables scheduler authentication.
func NewBillingHandler(billing service.BillingService, cronSecret string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing:    billing,
		cronSecret: cronSecret,
		logger:     logger,
	}
}

// RegisterRoutes registers billing routes on the provided mux.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser, requireAdmin func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /pricing", h.Pricing)
	mux.Handle("GET /user/payments", requireUser(http.HandlerFunc(h.Payments)))
	mux.Handle("POST /payments/toss/billing/checkout", requireUser(http.HandlerFunc(h.Checkout)))
	mux.Handle("POST /payments/toss/billing/confirm", requireUser(http.HandlerFunc(h.Confirm)))
	mux.HandleFunc("POST /payments/toss/billing/charge", h.Charge)
	mux.Handle("GET /admin/subscriptions/due", requireAdmin(http.HandlerFunc(h.DueSubscriptions)))
}

// Pricing returns the active price catalog.
func (h *BillingHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	prices, err := h.billing.ListPrices(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]priceResponse, 0, len(prices))
	for _, p := range prices {
		out = append(out, priceResponse{
			Plan:      string(p.Plan),
			Amount:    p.Amount,
			Currency:  p.Currency,
			OrderName: p.OrderName,
		})
	}
	writeOK(w, map[string]any{"prices": out})
}

// Payments returns the caller's payment log.
func (h *BillingHandler) Payments(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, "BillingHandler.Payments")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	limit, offset := pagination(r)
	logs, err := h.billing.ListPayments(r.Context(), user.ID, limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]paymentResponse, 0, len(logs))
	for _, p := range logs {
		out = append(out, toPaymentResponse(p))
	}
	writeOK(w, map[string]any{"payments": out})
}

// DueSubscriptions lists subscriptions the next scheduler run would charge.
func (h *BillingHandler) DueSubscriptions(w http.ResponseWriter, r *http.Request) {
	limit, _ := pagination(r)
	subs, err := h.billing.ListDueSubscriptions(r.Context(), time.Now(), limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	type dueSubscription struct {
		UserID string `json:"userId"`
		subscriptionResponse
	}
	out := make([]dueSubscription, 0, len(subs))
	for i := range subs {
		out = append(out, dueSubscription{
			UserID:               subs[i].UserID.String(),
			subscriptionResponse: toSubscriptionResponse(&subs[i]),
		})
	}
	writeOK(w, map[string]any{"subscriptions": out})
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

type checkoutResponse struct {
	OrderID     string `json:"orderId"`
	CustomerKey string `json:"customerKey"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	OrderName   string `json:"orderName"`
	Plan        string `json:"plan"`
}

// Checkout creates a pending payment for the hosted billing-auth widget.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	const op = "BillingHandler.Checkout"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	plan, err := domain.ParsePlan(req.Plan)
	if err != nil || !plan.IsPaid() {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "plan must be pro or expert"))
		return
	}

	checkout, err := h.billing.StartCheckout(r.Context(), user.ID, plan)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, checkoutResponse{
		OrderID:     checkout.OrderID,
		CustomerKey: checkout.CustomerKey,
		Amount:      checkout.Amount,
		Currency:    checkout.Currency,
		OrderName:   checkout.OrderName,
		Plan:        string(checkout.Plan),
	})
}

type confirmRequest struct {
	AuthKey     string `json:"authKey"`
	CustomerKey string `json:"customerKey"`
	OrderID     string `json:"orderId"`
}

type chargeResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
	Amount  int64  `json:"amount"`
	Plan    string `json:"plan,omitempty"`
}

// Confirm completes checkout: issues the billing key and charges the first period.
func (h *BillingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	const op = "BillingHandler.Confirm"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req confirmRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var verr error
	if req.AuthKey == "" {
		verr = domain.NewValidationError(op, "authKey", "is required")
	}
	if req.CustomerKey == "" {
		verr = domain.AddFieldError(verr, "customerKey", "is required")
	}
	if req.OrderID == "" {
		verr = domain.AddFieldError(verr, "orderId", "is required")
	}
	if verr != nil {
		ErrorResponse(w, r, h.logger, verr)
		return
	}

	result, err := h.billing.ConfirmCheckout(r.Context(), domain.ConfirmCheckoutParams{
		UserID:      user.ID,
		OrderID:     req.OrderID,
		AuthKey:     req.AuthKey,
		CustomerKey: req.CustomerKey,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, chargeResponse{Success: true, OrderID: result.OrderID, Amount: result.Amount, Plan: string(result.Plan)})
}

type chargeRequest struct {
	UserID     string `json:"userId"`
	CronSecret string `json:"cronSecret,omitempty"`
}

// Charge bills one period of a subscription. The scheduler authenticates
// with the cron secret (body field or header); a session user may charge
// their own subscription and an admin any subscription.
func (h *BillingHandler) Charge(w http.ResponseWriter, r *http.Request) {
	const op = "BillingHandler.Charge"

	var req chargeRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	secret := req.CronSecret
	if secret == "" {
		secret = r.Header.Get(CronSecretHeader)
	}

	var caller domain.ChargeCaller
	switch {
	case secret != "":
		if !h.validCronSecret(secret) {
			h.logger.Warn("charge with invalid cron secret", "ip", r.RemoteAddr)
			ErrorResponse(w, r, h.logger, domain.Forbidden(op, "Invalid scheduler credentials"))
			return
		}
		caller = domain.SchedulerCaller()
	default:
		user := auth.GetUser(r.Context())
		if user == nil {
			ErrorResponse(w, r, h.logger, domain.Forbidden(op, "You are not allowed to charge this subscription"))
			return
		}
		caller = domain.ChargeCaller{UserID: user.ID, Role: user.Role}
		if req.UserID == "" {
			req.UserID = user.ID.String()
		}
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "userId must be a valid id"))
		return
	}

	result, err := h.billing.ChargeSubscription(r.Context(), userID, caller)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, chargeResponse{Success: true, OrderID: result.OrderID, Amount: result.Amount, Plan: string(result.Plan)})
}

func (h *BillingHandler) validCronSecret(secret string) bool {
	if h.cronSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(h.cronSecret)) == 1
}
