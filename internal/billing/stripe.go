package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/setupintent"
	"github.com/stripe/stripe-go/v79/webhook"
)

// stripeOrderIDKey is the PaymentIntent metadata key carrying our order ID.
const stripeOrderIDKey = "order_id"

// StripeGateway uses a confirmed SetupIntent as the authorization and the
// saved PaymentMethod as the billing key.
type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway configures the global Stripe key and returns the gateway.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

func (g *StripeGateway) Name() string { return ProviderStripe }

// IssueBillingKey treats the auth key as a SetupIntent ID.
func (g *StripeGateway) IssueBillingKey(ctx context.Context, params IssueBillingKeyParams) (*BillingAgreement, error) {
	siParams := &stripe.SetupIntentParams{}
	siParams.Context = ctx
	siParams.AddExpand("payment_method")

	si, err := setupintent.Get(params.AuthKey, siParams)
	if err != nil {
		return nil, fmt.Errorf("stripe get setup intent: %w", wrapStripeError(err))
	}
	if si.Status != stripe.SetupIntentStatusSucceeded {
		return nil, &GatewayError{
			Gateway: ProviderStripe,
			Code:    string(si.Status),
			Message: "setup intent has not succeeded",
		}
	}
	if si.PaymentMethod == nil || si.PaymentMethod.ID == "" {
		return nil, fmt.Errorf("stripe get setup intent: no payment method attached")
	}

	agreement := &BillingAgreement{
		BillingKey:  si.PaymentMethod.ID,
		CustomerKey: params.CustomerKey,
		Method:      string(si.PaymentMethod.Type),
	}
	if si.Customer != nil && si.Customer.ID != "" {
		agreement.CustomerKey = si.Customer.ID
	}
	return agreement, nil
}

// ChargeBillingKey confirms an off-session PaymentIntent against the saved
// payment method.
func (g *StripeGateway) ChargeBillingKey(ctx context.Context, params ChargeParams) (*Charge, error) {
	currency := strings.ToLower(params.Currency)
	if currency == "" {
		currency = strings.ToLower(domain.DefaultCurrency)
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(params.Amount),
		Currency:      stripe.String(currency),
		Customer:      stripe.String(params.CustomerKey),
		PaymentMethod: stripe.String(params.BillingKey),
		Description:   stripe.String(params.OrderName),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
	}
	piParams.Context = ctx
	piParams.AddMetadata(stripeOrderIDKey, params.OrderID)
	piParams.SetIdempotencyKey(params.OrderID)

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", wrapStripeError(err))
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, &GatewayError{
			Gateway: ProviderStripe,
			Code:    string(pi.Status),
			Message: "payment intent did not succeed",
		}
	}

	return &Charge{
		TransactionID: pi.ID,
		OrderID:       params.OrderID,
		Method:        "card",
		Amount:        pi.Amount,
		ApprovedAt:    time.Unix(pi.Created, 0),
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and maps PaymentIntent
// outcomes onto payment log statuses.
func (g *StripeGateway) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header.Get("Stripe-Signature"), g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}

	var status domain.PaymentStatus
	switch event.Type {
	case "payment_intent.succeeded":
		status = domain.PaymentStatusCompleted
	case "payment_intent.payment_failed", "payment_intent.canceled":
		status = domain.PaymentStatusFailed
	default:
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe webhook: decode payment intent: %w", err)
	}
	orderID := pi.Metadata[stripeOrderIDKey]
	if orderID == "" {
		// Not one of ours.
		return nil, nil
	}

	out := &WebhookEvent{
		Type:          string(event.Type),
		OrderID:       orderID,
		TransactionID: pi.ID,
		Status:        status,
	}
	if pi.LastPaymentError != nil {
		out.FailureReason = pi.LastPaymentError.Msg
	}
	return out, nil
}

func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := string(stripeErr.Code)
		if stripeErr.DeclineCode != "" {
			code = string(stripeErr.DeclineCode)
		}
		return &GatewayError{
			Gateway:    ProviderStripe,
			StatusCode: stripeErr.HTTPStatusCode,
			Code:       code,
			Message:    stripeErr.Msg,
		}
	}
	return err
}

var _ Gateway = (*StripeGateway)(nil)
