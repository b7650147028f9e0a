// Package billing integrates with external payment gateways.
//
// A Gateway issues reusable billing keys from a customer authorization and
// charges them off-session. The subscription billing flow in the service
// layer only depends on this interface, so Toss Payments, Stripe and the
// development mock are interchangeable.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
)

// Provider names accepted by New.
const (
	ProviderToss   = "toss"
	ProviderStripe = "stripe"
	ProviderMock   = "mock"
)

// Gateway is the payment gateway contract used by the billing service.
type Gateway interface {
	// Name identifies the gateway in payment logs.
	Name() string

	// IssueBillingKey exchanges a one-time customer authorization for a
	// reusable billing key.
	IssueBillingKey(ctx context.Context, params IssueBillingKeyParams) (*BillingAgreement, error)

	// ChargeBillingKey charges a stored billing key. The order ID doubles as
	// the idempotency key, so retries of the same order are not charged twice.
	ChargeBillingKey(ctx context.Context, params ChargeParams) (*Charge, error)

	// ParseWebhook verifies and normalizes a gateway callback. A nil event
	// with a nil error means the callback is valid but not relevant.
	ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error)
}

// IssueBillingKeyParams carries the result of the client-side authorization.
type IssueBillingKeyParams struct {
	AuthKey     string
	CustomerKey string
}

// BillingAgreement is a reusable charge authorization.
type BillingAgreement struct {
	BillingKey  string
	CustomerKey string
	Method      string
}

// ChargeParams describes one off-session charge.
type ChargeParams struct {
	BillingKey    string
	CustomerKey   string
	OrderID       string
	OrderName     string
	Amount        int64
	Currency      string
	CustomerEmail string
	CustomerName  string
}

// Charge is a successful gateway charge.
type Charge struct {
	TransactionID string
	OrderID       string
	Method        string
	Amount        int64
	ApprovedAt    time.Time
}

// WebhookEvent is a gateway callback reduced to the fields the payment log
// cares about.
type WebhookEvent struct {
	Type          string
	OrderID       string
	TransactionID string
	Status        domain.PaymentStatus
	FailureReason string
}

// GatewayError is a rejection reported by the gateway itself, such as a
// declined card or an invalid billing key.
type GatewayError struct {
	Gateway    string
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %s", e.Gateway, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Gateway, e.Message)
}

// AsGatewayError unwraps a *GatewayError from err.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// FailureReason renders err as a short, log-safe reason string.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	if gwErr, ok := AsGatewayError(err); ok {
		if gwErr.Code != "" {
			return gwErr.Code + ": " + gwErr.Message
		}
		return gwErr.Message
	}
	return err.Error()
}

// Config selects and configures a gateway.
type Config struct {
	Provider            string
	TossSecretKey       string
	TossAPIBaseURL      string
	StripeSecretKey     string
	StripeWebhookSecret string
}

// New returns the gateway named by cfg.Provider.
func New(cfg Config) (Gateway, error) {
	switch cfg.Provider {
	case ProviderToss:
		return NewTossGateway(cfg.TossSecretKey, cfg.TossAPIBaseURL, nil), nil
	case ProviderStripe:
		return NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret), nil
	case ProviderMock, "":
		return NewMockGateway(), nil
	default:
		return nil, fmt.Errorf("unknown payment provider: %s", cfg.Provider)
	}
}
