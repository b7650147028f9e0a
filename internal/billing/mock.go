package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
)

// MockDeclinePrefix makes the mock gateway decline any billing key starting
// with it.
const MockDeclinePrefix = "decline_"

// MockGateway is an in-process gateway for development and tests.
type MockGateway struct {
	mu      sync.Mutex
	charges []ChargeParams

	// ChargeFunc overrides the charge outcome when set.
	ChargeFunc func(ctx context.Context, params ChargeParams) (*Charge, error)
}

// NewMockGateway creates a mock gateway that approves every charge except
// those against keys starting with MockDeclinePrefix.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Name() string { return ProviderMock }

func (g *MockGateway) IssueBillingKey(_ context.Context, params IssueBillingKeyParams) (*BillingAgreement, error) {
	if params.AuthKey == "" || params.CustomerKey == "" {
		return nil, &GatewayError{Gateway: ProviderMock, Code: "INVALID_REQUEST", Message: "authKey and customerKey are required"}
	}
	return &BillingAgreement{
		BillingKey:  "mock_" + params.AuthKey,
		CustomerKey: params.CustomerKey,
		Method:      "card",
	}, nil
}

func (g *MockGateway) ChargeBillingKey(ctx context.Context, params ChargeParams) (*Charge, error) {
	g.mu.Lock()
	g.charges = append(g.charges, params)
	g.mu.Unlock()

	if g.ChargeFunc != nil {
		return g.ChargeFunc(ctx, params)
	}
	if strings.HasPrefix(params.BillingKey, MockDeclinePrefix) {
		return nil, &GatewayError{Gateway: ProviderMock, Code: "REJECT_CARD_PAYMENT", Message: "card declined"}
	}
	return &Charge{
		TransactionID: "mock_" + uuid.NewString(),
		OrderID:       params.OrderID,
		Method:        "card",
		Amount:        params.Amount,
		ApprovedAt:    time.Now(),
	}, nil
}

// Charges returns every charge attempt seen so far.
func (g *MockGateway) Charges() []ChargeParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ChargeParams, len(g.charges))
	copy(out, g.charges)
	return out
}

type mockWebhook struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// ParseWebhook accepts {"order_id","transaction_id","status"} where status
// is a payment log status.
func (g *MockGateway) ParseWebhook(payload []byte, _ http.Header) (*WebhookEvent, error) {
	var hook mockWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("mock webhook: decode payload: %w", err)
	}
	status := domain.PaymentStatus(hook.Status)
	if hook.OrderID == "" || !status.IsValid() {
		return nil, fmt.Errorf("mock webhook: order_id and a valid status are required")
	}
	return &WebhookEvent{
		Type:          "mock." + hook.Status,
		OrderID:       hook.OrderID,
		TransactionID: hook.TransactionID,
		Status:        status,
	}, nil
}

var _ Gateway = (*MockGateway)(nil)
