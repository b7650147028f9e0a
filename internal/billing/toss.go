package billing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
)

const (
	// TossAPIBaseURL is the production Toss Payments API host.
	TossAPIBaseURL = "https://api.tosspayments.com"

	tossRequestTimeout = 30 * time.Second
	tossMaxBody        = 1 << 20

	tossStatusDone            = "DONE"
	tossStatusCanceled        = "CANCELED"
	tossStatusPartialCanceled = "PARTIAL_CANCELED"
	tossStatusAborted         = "ABORTED"
	tossStatusExpired         = "EXPIRED"

	tossEventPaymentStatusChanged = "PAYMENT_STATUS_CHANGED"
)

// TossGateway charges Toss Payments billing keys (자동결제).
type TossGateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewTossGateway creates a Toss gateway. A nil client gets a default one
// with a request timeout.
func NewTossGateway(secretKey, baseURL string, client *http.Client) *TossGateway {
	if baseURL == "" {
		baseURL = TossAPIBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: tossRequestTimeout}
	}
	return &TossGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
	}
}

func (g *TossGateway) Name() string { return ProviderToss }

type tossIssueRequest struct {
	AuthKey     string `json:"authKey"`
	CustomerKey string `json:"customerKey"`
}

type tossBillingResponse struct {
	BillingKey  string `json:"billingKey"`
	CustomerKey string `json:"customerKey"`
	Method      string `json:"method"`
}

type tossChargeRequest struct {
	CustomerKey   string `json:"customerKey"`
	Amount        int64  `json:"amount"`
	OrderID       string `json:"orderId"`
	OrderName     string `json:"orderName"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	CustomerName  string `json:"customerName,omitempty"`
}

type tossPayment struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	Method      string `json:"method"`
	TotalAmount int64  `json:"totalAmount"`
	ApprovedAt  string `json:"approvedAt"`
}

type tossErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type tossWebhook struct {
	EventType string `json:"eventType"`
	CreatedAt string `json:"createdAt"`
	Data      struct {
		PaymentKey string `json:"paymentKey"`
		OrderID    string `json:"orderId"`
		Status     string `json:"status"`
	} `json:"data"`
}

// IssueBillingKey calls POST /v1/billing/authorizations/issue.
func (g *TossGateway) IssueBillingKey(ctx context.Context, params IssueBillingKeyParams) (*BillingAgreement, error) {
	if params.AuthKey == "" || params.CustomerKey == "" {
		return nil, fmt.Errorf("toss issue billing key: authKey and customerKey are required")
	}

	var resp tossBillingResponse
	err := g.do(ctx, "/v1/billing/authorizations/issue", "", tossIssueRequest{
		AuthKey:     params.AuthKey,
		CustomerKey: params.CustomerKey,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("toss issue billing key: %w", err)
	}
	if resp.BillingKey == "" {
		return nil, fmt.Errorf("toss issue billing key: response has no billingKey")
	}

	customerKey := resp.CustomerKey
	if customerKey == "" {
		customerKey = params.CustomerKey
	}
	return &BillingAgreement{
		BillingKey:  resp.BillingKey,
		CustomerKey: customerKey,
		Method:      resp.Method,
	}, nil
}

// ChargeBillingKey calls POST /v1/billing/{billingKey}.
func (g *TossGateway) ChargeBillingKey(ctx context.Context, params ChargeParams) (*Charge, error) {
	if params.BillingKey == "" {
		return nil, fmt.Errorf("toss charge: billing key is required")
	}

	var payment tossPayment
	err := g.do(ctx, "/v1/billing/"+url.PathEscape(params.BillingKey), params.OrderID, tossChargeRequest{
		CustomerKey:   params.CustomerKey,
		Amount:        params.Amount,
		OrderID:       params.OrderID,
		OrderName:     params.OrderName,
		CustomerEmail: params.CustomerEmail,
		CustomerName:  params.CustomerName,
	}, &payment)
	if err != nil {
		return nil, fmt.Errorf("toss charge: %w", err)
	}

	if payment.Status != tossStatusDone {
		return nil, &GatewayError{
			Gateway: ProviderToss,
			Code:    payment.Status,
			Message: "payment was not approved",
		}
	}

	approvedAt, err := time.Parse(time.RFC3339, payment.ApprovedAt)
	if err != nil {
		approvedAt = time.Now()
	}
	orderID := payment.OrderID
	if orderID == "" {
		orderID = params.OrderID
	}
	return &Charge{
		TransactionID: payment.PaymentKey,
		OrderID:       orderID,
		Method:        payment.Method,
		Amount:        payment.TotalAmount,
		ApprovedAt:    approvedAt,
	}, nil
}

// ParseWebhook handles PAYMENT_STATUS_CHANGED events. Other event types are
// acknowledged and ignored.
func (g *TossGateway) ParseWebhook(payload []byte, _ http.Header) (*WebhookEvent, error) {
	var hook tossWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("toss webhook: decode payload: %w", err)
	}
	if hook.EventType != tossEventPaymentStatusChanged {
		return nil, nil
	}
	if hook.Data.OrderID == "" {
		return nil, fmt.Errorf("toss webhook: missing orderId")
	}

	event := &WebhookEvent{
		Type:          hook.EventType,
		OrderID:       hook.Data.OrderID,
		TransactionID: hook.Data.PaymentKey,
	}
	switch hook.Data.Status {
	case tossStatusDone:
		event.Status = domain.PaymentStatusCompleted
	case tossStatusCanceled, tossStatusPartialCanceled:
		event.Status = domain.PaymentStatusRefunded
	case tossStatusAborted, tossStatusExpired:
		event.Status = domain.PaymentStatusFailed
		event.FailureReason = strings.ToLower(hook.Data.Status)
	default:
		// READY, IN_PROGRESS and WAITING_FOR_DEPOSIT are intermediate states.
		return nil, nil
	}
	return event, nil
}

// do sends a JSON POST with secret-key Basic auth and decodes the response
// into out. Non-2xx responses become *GatewayError.
func (g *TossGateway) do(ctx context.Context, path, idempotencyKey string, body, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", g.authorization())
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, tossMaxBody))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp tossErrorResponse
		_ = json.Unmarshal(respBody, &errResp)
		if errResp.Message == "" {
			errResp.Message = http.StatusText(resp.StatusCode)
		}
		return &GatewayError{
			Gateway:    ProviderToss,
			StatusCode: resp.StatusCode,
			Code:       errResp.Code,
			Message:    errResp.Message,
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// authorization is "Basic base64(secretKey + ':')".
func (g *TossGateway) authorization() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(g.secretKey+":"))
}

var _ Gateway = (*TossGateway)(nil)
