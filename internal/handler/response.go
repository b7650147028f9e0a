package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
)

// =============================================================================
// JSON response shapes
// =============================================================================
//
// Domain types carry no JSON tags; these structs are the wire contract.

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	CompanyName string    `json:"companyName,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		CompanyName: u.CompanyName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

type subscriptionResponse struct {
	Plan               string     `json:"plan"`
	Status             string     `json:"status"`
	PendingPlan        *string    `json:"pendingPlan"`
	HasBillingKey      bool       `json:"hasBillingKey"`
	CurrentPeriodStart *time.Time `json:"currentPeriodStart"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd"`
}

func toSubscriptionResponse(s *domain.Subscription) subscriptionResponse {
	resp := subscriptionResponse{
		Plan:               string(s.Plan.OrDefault()),
		Status:             string(s.Status),
		HasBillingKey:      s.HasBillingKey(),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
	}
	if s.PendingPlan != nil {
		p := string(*s.PendingPlan)
		resp.PendingPlan = &p
	}
	return resp
}

type paymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       string          `json:"orderId"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Plan          string          `json:"plan,omitempty"`
	Method        string          `json:"method,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Description   string          `json:"description,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	PaidAt        *time.Time      `json:"paidAt"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toPaymentResponse(p domain.PaymentLog) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		Plan:          string(p.Plan),
		Method:        p.Method,
		TransactionID: p.TransactionID,
		Description:   p.Description,
		FailureReason: p.FailureReason,
		Metadata:      p.Metadata,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}

type priceResponse struct {
	Plan      string `json:"plan"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	OrderName string `json:"orderName"`
}

type couponResponse struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"`
	Plan         string     `json:"plan"`
	DurationDays int        `json:"durationDays"`
	Redeemed     bool       `json:"redeemed"`
	RedeemedBy   *uuid.UUID `json:"redeemedBy"`
	RedeemedAt   *time.Time `json:"redeemedAt"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func toCouponResponse(c *domain.Coupon) couponResponse {
	return couponResponse{
		ID:           c.ID,
		Code:         c.Code,
		Plan:         string(c.Plan),
		DurationDays: c.DurationDays,
		Redeemed:     c.IsRedeemed(),
		RedeemedBy:   c.RedeemedBy,
		RedeemedAt:   c.RedeemedAt,
		ExpiresAt:    c.ExpiresAt,
		CreatedAt:    c.CreatedAt,
	}
}

type policyResponse struct {
	GroupName                string    `json:"groupName"`
	MonthlyProjectLimit      int       `json:"monthlyProjectLimit"`
	MonthlyPresentationLimit int       `json:"monthlyPresentationLimit"`
	Description              string    `json:"description"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

func toPolicyResponse(p *domain.GroupPolicy) policyResponse {
	return policyResponse{
		GroupName:                p.GroupName,
		MonthlyProjectLimit:      p.MonthlyProjectLimit,
		MonthlyPresentationLimit: p.MonthlyPresentationLimit,
		Description:              p.Description,
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
	}
}

type projectResponse struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Status       string          `json:"status"`
	FileName     string          `json:"fileName"`
	ContentType  string          `json:"contentType"`
	FileSize     int64           `json:"fileSize"`
	Analysis     json.RawMessage `json:"analysis,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func toProjectResponse(p *domain.Project) projectResponse {
	resp := projectResponse{
		ID:           p.ID,
		Title:        p.Title,
		Status:       string(p.Status),
		FileName:     p.FileName,
		ContentType:  p.ContentType,
		FileSize:     p.FileSize,
		ErrorMessage: p.ErrorMessage,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	resp.Analysis = rawOrString(p.Analysis)
	return resp
}

type presentationResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProjectID    uuid.UUID       `json:"projectId"`
	Status       string          `json:"status"`
	Content      json.RawMessage `json:"content,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func toPresentationResponse(p *domain.Presentation) presentationResponse {
	return presentationResponse{
		ID:           p.ID,
		ProjectID:    p.ProjectID,
		Status:       string(p.Status),
		Content:      rawOrString(p.Content),
		ErrorMessage: p.ErrorMessage,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type reportResponse struct {
	ID           uuid.UUID  `json:"id"`
	ProjectID    uuid.UUID  `json:"projectId"`
	Status       string     `json:"status"`
	FileSize     int64      `json:"fileSize,omitempty"`
	URL          string     `json:"url,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt"`
}

func toReportResponse(r *domain.Report) reportResponse {
	return reportResponse{
		ID:           r.ID,
		ProjectID:    r.ProjectID,
		Status:       string(r.Status),
		FileSize:     r.FileSize,
		URL:          r.URL,
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt,
		CompletedAt:  r.CompletedAt,
	}
}

// rawOrString embeds stored JSON as-is and wraps anything else (legacy
// plain-text analyses) as a JSON string.
func rawOrString(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}
