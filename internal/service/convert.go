package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/sqlc-dev/pqtype"
)

// =============================================================================
// Repository -> Domain Conversion
// =============================================================================

func repoUserToDomain(u repository.User) *domain.User {
	return &domain.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		CompanyName:  domain.NullStringValue(u.CompanyName),
		Role:         domain.Role(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func repoSubscriptionToDomain(s repository.Subscription) *domain.Subscription {
	sub := &domain.Subscription{
		ID:                 s.ID,
		UserID:             s.UserID,
		Plan:               domain.Plan(s.Plan),
		Status:             domain.SubscriptionStatus(s.Status),
		BillingKey:         domain.NullStringValue(s.BillingKey),
		CustomerKey:        domain.NullStringValue(s.CustomerKey),
		CurrentPeriodStart: domain.NullTimeValue(s.CurrentPeriodStart),
		CurrentPeriodEnd:   domain.NullTimeValue(s.CurrentPeriodEnd),
		Version:            s.Version,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	if s.PendingPlan.Valid {
		pending := domain.Plan(s.PendingPlan.String)
		sub.PendingPlan = &pending
	}
	return sub
}

// freeSubscription stands in for users that have no subscription row yet.
func freeSubscription(userID uuid.UUID) *domain.Subscription {
	return &domain.Subscription{
		UserID: userID,
		Plan:   domain.PlanFree,
		Status: domain.SubscriptionStatusActive,
	}
}

func repoCouponToDomain(c repository.Coupon) *domain.Coupon {
	return &domain.Coupon{
		ID:           c.ID,
		Code:         c.Code,
		Plan:         domain.Plan(c.Plan),
		DurationDays: int(c.DurationDays),
		RedeemedBy:   domain.NullUUIDValue(c.RedeemedBy),
		RedeemedAt:   domain.NullTimeValue(c.RedeemedAt),
		ExpiresAt:    domain.NullTimeValue(c.ExpiresAt),
		CreatedBy:    domain.NullUUIDValue(c.CreatedBy),
		CreatedAt:    c.CreatedAt,
	}
}

func repoPolicyToDomain(p repository.GroupPolicy) *domain.GroupPolicy {
	return &domain.GroupPolicy{
		GroupName:                p.GroupName,
		MonthlyProjectLimit:      int(p.MonthlyProjectLimit),
		MonthlyPresentationLimit: int(p.MonthlyPresentationLimit),
		Description:              p.Description,
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
	}
}

func repoPaymentLogToDomain(p repository.PaymentLog) domain.PaymentLog {
	log := domain.PaymentLog{
		ID:            p.ID,
		UserID:        p.UserID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        domain.PaymentStatus(p.Status),
		Plan:          domain.Plan(p.Plan),
		Method:        p.Method,
		TransactionID: domain.NullStringValue(p.TransactionID),
		Description:   p.Description,
		FailureReason: domain.NullStringValue(p.FailureReason),
		PaidAt:        domain.NullTimeValue(p.PaidAt),
		CreatedAt:     p.CreatedAt,
	}
	if p.Metadata.Valid {
		log.Metadata = p.Metadata.RawMessage
	}
	return log
}

func repoPlanPriceToDomain(p repository.PlanPrice) domain.PlanPrice {
	return domain.PlanPrice{
		Plan:      domain.Plan(p.Plan),
		Amount:    p.Amount,
		Currency:  p.Currency,
		OrderName: p.OrderName,
	}
}

func repoProjectToDomain(p repository.Project) *domain.Project {
	return &domain.Project{
		ID:           p.ID,
		UserID:       p.UserID,
		Title:        p.Title,
		Status:       domain.ProjectStatus(p.Status),
		FileKey:      p.FileKey,
		FileName:     p.FileName,
		ContentType:  p.ContentType,
		FileSize:     p.FileSize,
		Analysis:     domain.NullStringValue(p.Analysis),
		ErrorMessage: domain.NullStringValue(p.ErrorMessage),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func repoPresentationToDomain(p repository.Presentation) *domain.Presentation {
	return &domain.Presentation{
		ID:           p.ID,
		ProjectID:    p.ProjectID,
		UserID:       p.UserID,
		Status:       domain.ArtifactStatus(p.Status),
		Content:      domain.NullStringValue(p.Content),
		ErrorMessage: domain.NullStringValue(p.ErrorMessage),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func repoReportToDomain(r repository.Report) *domain.Report {
	report := &domain.Report{
		ID:           r.ID,
		ProjectID:    r.ProjectID,
		UserID:       r.UserID,
		Status:       domain.ArtifactStatus(r.Status),
		FileKey:      domain.NullStringValue(r.FileKey),
		ErrorMessage: domain.NullStringValue(r.ErrorMessage),
		CreatedAt:    r.CreatedAt,
		CompletedAt:  domain.NullTimeValue(r.CompletedAt),
	}
	if r.FileSize.Valid {
		report.FileSize = r.FileSize.Int64
	}
	return report
}

// =============================================================================
// Subscription Writes
// =============================================================================

// subscriptionUpdate returns update params that rewrite s unchanged at the
// version it was read at. Callers modify the fields they mean to change.
func subscriptionUpdate(s repository.Subscription) repository.UpdateSubscriptionParams {
	return repository.UpdateSubscriptionParams{
		UserID:             s.UserID,
		Version:            s.Version,
		Plan:               s.Plan,
		Status:             s.Status,
		PendingPlan:        s.PendingPlan,
		BillingKey:         s.BillingKey,
		CustomerKey:        s.CustomerKey,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
	}
}

// applySubscriptionUpdate writes params and reports a lost race as Conflict.
// The returned row reflects the write, including the bumped version.
func applySubscriptionUpdate(ctx context.Context, q repository.Querier, current repository.Subscription, params repository.UpdateSubscriptionParams, op string) (repository.Subscription, error) {
	rows, err := q.UpdateSubscription(ctx, params)
	if err != nil {
		return repository.Subscription{}, domain.Internal(err, op, "Failed to update subscription")
	}
	if rows == 0 {
		return repository.Subscription{}, domain.Conflict(op, "Subscription was modified concurrently. Please try again.")
	}

	updated := current
	updated.Plan = params.Plan
	updated.Status = params.Status
	updated.PendingPlan = params.PendingPlan
	updated.BillingKey = params.BillingKey
	updated.CustomerKey = params.CustomerKey
	updated.CurrentPeriodStart = params.CurrentPeriodStart
	updated.CurrentPeriodEnd = params.CurrentPeriodEnd
	updated.Version = params.Version + 1
	updated.UpdatedAt = time.Now()
	return updated, nil
}

// maxSubscriptionAttempts bounds how often a locked update re-reads after
// losing a version race.
const maxSubscriptionAttempts = 3

// lockedSubscriptionUpdate locks the user's subscription row, builds the
// update from that fresh row and applies it. A lost version race re-reads
// and tries again instead of failing the transaction, because callers use it
// after the gateway has already taken payment.
func lockedSubscriptionUpdate(ctx context.Context, q repository.Querier, userID uuid.UUID, build func(current repository.Subscription) repository.UpdateSubscriptionParams, op string) (repository.Subscription, error) {
	var lastErr error
	for attempt := 0; attempt < maxSubscriptionAttempts; attempt++ {
		current, err := q.GetSubscriptionByUserIDForUpdate(ctx, userID)
		if err != nil {
			return repository.Subscription{}, domain.Internal(err, op, "Failed to load subscription")
		}
		updated, err := applySubscriptionUpdate(ctx, q, current, build(current), op)
		if err == nil {
			return updated, nil
		}
		if !domain.IsCode(err, domain.ECONFLICT) {
			return repository.Subscription{}, err
		}
		lastErr = err
	}
	return repository.Subscription{}, lastErr
}

// =============================================================================
// Small Helpers
// =============================================================================

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func nullPlan(p *domain.Plan) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*p), Valid: true}
}

func rawMetadata(v any) pqtype.NullRawMessage {
	if v == nil {
		return pqtype.NullRawMessage{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}
}

// newOrderID returns a fresh gateway order identifier with the given prefix.
func newOrderID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Order ID prefixes
const (
	orderPrefixSubscription = "SUB"
	orderPrefixCheckout     = "CHK"
	orderPrefixCoupon       = "CPN"
	orderPrefixCancel       = "CXL"
)
