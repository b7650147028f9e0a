package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/notify"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
)

const (
	// MaxCouponDurationDays caps how long a single coupon may grant a plan.
	MaxCouponDurationDays = 3650

	couponCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	couponCodeGroups   = 3
	couponCodeGroupLen = 4
)

// =============================================================================
// Interface Definition
// =============================================================================

// CouponService redeems and issues single-use plan coupons.
type CouponService interface {
	// Redeem applies the coupon's plan to the user's subscription.
	// Returns domain.ENOTFOUND for unknown codes and domain.ECONFLICT when
	// the coupon has already been used, including by a concurrent request.
	Redeem(ctx context.Context, userID uuid.UUID, code string) (*domain.RedemptionResult, error)

	// Create issues a coupon. A code is generated when params.Code is empty.
	Create(ctx context.Context, params domain.CreateCouponParams) (*domain.Coupon, error)

	// List returns coupons, newest first.
	List(ctx context.Context, limit, offset int) ([]domain.Coupon, error)
}

// =============================================================================
// Implementation
// =============================================================================

type couponService struct {
	store    repository.Store
	notifier notify.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewCouponService creates a new CouponService.
func NewCouponService(store repository.Store, notifier notify.Notifier, logger *slog.Logger) CouponService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &couponService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// errCouponTaken aborts the redemption transaction when the conditional
// update finds the coupon already claimed.
var errCouponTaken = errors.New("coupon already redeemed")

// Redeem converts a coupon into a subscription period.
//
// Flow:
// 1. Normalize the code and look it up
// 2. Reject coupons that were already redeemed
// 3. In one transaction: claim the coupon (conditional on redeemed_by IS NULL),
//    upsert the subscription, append a zero-amount payment log
func (s *couponService) Redeem(ctx context.Context, userID uuid.UUID, rawCode string) (*domain.RedemptionResult, error) {
	const op = "CouponService.Redeem"

	code := domain.NormalizeCouponCode(rawCode)
	if code == "" {
		return nil, domain.Invalid(op, "Coupon code is required")
	}

	row, err := s.store.GetCouponByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.CouponRedemption(metrics.CouponNotFound)
			return nil, domain.NotFound(op, "coupon", code)
		}
		return nil, domain.Internal(err, op, "Failed to look up coupon")
	}

	coupon := repoCouponToDomain(row)
	if coupon.IsRedeemed() {
		metrics.CouponRedemption(metrics.CouponAlreadyUsed)
		return nil, domain.Conflict(op, "This coupon has already been used")
	}

	now := s.now()
	expiresAt := coupon.ExpiryFrom(now)

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		claimed, err := q.RedeemCoupon(ctx, repository.RedeemCouponParams{
			ID:         coupon.ID,
			RedeemedBy: userID,
			RedeemedAt: now,
			ExpiresAt:  expiresAt,
		})
		if err != nil {
			return domain.Internal(err, op, "Failed to redeem coupon")
		}
		if claimed == 0 {
			return errCouponTaken
		}

		if err := s.applyCouponPlan(ctx, q, userID, coupon.Plan, now, expiresAt, op); err != nil {
			return err
		}

		_, err = q.CreatePaymentLog(ctx, repository.CreatePaymentLogParams{
			UserID:      userID,
			OrderID:     newOrderID(orderPrefixCoupon),
			Amount:      0,
			Currency:    domain.DefaultCurrency,
			Status:      string(domain.PaymentStatusCompleted),
			Plan:        string(coupon.Plan),
			Method:      domain.PaymentMethodCoupon,
			Description: fmt.Sprintf("Coupon %s redeemed: %s plan for %d days", coupon.Code, coupon.Plan, coupon.DurationDays),
			Metadata: rawMetadata(map[string]any{
				"coupon_id":     coupon.ID,
				"code":          coupon.Code,
				"duration_days": coupon.DurationDays,
			}),
			PaidAt: nullTime(now),
		})
		if err != nil {
			return domain.Internal(err, op, "Failed to record coupon redemption")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errCouponTaken) {
			metrics.CouponRedemption(metrics.CouponAlreadyUsed)
			return nil, domain.Conflict(op, "This coupon has already been used")
		}
		metrics.CouponRedemption(metrics.CouponFailed)
		return nil, err
	}

	metrics.CouponRedemption(metrics.CouponRedeemed)
	metrics.PlanChanged(metrics.PlanCouponApplied)
	s.logger.Info("coupon redeemed",
		"user_id", userID,
		"coupon_id", coupon.ID,
		"plan", coupon.Plan,
		"expires_at", expiresAt,
	)
	sendNotification(ctx, s.notifier, s.logger, notify.Message{
		Event: notify.EventCouponRedeemed,
		Title: "Coupon redeemed",
		Fields: []notify.Field{
			notify.F("user", userID),
			notify.F("code", coupon.Code),
			notify.F("plan", coupon.Plan),
			notify.F("expires", expiresAt.Format(time.DateOnly)),
		},
	})

	return &domain.RedemptionResult{
		Plan:      coupon.Plan,
		ExpiresAt: expiresAt,
	}, nil
}

// applyCouponPlan upserts the subscription to the coupon plan for
// [now, expiresAt). Billing and customer keys are kept.
func (s *couponService) applyCouponPlan(ctx context.Context, q repository.Querier, userID uuid.UUID, plan domain.Plan, now, expiresAt time.Time, op string) error {
	current, err := q.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if !repository.IsNotFound(err) {
			return domain.Internal(err, op, "Failed to load subscription")
		}
		_, err = q.CreateSubscription(ctx, repository.CreateSubscriptionParams{
			UserID:             userID,
			Plan:               string(plan),
			Status:             string(domain.SubscriptionStatusActive),
			CurrentPeriodStart: nullTime(now),
			CurrentPeriodEnd:   nullTime(expiresAt),
		})
		if err != nil {
			if repository.IsUniqueViolation(err) {
				return domain.Conflict(op, "Subscription was modified concurrently. Please try again.")
			}
			return domain.Internal(err, op, "Failed to create subscription")
		}
		return nil
	}

	params := subscriptionUpdate(current)
	params.Plan = string(plan)
	params.Status = string(domain.SubscriptionStatusActive)
	params.CurrentPeriodStart = nullTime(now)
	params.CurrentPeriodEnd = nullTime(expiresAt)
	// A pending upgrade must still rank above the plan it upgrades.
	if params.PendingPlan.Valid && !plan.IsUpgradeTo(domain.Plan(params.PendingPlan.String)) {
		params.PendingPlan.Valid = false
		params.PendingPlan.String = ""
	}

	_, err = applySubscriptionUpdate(ctx, q, current, params, op)
	return err
}

func (s *couponService) Create(ctx context.Context, params domain.CreateCouponParams) (*domain.Coupon, error) {
	const op = "CouponService.Create"

	if !params.Plan.IsPaid() {
		return nil, domain.Invalid(op, "Coupon plan must be pro or expert")
	}
	if params.DurationDays <= 0 || params.DurationDays > MaxCouponDurationDays {
		return nil, domain.Invalid(op, fmt.Sprintf("Duration must be between 1 and %d days", MaxCouponDurationDays))
	}

	code := domain.NormalizeCouponCode(params.Code)
	if code == "" {
		generated, err := generateCouponCode()
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to generate coupon code")
		}
		code = generated
	}

	var createdBy *uuid.UUID
	if params.CreatedBy != uuid.Nil {
		createdBy = &params.CreatedBy
	}
	row, err := s.store.CreateCoupon(ctx, repository.CreateCouponParams{
		Code:         code,
		Plan:         string(params.Plan),
		DurationDays: int32(params.DurationDays),
		CreatedBy:    domain.ToNullUUID(createdBy),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.Conflict(op, "A coupon with this code already exists")
		}
		return nil, domain.Internal(err, op, "Failed to create coupon")
	}

	s.logger.Info("coupon created", "coupon_id", row.ID, "plan", row.Plan, "duration_days", row.DurationDays, "created_by", params.CreatedBy)
	return repoCouponToDomain(row), nil
}

func (s *couponService) List(ctx context.Context, limit, offset int) ([]domain.Coupon, error) {
	const op = "CouponService.List"

	limit, offset = clampPage(limit, offset)
	rows, err := s.store.ListCoupons(ctx, repository.ListCouponsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list coupons")
	}

	out := make([]domain.Coupon, 0, len(rows))
	for _, row := range rows {
		out = append(out, *repoCouponToDomain(row))
	}
	return out, nil
}

// generateCouponCode returns a code like "K7QM-3XPA-9TRW" without the
// easily confused characters 0, O, 1 and I.
func generateCouponCode() (string, error) {
	n := couponCodeGroups * couponCodeGroupLen
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	code := make([]byte, 0, n+couponCodeGroups-1)
	for i, b := range buf {
		if i > 0 && i%couponCodeGroupLen == 0 {
			code = append(code, '-')
		}
		code = append(code, couponCodeAlphabet[int(b)%len(couponCodeAlphabet)])
	}
	return string(code), nil
}

var _ CouponService = (*couponService)(nil)
