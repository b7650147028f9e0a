package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/notify"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SubscriptionService manages plan changes that do not move money directly:
// queueing upgrades for the next charge and dropping back to free.
type SubscriptionService interface {
	// Get returns the user's subscription. Users without a row get a free
	// stand-in that is not persisted.
	Get(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)

	// ScheduleUpgrade records target as the plan to bill at the next charge.
	ScheduleUpgrade(ctx context.Context, userID uuid.UUID, target domain.Plan) (*domain.ScheduledUpgrade, error)

	// CancelScheduledUpgrade clears a pending upgrade.
	CancelScheduledUpgrade(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)

	// DowngradeToFree drops the user to the free plan and removes the stored
	// billing agreement.
	DowngradeToFree(ctx context.Context, userID uuid.UUID) (*domain.DowngradeResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type subscriptionService struct {
	store    repository.Store
	notifier notify.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(store repository.Store, notifier notify.Notifier, logger *slog.Logger) SubscriptionService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &subscriptionService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *subscriptionService) Get(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	const op = "SubscriptionService.Get"

	row, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return freeSubscription(userID), nil
		}
		return nil, domain.Internal(err, op, "Failed to load subscription")
	}
	return repoSubscriptionToDomain(row), nil
}

func (s *subscriptionService) ScheduleUpgrade(ctx context.Context, userID uuid.UUID, target domain.Plan) (*domain.ScheduledUpgrade, error) {
	const op = "SubscriptionService.ScheduleUpgrade"

	if !target.IsPaid() {
		return nil, domain.Invalid(op, "Target plan must be pro or expert")
	}

	row, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NoBillingAgreement(op)
		}
		return nil, domain.Internal(err, op, "Failed to load subscription")
	}

	current := repoSubscriptionToDomain(row)
	if !current.HasBillingKey() {
		return nil, domain.NoBillingAgreement(op)
	}
	if !current.Plan.OrDefault().IsUpgradeTo(target) {
		return nil, domain.Invalid(op, fmt.Sprintf("Cannot upgrade from %s to %s", current.Plan.OrDefault(), target))
	}
	if current.PendingPlan != nil && *current.PendingPlan == target {
		return nil, domain.Conflict(op, fmt.Sprintf("An upgrade to %s is already scheduled", target))
	}

	params := subscriptionUpdate(row)
	params.PendingPlan = nullPlan(&target)

	updated, err := applySubscriptionUpdate(ctx, s.store, row, params, op)
	if err != nil {
		return nil, err
	}

	sub := repoSubscriptionToDomain(updated)
	metrics.PlanChanged(metrics.PlanUpgradeScheduled)
	s.logger.Info("upgrade scheduled",
		"user_id", userID,
		"plan", sub.Plan,
		"pending_plan", target,
		"next_billing_date", sub.NextBillingDate(),
	)
	sendNotification(ctx, s.notifier, s.logger, notify.Message{
		Event: notify.EventUpgradeScheduled,
		Title: "Upgrade scheduled",
		Fields: []notify.Field{
			notify.F("user", userID),
			notify.F("from", sub.Plan),
			notify.F("to", target),
		},
	})

	return &domain.ScheduledUpgrade{
		Subscription:    sub,
		NextBillingDate: sub.NextBillingDate(),
	}, nil
}

func (s *subscriptionService) CancelScheduledUpgrade(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	const op = "SubscriptionService.CancelScheduledUpgrade"

	row, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.Invalid(op, "No upgrade is scheduled")
		}
		return nil, domain.Internal(err, op, "Failed to load subscription")
	}
	if !row.PendingPlan.Valid {
		return nil, domain.Invalid(op, "No upgrade is scheduled")
	}

	params := subscriptionUpdate(row)
	params.PendingPlan = nullPlan(nil)

	updated, err := applySubscriptionUpdate(ctx, s.store, row, params, op)
	if err != nil {
		return nil, err
	}

	metrics.PlanChanged(metrics.PlanUpgradeCanceled)
	s.logger.Info("scheduled upgrade canceled", "user_id", userID, "pending_plan", row.PendingPlan.String)
	return repoSubscriptionToDomain(updated), nil
}

// DowngradeToFree resets the subscription to the free plan.
//
// The billing key, customer key, period and pending plan are all cleared
// in one transaction. A zero-amount log entry records the cancellation when
// a billing agreement existed, so the payment history shows where recurring
// charges stopped.
func (s *subscriptionService) DowngradeToFree(ctx context.Context, userID uuid.UUID) (*domain.DowngradeResult, error) {
	const op = "SubscriptionService.DowngradeToFree"

	var result domain.DowngradeResult
	var hadBillingKey bool

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		row, err := q.GetSubscriptionByUserID(ctx, userID)
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.Conflict(op, "You are already on the free plan")
			}
			return domain.Internal(err, op, "Failed to load subscription")
		}

		previous := domain.Plan(row.Plan).OrDefault()
		if previous == domain.PlanFree {
			return domain.Conflict(op, "You are already on the free plan")
		}
		hadBillingKey = row.BillingKey.Valid && row.BillingKey.String != ""

		params := subscriptionUpdate(row)
		params.Plan = string(domain.PlanFree)
		params.Status = string(domain.SubscriptionStatusActive)
		params.PendingPlan = nullPlan(nil)
		params.BillingKey = domain.ToNullString("")
		params.CustomerKey = domain.ToNullString("")
		params.CurrentPeriodStart = domain.ToNullTime(nil)
		params.CurrentPeriodEnd = domain.ToNullTime(nil)

		if _, err := applySubscriptionUpdate(ctx, q, row, params, op); err != nil {
			return err
		}

		if hadBillingKey {
			_, err = q.CreatePaymentLog(ctx, repository.CreatePaymentLogParams{
				UserID:      userID,
				OrderID:     newOrderID(orderPrefixCancel),
				Amount:      0,
				Currency:    domain.DefaultCurrency,
				Status:      string(domain.PaymentStatusCompleted),
				Plan:        string(domain.PlanFree),
				Method:      domain.PaymentMethodSystem,
				Description: fmt.Sprintf("Subscription canceled: downgraded from %s to free", previous),
				Metadata: rawMetadata(map[string]any{
					"previous_plan": previous,
				}),
				PaidAt: nullTime(s.now()),
			})
			if err != nil {
				return domain.Internal(err, op, "Failed to record cancellation")
			}
		}

		result = domain.DowngradeResult{PreviousPlan: previous, NewPlan: domain.PlanFree}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PlanChanged(metrics.PlanDowngraded)
	s.logger.Info("subscription downgraded",
		"user_id", userID,
		"previous_plan", result.PreviousPlan,
		"had_billing_key", hadBillingKey,
	)
	sendNotification(ctx, s.notifier, s.logger, notify.Message{
		Event: notify.EventDowngraded,
		Title: "Subscription downgraded",
		Fields: []notify.Field{
			notify.F("user", userID),
			notify.F("from", result.PreviousPlan),
		},
	})

	return &result, nil
}

var _ SubscriptionService = (*subscriptionService)(nil)
