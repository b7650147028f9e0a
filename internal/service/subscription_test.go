package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/notify"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubscriptionService(store *fakeStore, notifier notify.Notifier) *subscriptionService {
	return NewSubscriptionService(store, notifier, discardLogger()).(*subscriptionService)
}

// billedSubscription returns a row with a billing agreement and a period
// ending at periodEnd.
func billedSubscription(userID uuid.UUID, plan string, periodEnd time.Time) repository.Subscription {
	row := subscriptionRow(userID, plan)
	row.BillingKey = nullStr("bk_" + userID.String()[:8])
	row.CustomerKey = nullStr(userID.String())
	row.CurrentPeriodStart = sql.NullTime{Time: periodEnd.AddDate(0, -1, 0), Valid: true}
	row.CurrentPeriodEnd = sql.NullTime{Time: periodEnd, Valid: true}
	return row
}

func TestSubscriptionService_Get(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestSubscriptionService(store, nil)

	userID := uuid.New()
	sub, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, sub.Plan)
	assert.False(t, sub.HasBillingKey())
	_, persisted := store.sub(userID)
	assert.False(t, persisted)

	store.putSubscription(subscriptionRow(userID, "expert"))
	sub, err = svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanExpert, sub.Plan)
}

func TestSubscriptionService_ScheduleUpgrade(t *testing.T) {
	ctx := context.Background()
	periodEnd := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	t.Run("records pending plan", func(t *testing.T) {
		store := newFakeStore()
		notifier := &recordingNotifier{}
		userID := uuid.New()
		store.putSubscription(billedSubscription(userID, "pro", periodEnd))

		result, err := newTestSubscriptionService(store, notifier).ScheduleUpgrade(ctx, userID, domain.PlanExpert)
		require.NoError(t, err)
		require.NotNil(t, result.NextBillingDate)
		assert.Equal(t, periodEnd, *result.NextBillingDate)
		assert.Equal(t, domain.PlanPro, result.Subscription.Plan)
		require.NotNil(t, result.Subscription.PendingPlan)
		assert.Equal(t, domain.PlanExpert, *result.Subscription.PendingPlan)

		sub, _ := store.sub(userID)
		assert.Equal(t, "pro", sub.Plan, "plan changes only when the charge succeeds")
		assert.Equal(t, "expert", sub.PendingPlan.String)
		assert.Equal(t, []notify.Event{notify.EventUpgradeScheduled}, notifier.events())
	})

	t.Run("free user with card can schedule", func(t *testing.T) {
		store := newFakeStore()
		userID := uuid.New()
		store.putSubscription(billedSubscription(userID, "free", periodEnd))

		_, err := newTestSubscriptionService(store, nil).ScheduleUpgrade(ctx, userID, domain.PlanPro)
		require.NoError(t, err)
	})

	tests := []struct {
		name   string
		seed   func(userID uuid.UUID) *repository.Subscription
		target domain.Plan
		code   string
	}{
		{
			name:   "free is not an upgrade target",
			seed:   func(id uuid.UUID) *repository.Subscription { r := billedSubscription(id, "pro", periodEnd); return &r },
			target: domain.PlanFree,
			code:   domain.EINVALID,
		},
		{
			name:   "no subscription row",
			seed:   func(uuid.UUID) *repository.Subscription { return nil },
			target: domain.PlanPro,
			code:   domain.ENOBILLING,
		},
		{
			name:   "no billing key",
			seed:   func(id uuid.UUID) *repository.Subscription { r := subscriptionRow(id, "pro"); return &r },
			target: domain.PlanExpert,
			code:   domain.ENOBILLING,
		},
		{
			name:   "same plan",
			seed:   func(id uuid.UUID) *repository.Subscription { r := billedSubscription(id, "expert", periodEnd); return &r },
			target: domain.PlanExpert,
			code:   domain.EINVALID,
		},
		{
			name:   "lower plan",
			seed:   func(id uuid.UUID) *repository.Subscription { r := billedSubscription(id, "expert", periodEnd); return &r },
			target: domain.PlanPro,
			code:   domain.EINVALID,
		},
		{
			name: "already scheduled",
			seed: func(id uuid.UUID) *repository.Subscription {
				r := billedSubscription(id, "pro", periodEnd)
				r.PendingPlan = nullStr("expert")
				return &r
			},
			target: domain.PlanExpert,
			code:   domain.ECONFLICT,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			userID := uuid.New()
			if row := tt.seed(userID); row != nil {
				store.putSubscription(*row)
			}

			_, err := newTestSubscriptionService(store, nil).ScheduleUpgrade(ctx, userID, tt.target)
			assert.Equal(t, tt.code, domain.ErrorCode(err))
		})
	}

	t.Run("concurrent write is a conflict", func(t *testing.T) {
		store := newFakeStore()
		userID := uuid.New()
		store.putSubscription(billedSubscription(userID, "pro", periodEnd))
		store.beforeSubscriptionUpdate = func() { store.bumpVersion(userID) }

		_, err := newTestSubscriptionService(store, nil).ScheduleUpgrade(ctx, userID, domain.PlanExpert)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

		sub, _ := store.sub(userID)
		assert.False(t, sub.PendingPlan.Valid)
	})
}

func TestSubscriptionService_CancelScheduledUpgrade(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestSubscriptionService(store, nil)
	userID := uuid.New()

	_, err := svc.CancelScheduledUpgrade(ctx, userID)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	row := billedSubscription(userID, "pro", time.Now().AddDate(0, 0, 10))
	store.putSubscription(row)
	_, err = svc.CancelScheduledUpgrade(ctx, userID)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = svc.ScheduleUpgrade(ctx, userID, domain.PlanExpert)
	require.NoError(t, err)

	sub, err := svc.CancelScheduledUpgrade(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, sub.PendingPlan)
	assert.Equal(t, domain.PlanPro, sub.Plan)
	assert.True(t, sub.HasBillingKey())
}

func TestSubscriptionService_DowngradeToFree(t *testing.T) {
	ctx := context.Background()

	t.Run("clears billing agreement and logs cancellation", func(t *testing.T) {
		store := newFakeStore()
		notifier := &recordingNotifier{}
		userID := uuid.New()
		row := billedSubscription(userID, "expert", time.Now().AddDate(0, 0, 5))
		row.PendingPlan = nullStr("expert")
		store.putSubscription(row)

		result, err := newTestSubscriptionService(store, notifier).DowngradeToFree(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.PlanExpert, result.PreviousPlan)
		assert.Equal(t, domain.PlanFree, result.NewPlan)

		sub, _ := store.sub(userID)
		assert.Equal(t, "free", sub.Plan)
		assert.Equal(t, "active", sub.Status)
		assert.False(t, sub.BillingKey.Valid)
		assert.False(t, sub.CustomerKey.Valid)
		assert.False(t, sub.PendingPlan.Valid)
		assert.False(t, sub.CurrentPeriodEnd.Valid)

		logs := store.paymentLogs()
		require.Len(t, logs, 1)
		assert.Regexp(t, `^CXL-`, logs[0].OrderID)
		assert.Equal(t, int64(0), logs[0].Amount)
		assert.Equal(t, domain.PaymentMethodSystem, logs[0].Method)

		var meta map[string]string
		require.NoError(t, json.Unmarshal(logs[0].Metadata.RawMessage, &meta))
		assert.Equal(t, "expert", meta["previous_plan"])

		assert.Equal(t, []notify.Event{notify.EventDowngraded}, notifier.events())
	})

	t.Run("coupon plan without card writes no log", func(t *testing.T) {
		store := newFakeStore()
		userID := uuid.New()
		store.putSubscription(subscriptionRow(userID, "pro"))

		_, err := newTestSubscriptionService(store, nil).DowngradeToFree(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, store.paymentLogs())
	})

	t.Run("already free", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestSubscriptionService(store, nil)

		missing := uuid.New()
		_, err := svc.DowngradeToFree(ctx, missing)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
		_, ok := store.sub(missing)
		assert.False(t, ok, "no subscription row is created")

		userID := uuid.New()
		row := subscriptionRow(userID, "free")
		row.BillingKey = nullStr("bk_left_over")
		store.putSubscription(row)
		before, _ := store.sub(userID)

		_, err = svc.DowngradeToFree(ctx, userID)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

		after, _ := store.sub(userID)
		assert.Equal(t, before.Version, after.Version)
		assert.Equal(t, "bk_left_over", after.BillingKey.String)
		assert.Empty(t, store.paymentLogs())
	})

	t.Run("log failure keeps the agreement", func(t *testing.T) {
		store := newFakeStore()
		userID := uuid.New()
		store.putSubscription(billedSubscription(userID, "pro", time.Now()))
		store.failOn["CreatePaymentLog"] = assert.AnError

		_, err := newTestSubscriptionService(store, nil).DowngradeToFree(ctx, userID)
		assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))

		sub, _ := store.sub(userID)
		assert.Equal(t, "pro", sub.Plan)
		assert.True(t, sub.BillingKey.Valid)
	})
}
