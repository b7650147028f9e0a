// Package service contains the business logic layer.
//
// This file implements the billing cycle: first checkout through the
// gateway's billing-auth flow, recurring charges against the stored billing
// key, and payment status updates pushed by gateway webhooks.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/billing"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/notify"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
)

// Webhook outcomes recorded in metrics
const (
	webhookApplied  = "applied"
	webhookIgnored  = "ignored"
	webhookRejected = "rejected"
)

// =============================================================================
// Interface Definition
// =============================================================================

// BillingService moves money through the payment gateway.
type BillingService interface {
	// ChargeSubscription bills one period for the user's subscription.
	// Returns domain.EFORBIDDEN when caller may not charge the user,
	// domain.ENOBILLING without a stored billing key and domain.EPAYMENT
	// when the gateway declines. Failed attempts are logged before returning.
	ChargeSubscription(ctx context.Context, userID uuid.UUID, caller domain.ChargeCaller) (*domain.ChargeResult, error)

	// StartCheckout creates a pending payment for the first period of plan.
	StartCheckout(ctx context.Context, userID uuid.UUID, plan domain.Plan) (*domain.CheckoutSession, error)

	// ConfirmCheckout exchanges the gateway auth key for a billing key,
	// charges the first period and activates the subscription.
	ConfirmCheckout(ctx context.Context, params domain.ConfirmCheckoutParams) (*domain.ChargeResult, error)

	// HandleWebhook applies a gateway status notification. Unknown orders
	// and repeated deliveries are acknowledged without changes.
	HandleWebhook(ctx context.Context, gateway string, payload []byte, header http.Header) error

	// ListPayments returns the user's payment log, newest first.
	ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.PaymentLog, error)

	// ListPrices returns the active price catalog.
	ListPrices(ctx context.Context) ([]domain.PlanPrice, error)

	// ListDueSubscriptions returns active subscriptions with a billing key
	// whose period ended at or before asOf.
	ListDueSubscriptions(ctx context.Context, asOf time.Time, limit int) ([]domain.Subscription, error)
}

// =============================================================================
// Implementation
// =============================================================================

type billingService struct {
	store    repository.Store
	gateway  billing.Gateway
	notifier notify.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewBillingService creates a new BillingService.
func NewBillingService(store repository.Store, gateway billing.Gateway, notifier notify.Notifier, logger *slog.Logger) BillingService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &billingService{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// ChargeSubscription bills the next period.
//
// Flow:
// 1. Authorize the caller
// 2. Load the subscription and resolve the plan to charge (pending or current)
// 3. Look up the price and charge the billing key with a fresh order ID
// 4. On failure, append a failed payment log and leave the subscription alone
// 5. On success, in one transaction: append the completed log and roll the
//    subscription into the new period
func (s *billingService) ChargeSubscription(ctx context.Context, userID uuid.UUID, caller domain.ChargeCaller) (*domain.ChargeResult, error) {
	const op = "BillingService.ChargeSubscription"

	if !caller.MayCharge(userID) {
		return nil, domain.Forbidden(op, "You may not charge this subscription")
	}

	row, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NoBillingAgreement(op)
		}
		return nil, domain.Internal(err, op, "Failed to load subscription")
	}
	sub := repoSubscriptionToDomain(row)
	if !sub.HasBillingKey() {
		return nil, domain.NoBillingAgreement(op)
	}

	chargedPlan := sub.ChargePlan()
	price, err := s.activePrice(ctx, chargedPlan, op)
	if err != nil {
		return nil, err
	}

	orderID := newOrderID(orderPrefixSubscription)
	upgrade := sub.HasPendingUpgrade()
	description := fmt.Sprintf("Monthly subscription: %s", chargedPlan)
	if upgrade {
		description = fmt.Sprintf("Monthly subscription: upgraded from %s to %s", sub.Plan.OrDefault(), chargedPlan)
	}

	chargeParams := billing.ChargeParams{
		BillingKey:  sub.BillingKey,
		CustomerKey: sub.CustomerKey,
		OrderID:     orderID,
		OrderName:   price.OrderName,
		Amount:      price.Amount,
		Currency:    price.Currency,
	}
	if user, err := s.store.GetUserByID(ctx, userID); err == nil {
		chargeParams.CustomerEmail = user.Email
		chargeParams.CustomerName = user.Name
	}

	charge, err := s.gateway.ChargeBillingKey(ctx, chargeParams)
	if err != nil {
		return nil, s.recordChargeFailure(ctx, userID, chargedPlan, price, orderID, description, err, op)
	}

	now := s.now()
	periodStart, periodEnd := domain.NextPeriod(now)

	meta := map[string]any{
		"gateway":      s.gateway.Name(),
		"upgrade":      upgrade,
		"period_start": periodStart,
		"period_end":   periodEnd,
	}
	completed := repository.CreatePaymentLogParams{
		UserID:        userID,
		OrderID:       orderID,
		Amount:        charge.Amount,
		Currency:      price.Currency,
		Status:        string(domain.PaymentStatusCompleted),
		Plan:          string(chargedPlan),
		Method:        charge.Method,
		TransactionID: domain.ToNullString(charge.TransactionID),
		Description:   description,
		Metadata:      rawMetadata(meta),
		PaidAt:        nullTime(chargeTime(charge, now)),
	}

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.CreatePaymentLog(ctx, completed); err != nil {
			return domain.Internal(err, op, "Failed to record payment")
		}

		// The charge already went through, so the period rolls forward on
		// the locked row whatever was written since the first read.
		_, err := lockedSubscriptionUpdate(ctx, q, userID, func(current repository.Subscription) repository.UpdateSubscriptionParams {
			params := subscriptionUpdate(current)
			params.Plan = string(chargedPlan)
			params.Status = string(domain.SubscriptionStatusActive)
			params.CurrentPeriodStart = nullTime(periodStart)
			params.CurrentPeriodEnd = nullTime(periodEnd)
			if !params.PendingPlan.Valid || !chargedPlan.IsUpgradeTo(domain.Plan(params.PendingPlan.String)) {
				params.PendingPlan = nullPlan(nil)
			}
			return params
		}, op)
		return err
	})
	if err != nil {
		// The gateway has the money at this point. Log everything needed
		// for manual reconciliation.
		s.logger.Error("charge succeeded but recording it failed",
			"user_id", userID,
			"order_id", orderID,
			"transaction_id", charge.TransactionID,
			"amount", charge.Amount,
			"plan", chargedPlan,
			"error", err,
		)
		s.recordUnappliedCharge(ctx, completed, meta)
		return nil, err
	}

	metrics.ChargeSucceeded(string(chargedPlan), price.Currency, charge.Amount)
	if upgrade {
		metrics.PlanChanged(metrics.PlanActivated)
	} else {
		metrics.PlanChanged(metrics.PlanRenewed)
	}
	s.logger.Info("subscription charged",
		"user_id", userID,
		"order_id", orderID,
		"plan", chargedPlan,
		"amount", charge.Amount,
		"upgrade", upgrade,
		"scheduler", caller.Scheduler,
	)
	sendNotification(ctx, s.notifier, s.logger, notify.Message{
		Event: notify.EventPaymentSucceeded,
		Title: "Subscription charged",
		Fields: []notify.Field{
			notify.F("user", userID),
			notify.F("plan", chargedPlan),
			notify.F("amount", formatAmount(charge.Amount, price.Currency)),
			notify.F("order", orderID),
		},
	})

	return &domain.ChargeResult{
		OrderID: orderID,
		Amount:  charge.Amount,
		Plan:    chargedPlan,
	}, nil
}

// recordUnappliedCharge writes the completed payment log on its own after
// the transaction that should have carried it rolled back. The subscription
// did not move, but the money did, and the history must show it.
func (s *billingService) recordUnappliedCharge(ctx context.Context, params repository.CreatePaymentLogParams, meta map[string]any) {
	meta["subscription_update_failed"] = true
	params.Metadata = rawMetadata(meta)
	if _, err := s.store.CreatePaymentLog(ctx, params); err != nil {
		s.logger.Error("failed to record unapplied charge",
			"user_id", params.UserID,
			"order_id", params.OrderID,
			"error", err,
		)
		return
	}
	metrics.ChargeSucceeded(params.Plan, params.Currency, params.Amount)
}

// completeUnappliedCheckout marks a charged checkout completed when the
// subscription half of its transaction rolled back. A log that already left
// pending is not touched.
func (s *billingService) completeUnappliedCheckout(ctx context.Context, params repository.UpdatePaymentLogStatusParams) {
	if _, err := s.store.UpdatePaymentLogStatus(ctx, params); err != nil {
		s.logger.Error("failed to record unapplied checkout",
			"order_id", params.OrderID,
			"error", err,
		)
	}
}

// recordChargeFailure appends a failed payment log and builds the error
// returned to the caller. Declines map to EPAYMENT; transport problems are
// internal.
func (s *billingService) recordChargeFailure(ctx context.Context, userID uuid.UUID, plan domain.Plan, price domain.PlanPrice, orderID, description string, chargeErr error, op string) error {
	reason := billing.FailureReason(chargeErr)

	meta := map[string]any{"gateway": s.gateway.Name()}
	if gwErr, ok := billing.AsGatewayError(chargeErr); ok {
		meta["code"] = gwErr.Code
		meta["status_code"] = gwErr.StatusCode
	}

	if _, err := s.store.CreatePaymentLog(ctx, repository.CreatePaymentLogParams{
		UserID:        userID,
		OrderID:       orderID,
		Amount:        price.Amount,
		Currency:      price.Currency,
		Status:        string(domain.PaymentStatusFailed),
		Plan:          string(plan),
		Description:   description,
		FailureReason: domain.ToNullString(reason),
		Metadata:      rawMetadata(meta),
	}); err != nil {
		s.logger.Error("failed to record failed charge",
			"user_id", userID,
			"order_id", orderID,
			"error", err,
		)
	}

	metrics.ChargeFailed(string(plan))
	s.logger.Warn("subscription charge failed",
		"user_id", userID,
		"order_id", orderID,
		"plan", plan,
		"reason", reason,
	)
	sendNotification(ctx, s.notifier, s.logger, notify.Message{
		Event: notify.EventPaymentFailed,
		Title: "Subscription charge failed",
		Fields: []notify.Field{
			notify.F("user", userID),
			notify.F("plan", plan),
			notify.F("order", orderID),
			notify.F("reason", reason),
		},
	})

	if _, ok := billing.AsGatewayError(chargeErr); ok {
		return domain.PaymentFailed(chargeErr, op, "Payment was declined: "+reason)
	}
	return domain.Internal(chargeErr, op, "Payment gateway is unavailable")
}

func (s *billingService) StartCheckout(ctx context.Context, userID uuid.UUID, plan domain.Plan) (*domain.CheckoutSession, error) {
	const op = "BillingService.StartCheckout"

	if !plan.IsPaid() {
		return nil, domain.Invalid(op, "Plan must be pro or expert")
	}

	row, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, domain.Internal(err, op, "Failed to load subscription")
	}
	if err == nil && row.BillingKey.Valid && row.BillingKey.String != "" {
		return nil, domain.Conflict(op, "A payment method is already registered. Schedule an upgrade instead.")
	}

	price, err := s.activePrice(ctx, plan, op)
	if err != nil {
		return nil, err
	}

	customerKey := userID.String()
	orderID := newOrderID(orderPrefixCheckout)

	_, err = s.store.CreatePaymentLog(ctx, repository.CreatePaymentLogParams{
		UserID:      userID,
		OrderID:     orderID,
		Amount:      price.Amount,
		Currency:    price.Currency,
		Status:      string(domain.PaymentStatusPending),
		Plan:        string(plan),
		Description: fmt.Sprintf("Subscription checkout: %s", plan),
		Metadata: rawMetadata(map[string]any{
			"gateway":      s.gateway.Name(),
			"customer_key": customerKey,
		}),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to start checkout")
	}

	s.logger.Info("checkout started", "user_id", userID, "order_id", orderID, "plan", plan)

	return &domain.CheckoutSession{
		OrderID:     orderID,
		CustomerKey: customerKey,
		Amount:      price.Amount,
		Currency:    price.Currency,
		OrderName:   price.OrderName,
		Plan:        plan,
	}, nil
}

// ConfirmCheckout completes a checkout started by StartCheckout.
//
// Flow:
// 1. Load the pending payment log by order ID and check ownership
// 2. Issue the billing key from the auth key
// 3. Charge the first period
// 4. In one transaction: complete the log and store the billing agreement
func (s *billingService) ConfirmCheckout(ctx context.Context, params domain.ConfirmCheckoutParams) (*domain.ChargeResult, error) {
	const op = "BillingService.ConfirmCheckout"

	if params.OrderID == "" || params.AuthKey == "" || params.CustomerKey == "" {
		return nil, domain.Invalid(op, "orderId, authKey and customerKey are required")
	}

	logRow, err := s.store.GetPaymentLogByOrderID(ctx, params.OrderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NotFound(op, "payment", params.OrderID)
		}
		return nil, domain.Internal(err, op, "Failed to load payment")
	}
	if logRow.UserID != params.UserID {
		return nil, domain.NotFound(op, "payment", params.OrderID)
	}
	if domain.PaymentStatus(logRow.Status) != domain.PaymentStatusPending {
		return nil, domain.Conflict(op, "This checkout has already been processed")
	}
	if params.CustomerKey != params.UserID.String() {
		return nil, domain.Invalid(op, "Customer key does not match this account")
	}

	plan := domain.Plan(logRow.Plan)

	agreement, err := s.gateway.IssueBillingKey(ctx, billing.IssueBillingKeyParams{
		AuthKey:     params.AuthKey,
		CustomerKey: params.CustomerKey,
	})
	if err != nil {
		s.failPending(ctx, logRow, err)
		return nil, s.gatewayError(err, op, "Card registration failed")
	}

	chargeParams := billing.ChargeParams{
		BillingKey:  agreement.BillingKey,
		CustomerKey: agreement.CustomerKey,
		OrderID:     logRow.OrderID,
		OrderName:   logRow.Description,
		Amount:      logRow.Amount,
		Currency:    logRow.Currency,
	}
	if price, err := s.store.GetActivePlanPrice(ctx, logRow.Plan); err == nil {
		chargeParams.OrderName = price.OrderName
	}
	if user, err := s.store.GetUserByID(ctx, params.UserID); err == nil {
		chargeParams.CustomerEmail = user.Email
		chargeParams.CustomerName = user.Name
	}

	charge, err := s.gateway.ChargeBillingKey(ctx, chargeParams)
	if err != nil {
		s.failPending(ctx, logRow, err)
		metrics.ChargeFailed(logRow.Plan)
		return nil, s.gatewayError(err, op, "Payment was declined")
	}

	now := s.now()
	periodStart, periodEnd := domain.NextPeriod(now)

	completed := repository.UpdatePaymentLogStatusParams{
		OrderID:       logRow.OrderID,
		FromStatus:    string(domain.PaymentStatusPending),
		Status:        string(domain.PaymentStatusCompleted),
		TransactionID: domain.ToNullString(charge.TransactionID),
		Method:        charge.Method,
		Metadata:      logRow.Metadata,
		PaidAt:        nullTime(chargeTime(charge, now)),
	}

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		rows, err := q.UpdatePaymentLogStatus(ctx, completed)
		if err != nil {
			return domain.Internal(err, op, "Failed to record payment")
		}
		if rows == 0 {
			return domain.Conflict(op, "This checkout has already been processed")
		}

		if _, err := q.GetSubscriptionByUserIDForUpdate(ctx, params.UserID); err != nil {
			if !repository.IsNotFound(err) {
				return domain.Internal(err, op, "Failed to load subscription")
			}
			_, err = q.CreateSubscription(ctx, repository.CreateSubscriptionParams{
				UserID:             params.UserID,
				Plan:               string(plan),
				Status:             string(domain.SubscriptionStatusActive),
				BillingKey:         domain.ToNullString(agreement.BillingKey),
				CustomerKey:        domain.ToNullString(agreement.CustomerKey),
				CurrentPeriodStart: nullTime(periodStart),
				CurrentPeriodEnd:   nullTime(periodEnd),
			})
			if err != nil {
				if repository.IsUniqueViolation(err) {
					return domain.Conflict(op, "Subscription was modified concurrently. Please try again.")
				}
				return domain.Internal(err, op, "Failed to create subscription")
			}
			return nil
		}

		_, err = lockedSubscriptionUpdate(ctx, q, params.UserID, func(current repository.Subscription) repository.UpdateSubscriptionParams {
			update := subscriptionUpdate(current)
			update.Plan = string(plan)
			update.Status = string(domain.SubscriptionStatusActive)
			update.PendingPlan = nullPlan(nil)
			update.BillingKey = domain.ToNullString(agreement.BillingKey)
			update.CustomerKey = domain.ToNullString(agreement.CustomerKey)
			update.CurrentPeriodStart = nullTime(periodStart)
			update.CurrentPeriodEnd = nullTime(periodEnd)
			return update
		}, op)
		return err
	})
	if err != nil {
		s.logger.Error("checkout charged but recording it failed",
			"user_id", params.UserID,
			"order_id", logRow.OrderID,
			"transaction_id", charge.TransactionID,
			"amount", charge.Amount,
			"error", err,
		)
		s.completeUnappliedCheckout(ctx, completed)
		return nil, err
	}

	metrics.ChargeSucceeded(logRow.Plan, logRow.Currency, charge.Amount)
	metrics.PlanChanged(metrics.PlanActivated)
	s.logger.Info("checkout confirmed",
		"user_id", params.UserID,
		"order_id", logRow.OrderID,
		"plan", plan,
		"amount", charge.Amount,
	)
	sendNotification(ctx, s.notifier, s.logger, notify.Message{
		Event: notify.EventBillingKeyIssued,
		Title: "New subscription",
		Fields: []notify.Field{
			notify.F("user", params.UserID),
			notify.F("plan", plan),
			notify.F("amount", formatAmount(charge.Amount, logRow.Currency)),
			notify.F("order", logRow.OrderID),
		},
	})

	return &domain.ChargeResult{
		OrderID: logRow.OrderID,
		Amount:  charge.Amount,
		Plan:    plan,
	}, nil
}

// failPending marks a pending checkout as failed. Errors are logged only;
// the gateway error is what the caller needs to see.
func (s *billingService) failPending(ctx context.Context, logRow repository.PaymentLog, cause error) {
	reason := billing.FailureReason(cause)
	_, err := s.store.UpdatePaymentLogStatus(ctx, repository.UpdatePaymentLogStatusParams{
		OrderID:       logRow.OrderID,
		FromStatus:    string(domain.PaymentStatusPending),
		Status:        string(domain.PaymentStatusFailed),
		TransactionID: logRow.TransactionID,
		Method:        logRow.Method,
		FailureReason: domain.ToNullString(reason),
		Metadata:      logRow.Metadata,
	})
	if err != nil {
		s.logger.Error("failed to mark checkout failed", "order_id", logRow.OrderID, "error", err)
	}
	s.logger.Warn("checkout failed", "user_id", logRow.UserID, "order_id", logRow.OrderID, "reason", reason)
}

func (s *billingService) gatewayError(err error, op, message string) error {
	if _, ok := billing.AsGatewayError(err); ok {
		return domain.PaymentFailed(err, op, message+": "+billing.FailureReason(err))
	}
	return domain.Internal(err, op, "Payment gateway is unavailable")
}

// HandleWebhook applies a gateway notification to the matching payment log.
// Only transitions allowed by PaymentStatus.CanTransitionTo are written, and
// the write is conditional on the status that was read, so redelivered or
// out-of-order notifications leave the log unchanged.
func (s *billingService) HandleWebhook(ctx context.Context, gateway string, payload []byte, header http.Header) error {
	const op = "BillingService.HandleWebhook"

	if gateway != s.gateway.Name() {
		return domain.NotFound(op, "webhook", gateway)
	}

	event, err := s.gateway.ParseWebhook(payload, header)
	if err != nil {
		metrics.WebhookReceived(gateway, webhookRejected)
		s.logger.Warn("rejected payment webhook", "gateway", gateway, "error", err)
		return domain.Invalid(op, "Invalid webhook payload")
	}
	if event == nil {
		metrics.WebhookReceived(gateway, webhookIgnored)
		return nil
	}

	logger := s.logger.With("gateway", gateway, "order_id", event.OrderID, "status", event.Status)

	logRow, err := s.store.GetPaymentLogByOrderID(ctx, event.OrderID)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.WebhookReceived(gateway, webhookIgnored)
			logger.Warn("webhook for unknown order")
			return nil
		}
		return domain.Internal(err, op, "Failed to load payment")
	}

	current := domain.PaymentStatus(logRow.Status)
	if current == event.Status || !current.CanTransitionTo(event.Status) {
		metrics.WebhookReceived(gateway, webhookIgnored)
		logger.Info("webhook status not applied", "current_status", current)
		return nil
	}

	params := repository.UpdatePaymentLogStatusParams{
		OrderID:       logRow.OrderID,
		FromStatus:    string(current),
		Status:        string(event.Status),
		TransactionID: logRow.TransactionID,
		Method:        logRow.Method,
		FailureReason: logRow.FailureReason,
		Metadata:      logRow.Metadata,
		PaidAt:        logRow.PaidAt,
	}
	if event.TransactionID != "" {
		params.TransactionID = domain.ToNullString(event.TransactionID)
	}
	if event.FailureReason != "" {
		params.FailureReason = domain.ToNullString(event.FailureReason)
	}
	if event.Status == domain.PaymentStatusCompleted && !params.PaidAt.Valid {
		params.PaidAt = nullTime(s.now())
	}

	rows, err := s.store.UpdatePaymentLogStatus(ctx, params)
	if err != nil {
		return domain.Internal(err, op, "Failed to update payment")
	}
	if rows == 0 {
		metrics.WebhookReceived(gateway, webhookIgnored)
		logger.Info("webhook lost race with another status update")
		return nil
	}

	metrics.WebhookReceived(gateway, webhookApplied)
	logger.Info("payment status updated", "previous_status", current)
	sendNotification(ctx, s.notifier, s.logger, notify.Message{
		Event: notify.EventPaymentStatusSync,
		Title: "Payment status changed",
		Fields: []notify.Field{
			notify.F("user", logRow.UserID),
			notify.F("order", logRow.OrderID),
			notify.F("status", fmt.Sprintf("%s -> %s", current, event.Status)),
		},
	})
	return nil
}

func (s *billingService) ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.PaymentLog, error) {
	const op = "BillingService.ListPayments"

	limit, offset = clampPage(limit, offset)
	rows, err := s.store.ListPaymentLogsByUser(ctx, repository.ListPaymentLogsByUserParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list payments")
	}

	out := make([]domain.PaymentLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, repoPaymentLogToDomain(row))
	}
	return out, nil
}

func (s *billingService) ListPrices(ctx context.Context) ([]domain.PlanPrice, error) {
	const op = "BillingService.ListPrices"

	rows, err := s.store.ListActivePlanPrices(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list prices")
	}

	out := make([]domain.PlanPrice, 0, len(rows))
	for _, row := range rows {
		out = append(out, repoPlanPriceToDomain(row))
	}
	return out, nil
}

func (s *billingService) ListDueSubscriptions(ctx context.Context, asOf time.Time, limit int) ([]domain.Subscription, error) {
	const op = "BillingService.ListDueSubscriptions"

	if limit <= 0 {
		limit = maxPageSize
	}
	rows, err := s.store.ListDueSubscriptions(ctx, repository.ListDueSubscriptionsParams{
		AsOf:  asOf,
		Limit: int32(limit),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list due subscriptions")
	}

	out := make([]domain.Subscription, 0, len(rows))
	for _, row := range rows {
		out = append(out, *repoSubscriptionToDomain(row))
	}
	return out, nil
}

func (s *billingService) activePrice(ctx context.Context, plan domain.Plan, op string) (domain.PlanPrice, error) {
	row, err := s.store.GetActivePlanPrice(ctx, string(plan))
	if err != nil {
		if repository.IsNotFound(err) {
			return domain.PlanPrice{}, domain.Invalid(op, fmt.Sprintf("No active price for plan %s", plan))
		}
		return domain.PlanPrice{}, domain.Internal(err, op, "Failed to load price")
	}
	return repoPlanPriceToDomain(row), nil
}

func chargeTime(c *billing.Charge, fallback time.Time) time.Time {
	if c.ApprovedAt.IsZero() {
		return fallback
	}
	return c.ApprovedAt
}

func formatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%d %s", amount, currency)
}

var _ BillingService = (*billingService)(nil)
