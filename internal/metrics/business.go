package metrics

// Coupon redemption results
const (
	CouponRedeemed    = "redeemed"
	CouponNotFound    = "not_found"
	CouponAlreadyUsed = "already_used"
	CouponFailed      = "error"
)

// Plan change actions
const (
	PlanUpgradeScheduled = "upgrade_scheduled"
	PlanUpgradeCanceled  = "upgrade_canceled"
	PlanRenewed          = "renewed"
	PlanDowngraded       = "downgraded"
	PlanCouponApplied    = "coupon_applied"
	PlanActivated        = "activated"
)

// PolicyChecked records a quota decision
func PolicyChecked(kind, reason string) {
	PolicyDecisionsTotal.WithLabelValues(kind, reason).Inc()
}

// UsageRecorded records a usage counter increment
func UsageRecorded(kind string) {
	UsageRecordedTotal.WithLabelValues(kind).Inc()
}

// CouponRedemption records a redemption attempt outcome
func CouponRedemption(result string) {
	CouponRedemptionsTotal.WithLabelValues(result).Inc()
}

// ChargeSucceeded records a successful recurring charge
func ChargeSucceeded(plan, currency string, amount int64) {
	BillingChargesTotal.WithLabelValues(plan, "succeeded").Inc()
	BillingChargedAmountTotal.WithLabelValues(currency).Add(float64(amount))
}

// ChargeFailed records a declined or errored recurring charge
func ChargeFailed(plan string) {
	BillingChargesTotal.WithLabelValues(plan, "failed").Inc()
}

// PlanChanged records a subscription plan transition
func PlanChanged(action string) {
	PlanChangesTotal.WithLabelValues(action).Inc()
}

// WebhookReceived records a gateway callback outcome ("applied", "ignored", "rejected")
func WebhookReceived(gateway, result string) {
	PaymentWebhooksTotal.WithLabelValues(gateway, result).Inc()
}

// NotificationSent records a notifier delivery outcome
func NotificationSent(err error) {
	if err != nil {
		NotificationsTotal.WithLabelValues("failed").Inc()
		return
	}
	NotificationsTotal.WithLabelValues("sent").Inc()
}

// RateLimited records a request rejected by the named limiter
func RateLimited(scope string) {
	RateLimitedTotal.WithLabelValues(scope).Inc()
}

// AICall records an AI provider call and its token usage
func AICall(operation string, inputTokens, outputTokens int, err error) {
	if err != nil {
		AIAPICalls.WithLabelValues(operation, "error").Inc()
		return
	}
	AIAPICalls.WithLabelValues(operation, "success").Inc()
	AITokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	AITokensTotal.WithLabelValues("output").Add(float64(outputTokens))
}
