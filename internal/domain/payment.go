// Package domain contains core business types and interfaces.
//
// This file defines the append-only payment log and charge callers.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of a payment log row.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo checks whether a webhook may move a payment to target.
//
// Valid transitions:
// - pending -> completed | failed
// - completed -> refunded
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusCompleted || target == PaymentStatusFailed
	case PaymentStatusCompleted:
		return target == PaymentStatusRefunded
	}
	return false
}

// Payment methods recorded for non-card entries.
const (
	PaymentMethodCoupon = "coupon"
	PaymentMethodSystem = "system"
)

// DefaultCurrency is used for zero-amount system entries.
const DefaultCurrency = "KRW"

// PaymentLog is one payment attempt or lifecycle event.
type PaymentLog struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	OrderID       string
	Amount        int64
	Currency      string
	Status        PaymentStatus
	Plan          Plan
	Method        string
	TransactionID string
	Description   string
	FailureReason string
	Metadata      json.RawMessage
	PaidAt        *time.Time
	CreatedAt     time.Time
}

// PlanPrice is an entry in the pricing catalog.
type PlanPrice struct {
	Plan      Plan
	Amount    int64
	Currency  string
	OrderName string
}

// ChargeCaller identifies who triggered a recurring charge.
type ChargeCaller struct {
	Scheduler bool      // Authenticated by the shared cron secret
	UserID    uuid.UUID // Session user, when not the scheduler
	Role      Role
}

// SchedulerCaller returns the caller used by the billing scheduler.
func SchedulerCaller() ChargeCaller {
	return ChargeCaller{Scheduler: true}
}

// MayCharge reports whether the caller may charge the subscriber.
func (c ChargeCaller) MayCharge(subscriberID uuid.UUID) bool {
	if c.Scheduler {
		return true
	}
	if c.UserID == uuid.Nil {
		return false
	}
	return c.UserID == subscriberID || c.Role == RoleAdmin
}

// ChargeResult is returned after a successful recurring charge.
type ChargeResult struct {
	OrderID string
	Amount  int64
	Plan    Plan
}

// CheckoutSession is handed to the client to open the gateway's billing-auth widget.
type CheckoutSession struct {
	OrderID     string
	CustomerKey string
	Amount      int64
	Currency    string
	OrderName   string
	Plan        Plan
}

// ConfirmCheckoutParams carries the gateway callback after billing auth succeeds.
type ConfirmCheckoutParams struct {
	UserID      uuid.UUID
	OrderID     string
	AuthKey     string
	CustomerKey string
}
