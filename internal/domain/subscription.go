// Package domain contains core business types and interfaces.
//
// This file defines the Subscription domain type. Every user has exactly one
// subscription row; the free plan is a subscription like any other.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the possible states of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// BillingPeriodMonths is the length of one paid billing cycle.
const BillingPeriodMonths = 1

// Subscription is the per-user plan record.
type Subscription struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Plan               Plan
	Status             SubscriptionStatus
	PendingPlan        *Plan // Upgrade to apply at the next charge
	BillingKey         string
	CustomerKey        string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	Version            int32 // Optimistic concurrency token
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasBillingKey returns true if a recurring billing agreement is on file.
func (s *Subscription) HasBillingKey() bool {
	return s.BillingKey != ""
}

// HasPendingUpgrade returns true if an upgrade is scheduled.
func (s *Subscription) HasPendingUpgrade() bool {
	return s.PendingPlan != nil
}

// ChargePlan returns the plan the next charge bills for: the pending plan if
// one is scheduled, otherwise the current plan.
func (s *Subscription) ChargePlan() Plan {
	if s.PendingPlan != nil {
		return *s.PendingPlan
	}
	return s.Plan.OrDefault()
}

// NextBillingDate returns the end of the current period, if any.
func (s *Subscription) NextBillingDate() *time.Time {
	return s.CurrentPeriodEnd
}

// IsDue reports whether the current period has ended at t.
func (s *Subscription) IsDue(t time.Time) bool {
	return s.CurrentPeriodEnd != nil && !t.Before(*s.CurrentPeriodEnd)
}

// NextPeriod returns a billing period starting at start.
func NextPeriod(start time.Time) (time.Time, time.Time) {
	return start, start.AddDate(0, BillingPeriodMonths, 0)
}

// ScheduledUpgrade is returned after an upgrade is queued for the next charge.
type ScheduledUpgrade struct {
	Subscription    *Subscription
	NextBillingDate *time.Time
}

// DowngradeResult reports the plan change made by a downgrade.
type DowngradeResult struct {
	PreviousPlan Plan
	NewPlan      Plan
}
