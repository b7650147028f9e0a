// Package domain contains core business types and interfaces.
//
// This file defines coupons that grant a plan for a fixed number of days.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/width"
)

// Coupon grants Plan for DurationDays to the first user who redeems it.
type Coupon struct {
	ID           uuid.UUID
	Code         string
	Plan         Plan
	DurationDays int
	RedeemedBy   *uuid.UUID
	RedeemedAt   *time.Time
	ExpiresAt    *time.Time
	CreatedBy    *uuid.UUID
	CreatedAt    time.Time
}

// IsRedeemed returns true once a user has claimed the coupon.
func (c *Coupon) IsRedeemed() bool {
	return c.RedeemedBy != nil
}

// ExpiryFrom returns when a redemption at t ends.
func (c *Coupon) ExpiryFrom(t time.Time) time.Time {
	return t.AddDate(0, 0, c.DurationDays)
}

// NormalizeCouponCode trims whitespace and uppercases a user-supplied code.
// Full-width letters and digits, which Korean input methods produce, are
// folded to ASCII first.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(width.Fold.String(code)))
}

// RedemptionResult is returned after a successful redemption.
type RedemptionResult struct {
	Plan      Plan
	ExpiresAt time.Time
}

// CreateCouponParams contains parameters for issuing a coupon.
type CreateCouponParams struct {
	Code         string // Generated when empty
	Plan         Plan
	DurationDays int
	CreatedBy    uuid.UUID
}
