// Package domain contains core business types and interfaces.
//
// This file defines group policies and the quota decision made against them.
package domain

import (
	"fmt"
	"time"
)

// UnlimitedSentinel is the limit value that stands for "unlimited". It is
// compared like any other limit.
const UnlimitedSentinel = 999999

// GroupAdmin is the policy group for administrators regardless of plan.
const GroupAdmin = "admin"

// GroupPolicy holds the monthly creation limits for one group.
type GroupPolicy struct {
	GroupName                string
	MonthlyProjectLimit      int
	MonthlyPresentationLimit int
	Description              string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Limit returns the monthly limit for the given kind.
func (p *GroupPolicy) Limit(kind UsageKind) int {
	if kind == UsageKindPresentation {
		return p.MonthlyPresentationLimit
	}
	return p.MonthlyProjectLimit
}

// EffectiveGroup maps a user's role and plan to a policy group. Admins use
// the admin group; everyone else uses their plan, free when none.
func EffectiveGroup(role Role, plan Plan) string {
	if role == RoleAdmin {
		return GroupAdmin
	}
	return string(plan.OrDefault())
}

// Decision reasons
const (
	ReasonAllowed       = "allowed"
	ReasonLimitReached  = "limit_reached"
	ReasonPolicyMissing = "policy_missing"
)

// PolicyDecision is the result of a quota check. A denied decision is not an
// error; callers render Message to the user.
type PolicyDecision struct {
	Allowed bool
	Reason  string
	Message string
	Group   string
	Kind    UsageKind
	Used    int
	Limit   int
}

// Decide compares usage against the policy limit for kind.
func Decide(policy *GroupPolicy, kind UsageKind, used int) PolicyDecision {
	limit := policy.Limit(kind)
	d := PolicyDecision{
		Allowed: used < limit,
		Reason:  ReasonAllowed,
		Group:   policy.GroupName,
		Kind:    kind,
		Used:    used,
		Limit:   limit,
	}
	if !d.Allowed {
		d.Reason = ReasonLimitReached
		d.Message = fmt.Sprintf("Monthly %s limit reached (%d/%d). Upgrade your plan to create more.",
			kind, used, limit)
	}
	return d
}

// MissingPolicyDecision denies the action because no policy row exists for group.
func MissingPolicyDecision(group string, kind UsageKind) PolicyDecision {
	return PolicyDecision{
		Allowed: false,
		Reason:  ReasonPolicyMissing,
		Message: fmt.Sprintf("No usage policy is configured for group %q. Please contact support.", group),
		Group:   group,
		Kind:    kind,
	}
}

// KindUsage is the used/limit pair for one quota kind.
type KindUsage struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

// NewKindUsage builds a KindUsage, clamping remaining at zero.
func NewKindUsage(used, limit int) KindUsage {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return KindUsage{
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
		Unlimited: limit >= UnlimitedSentinel,
	}
}

// PolicySnapshot summarizes a user's group and current-month usage.
type PolicySnapshot struct {
	Group         string
	Plan          Plan
	YearMonth     string
	Configured    bool
	Projects      KindUsage
	Presentations KindUsage
}

// UpsertGroupPolicyParams contains parameters for creating or replacing a policy.
type UpsertGroupPolicyParams struct {
	GroupName                string
	MonthlyProjectLimit      int
	MonthlyPresentationLimit int
	Description              string
}

// UpdateGroupPolicyParams contains a partial policy update.
type UpdateGroupPolicyParams struct {
	GroupName                string
	MonthlyProjectLimit      *int
	MonthlyPresentationLimit *int
	Description              *string
}
