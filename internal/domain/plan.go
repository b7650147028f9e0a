// Package domain contains core business types and interfaces.
//
// This file defines subscription plans and their ordering.
package domain

import (
	"fmt"
	"strings"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree   Plan = "free"
	PlanPro    Plan = "pro"
	PlanExpert Plan = "expert"
)

// planOrder ranks plans for upgrade decisions: free < pro < expert.
var planOrder = map[Plan]int{
	PlanFree:   0,
	PlanPro:    1,
	PlanExpert: 2,
}

// String returns the string representation of the plan.
func (p Plan) String() string {
	return string(p)
}

// IsValid returns true if the plan is a recognized value.
func (p Plan) IsValid() bool {
	_, ok := planOrder[p]
	return ok
}

// IsPaid returns true for plans that are charged through the gateway.
func (p Plan) IsPaid() bool {
	return p == PlanPro || p == PlanExpert
}

// Order returns the rank of the plan. Unknown plans rank as free.
func (p Plan) Order() int {
	return planOrder[p]
}

// IsUpgradeTo reports whether target ranks strictly above p.
func (p Plan) IsUpgradeTo(target Plan) bool {
	return target.IsValid() && target.Order() > p.Order()
}

// OrDefault returns the plan, or free when it is empty.
func (p Plan) OrDefault() Plan {
	if p == "" {
		return PlanFree
	}
	return p
}

// ParsePlan normalizes and validates a plan name.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}
