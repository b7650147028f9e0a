// Package domain contains core business types and interfaces.
//
// This file defines the monthly usage ledger keys.
package domain

import "time"

// UsageKind separates the counters for each quota.
type UsageKind string

const (
	UsageKindProject      UsageKind = "project"
	UsageKindPresentation UsageKind = "presentation"
)

// IsValid returns true if the kind is a recognized value.
func (k UsageKind) IsValid() bool {
	return k == UsageKindProject || k == UsageKindPresentation
}

// YearMonth formats t as the ledger bucket "YYYY-MM" in loc.
func YearMonth(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01")
}
