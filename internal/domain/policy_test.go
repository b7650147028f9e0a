package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func TestEffectiveGroup(t *testing.T) {
	tests := []struct {
		name   string
		role   Role
		plan   Plan
		expect string
	}{
		{"admin ignores plan", RoleAdmin, PlanFree, "admin"},
		{"admin with expert plan", RoleAdmin, PlanExpert, "admin"},
		{"user on pro", RoleUser, PlanPro, "pro"},
		{"user on expert", RoleUser, PlanExpert, "expert"},
		{"user without plan", RoleUser, "", "free"},
		{"empty role without plan", "", "", "free"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, EffectiveGroup(tt.role, tt.plan))
		})
	}
}

func TestDecide(t *testing.T) {
	policy := &GroupPolicy{
		GroupName:                "free",
		MonthlyProjectLimit:      3,
		MonthlyPresentationLimit: 1,
	}

	tests := []struct {
		name    string
		kind    UsageKind
		used    int
		allowed bool
	}{
		{"no usage", UsageKindProject, 0, true},
		{"one below limit", UsageKindProject, 2, true},
		{"at limit", UsageKindProject, 3, false},
		{"over limit", UsageKindProject, 4, false},
		{"presentation under", UsageKindPresentation, 0, true},
		{"presentation at limit", UsageKindPresentation, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(policy, tt.kind, tt.used)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.used, d.Used)
			if tt.allowed {
				assert.Equal(t, ReasonAllowed, d.Reason)
				assert.Empty(t, d.Message)
			} else {
				assert.Equal(t, ReasonLimitReached, d.Reason)
				assert.NotEmpty(t, d.Message)
			}
		})
	}
}

func TestDecide_UnlimitedSentinelIsOrdinaryLimit(t *testing.T) {
	policy := &GroupPolicy{GroupName: "expert", MonthlyProjectLimit: UnlimitedSentinel}

	assert.True(t, Decide(policy, UsageKindProject, UnlimitedSentinel-1).Allowed)
	assert.False(t, Decide(policy, UsageKindProject, UnlimitedSentinel).Allowed)
}

func TestMissingPolicyDecision(t *testing.T) {
	d := MissingPolicyDecision("pro", UsageKindProject)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonPolicyMissing, d.Reason)
	assert.Contains(t, d.Message, "pro")
}

func TestNewKindUsage(t *testing.T) {
	u := NewKindUsage(5, 3)
	assert.Equal(t, 0, u.Remaining)
	assert.False(t, u.Unlimited)

	u = NewKindUsage(1, UnlimitedSentinel)
	assert.True(t, u.Unlimited)
	assert.Equal(t, UnlimitedSentinel-1, u.Remaining)
}

func TestYearMonth_UsesLocation(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	// 2026-01-31 20:00 UTC is 2026-02-01 05:00 in Seoul
	ts := mustTime(t, "2026-01-31T20:00:00Z")
	assert.Equal(t, "2026-02", YearMonth(ts, seoul))
	assert.Equal(t, "2026-01", YearMonth(ts, time.UTC))
	assert.Equal(t, "2026-01", YearMonth(ts, nil))
}
