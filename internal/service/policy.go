// Package service contains the business logic layer.
//
// This file implements the policy evaluator: per-group monthly limits on
// project and presentation creation, the usage ledger behind them, and the
// admin operations that maintain group policies.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// PolicyService decides whether quota-gated actions are allowed and keeps
// the monthly usage ledger.
type PolicyService interface {
	// CheckProjectCreation evaluates the monthly project limit. A denied
	// decision is returned with a nil error; errors mean the store failed.
	CheckProjectCreation(ctx context.Context, userID uuid.UUID, role domain.Role, plan domain.Plan) (domain.PolicyDecision, error)

	// CheckPresentationCreation evaluates the monthly presentation limit.
	CheckPresentationCreation(ctx context.Context, userID uuid.UUID, role domain.Role, plan domain.Plan) (domain.PolicyDecision, error)

	// RecordUsage increments the current month's counter for kind and
	// returns the new count. Call it only after the gated action succeeded.
	RecordUsage(ctx context.Context, userID uuid.UUID, kind domain.UsageKind) (int, error)

	// Snapshot returns the caller's group, plan and usage for this month.
	Snapshot(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.PolicySnapshot, error)

	// Admin operations
	ListPolicies(ctx context.Context) ([]domain.GroupPolicy, error)
	GetPolicy(ctx context.Context, group string) (*domain.GroupPolicy, error)
	CreatePolicy(ctx context.Context, params domain.UpsertGroupPolicyParams) (*domain.GroupPolicy, error)
	UpdatePolicy(ctx context.Context, params domain.UpdateGroupPolicyParams) (*domain.GroupPolicy, error)
	DeletePolicy(ctx context.Context, group string) error
}

// =============================================================================
// Implementation
// =============================================================================

type policyService struct {
	store  repository.Store
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewPolicyService creates a new PolicyService. Usage months are computed in loc.
func NewPolicyService(store repository.Store, loc *time.Location, logger *slog.Logger) PolicyService {
	if loc == nil {
		loc = time.UTC
	}
	return &policyService{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

func (s *policyService) CheckProjectCreation(ctx context.Context, userID uuid.UUID, role domain.Role, plan domain.Plan) (domain.PolicyDecision, error) {
	return s.check(ctx, "PolicyService.CheckProjectCreation", userID, role, plan, domain.UsageKindProject)
}

func (s *policyService) CheckPresentationCreation(ctx context.Context, userID uuid.UUID, role domain.Role, plan domain.Plan) (domain.PolicyDecision, error) {
	return s.check(ctx, "PolicyService.CheckPresentationCreation", userID, role, plan, domain.UsageKindPresentation)
}

func (s *policyService) check(ctx context.Context, op string, userID uuid.UUID, role domain.Role, plan domain.Plan, kind domain.UsageKind) (domain.PolicyDecision, error) {
	group := domain.EffectiveGroup(role, plan)

	policy, err := s.store.GetGroupPolicy(ctx, group)
	if err != nil {
		if repository.IsNotFound(err) {
			// Fail closed: an unconfigured group never gets unlimited access.
			s.logger.Warn("no group policy configured, denying",
				"group", group,
				"kind", kind,
				"user_id", userID,
			)
			metrics.PolicyChecked(string(kind), domain.ReasonPolicyMissing)
			return domain.MissingPolicyDecision(group, kind), nil
		}
		return domain.PolicyDecision{}, domain.Internal(err, op, "Failed to load usage policy")
	}

	used, err := s.store.GetUsageCount(ctx, repository.GetUsageCountParams{
		UserID:    userID,
		YearMonth: domain.YearMonth(s.now(), s.loc),
		Kind:      string(kind),
	})
	if err != nil {
		return domain.PolicyDecision{}, domain.Internal(err, op, "Failed to load usage")
	}

	decision := domain.Decide(repoPolicyToDomain(policy), kind, int(used))
	metrics.PolicyChecked(string(kind), decision.Reason)

	if !decision.Allowed {
		s.logger.Info("quota limit reached",
			"user_id", userID,
			"group", group,
			"kind", kind,
			"used", decision.Used,
			"limit", decision.Limit,
		)
	}
	return decision, nil
}

func (s *policyService) RecordUsage(ctx context.Context, userID uuid.UUID, kind domain.UsageKind) (int, error) {
	const op = "PolicyService.RecordUsage"

	if !kind.IsValid() {
		return 0, domain.Invalid(op, "Unknown usage kind")
	}

	count, err := s.store.IncrementUsage(ctx, repository.IncrementUsageParams{
		UserID:    userID,
		YearMonth: domain.YearMonth(s.now(), s.loc),
		Kind:      string(kind),
	})
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to record usage")
	}

	metrics.UsageRecorded(string(kind))
	return int(count), nil
}

func (s *policyService) Snapshot(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.PolicySnapshot, error) {
	const op = "PolicyService.Snapshot"

	plan := domain.PlanFree
	sub, err := s.store.GetSubscriptionByUserID(ctx, userID)
	switch {
	case err == nil:
		plan = domain.Plan(sub.Plan).OrDefault()
	case !repository.IsNotFound(err):
		return nil, domain.Internal(err, op, "Failed to load subscription")
	}

	yearMonth := domain.YearMonth(s.now(), s.loc)
	snapshot := &domain.PolicySnapshot{
		Group:     domain.EffectiveGroup(role, plan),
		Plan:      plan,
		YearMonth: yearMonth,
	}

	projects, err := s.store.GetUsageCount(ctx, repository.GetUsageCountParams{
		UserID: userID, YearMonth: yearMonth, Kind: string(domain.UsageKindProject),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load usage")
	}
	presentations, err := s.store.GetUsageCount(ctx, repository.GetUsageCountParams{
		UserID: userID, YearMonth: yearMonth, Kind: string(domain.UsageKindPresentation),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load usage")
	}

	policy, err := s.store.GetGroupPolicy(ctx, snapshot.Group)
	switch {
	case err == nil:
		p := repoPolicyToDomain(policy)
		snapshot.Configured = true
		snapshot.Projects = domain.NewKindUsage(int(projects), p.MonthlyProjectLimit)
		snapshot.Presentations = domain.NewKindUsage(int(presentations), p.MonthlyPresentationLimit)
	case repository.IsNotFound(err):
		// Unconfigured groups report zero limits, matching the fail-closed check.
		snapshot.Projects = domain.NewKindUsage(int(projects), 0)
		snapshot.Presentations = domain.NewKindUsage(int(presentations), 0)
	default:
		return nil, domain.Internal(err, op, "Failed to load usage policy")
	}

	return snapshot, nil
}

// =============================================================================
// Admin Operations
// =============================================================================

var groupNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

func (s *policyService) ListPolicies(ctx context.Context) ([]domain.GroupPolicy, error) {
	const op = "PolicyService.ListPolicies"

	rows, err := s.store.ListGroupPolicies(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list policies")
	}
	out := make([]domain.GroupPolicy, 0, len(rows))
	for _, row := range rows {
		out = append(out, *repoPolicyToDomain(row))
	}
	return out, nil
}

func (s *policyService) GetPolicy(ctx context.Context, group string) (*domain.GroupPolicy, error) {
	const op = "PolicyService.GetPolicy"

	row, err := s.store.GetGroupPolicy(ctx, normalizeGroup(group))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NotFound(op, "policy", group)
		}
		return nil, domain.Internal(err, op, "Failed to load policy")
	}
	return repoPolicyToDomain(row), nil
}

func (s *policyService) CreatePolicy(ctx context.Context, params domain.UpsertGroupPolicyParams) (*domain.GroupPolicy, error) {
	const op = "PolicyService.CreatePolicy"

	params.GroupName = normalizeGroup(params.GroupName)
	if !groupNamePattern.MatchString(params.GroupName) {
		return nil, domain.Invalid(op, "Group name must be lowercase letters, digits, '-' or '_'")
	}
	if err := validateLimit(op, params.MonthlyProjectLimit); err != nil {
		return nil, err
	}
	if err := validateLimit(op, params.MonthlyPresentationLimit); err != nil {
		return nil, err
	}

	row, err := s.store.CreateGroupPolicy(ctx, repository.CreateGroupPolicyParams{
		GroupName:                params.GroupName,
		MonthlyProjectLimit:      int32(params.MonthlyProjectLimit),
		MonthlyPresentationLimit: int32(params.MonthlyPresentationLimit),
		Description:              strings.TrimSpace(params.Description),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.Conflict(op, "A policy for this group already exists")
		}
		return nil, domain.Internal(err, op, "Failed to create policy")
	}

	s.logger.Info("group policy created",
		"group", row.GroupName,
		"project_limit", row.MonthlyProjectLimit,
		"presentation_limit", row.MonthlyPresentationLimit,
	)
	return repoPolicyToDomain(row), nil
}

func (s *policyService) UpdatePolicy(ctx context.Context, params domain.UpdateGroupPolicyParams) (*domain.GroupPolicy, error) {
	const op = "PolicyService.UpdatePolicy"

	arg := repository.UpdateGroupPolicyParams{GroupName: normalizeGroup(params.GroupName)}
	if params.MonthlyProjectLimit != nil {
		if err := validateLimit(op, *params.MonthlyProjectLimit); err != nil {
			return nil, err
		}
		arg.MonthlyProjectLimit = sql.NullInt32{Int32: int32(*params.MonthlyProjectLimit), Valid: true}
	}
	if params.MonthlyPresentationLimit != nil {
		if err := validateLimit(op, *params.MonthlyPresentationLimit); err != nil {
			return nil, err
		}
		arg.MonthlyPresentationLimit = sql.NullInt32{Int32: int32(*params.MonthlyPresentationLimit), Valid: true}
	}
	if params.Description != nil {
		arg.Description = sql.NullString{String: strings.TrimSpace(*params.Description), Valid: true}
	}

	row, err := s.store.UpdateGroupPolicy(ctx, arg)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NotFound(op, "policy", arg.GroupName)
		}
		return nil, domain.Internal(err, op, "Failed to update policy")
	}

	s.logger.Info("group policy updated", "group", row.GroupName)
	return repoPolicyToDomain(row), nil
}

func (s *policyService) DeletePolicy(ctx context.Context, group string) error {
	const op = "PolicyService.DeletePolicy"

	group = normalizeGroup(group)
	rows, err := s.store.DeleteGroupPolicy(ctx, group)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete policy")
	}
	if rows == 0 {
		return domain.NotFound(op, "policy", group)
	}

	// Members of this group are denied until a policy is recreated.
	s.logger.Warn("group policy deleted", "group", group)
	return nil
}

func normalizeGroup(group string) string {
	return strings.ToLower(strings.TrimSpace(group))
}

func validateLimit(op string, limit int) error {
	if limit < 0 || limit > domain.UnlimitedSentinel {
		return domain.Invalid(op, "Limits must be between 0 and 999999")
	}
	return nil
}

var _ PolicyService = (*policyService)(nil)
