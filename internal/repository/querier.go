package repository

import (
	"context"

	"github.com/google/uuid"
)

// Querier is the full statement set. *Queries implements it; services depend
// on it so tests can substitute an in-memory store.
type Querier interface {
	CreateCoupon(ctx context.Context, arg CreateCouponParams) (Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (Coupon, error)
	RedeemCoupon(ctx context.Context, arg RedeemCouponParams) (int64, error)
	ListCoupons(ctx context.Context, arg ListCouponsParams) ([]Coupon, error)
	GetGroupPolicy(ctx context.Context, groupName string) (GroupPolicy, error)
	ListGroupPolicies(ctx context.Context) ([]GroupPolicy, error)
	CreateGroupPolicy(ctx context.Context, arg CreateGroupPolicyParams) (GroupPolicy, error)
	UpdateGroupPolicy(ctx context.Context, arg UpdateGroupPolicyParams) (GroupPolicy, error)
	DeleteGroupPolicy(ctx context.Context, groupName string) (int64, error)
	EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error)
	DequeueJob(ctx context.Context) (Job, error)
	UpdateJobStarted(ctx context.Context, id uuid.UUID) error
	UpdateJobCompleted(ctx context.Context, id uuid.UUID) error
	UpdateJobFailed(ctx context.Context, arg UpdateJobFailedParams) error
	RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error)
	CreatePaymentLog(ctx context.Context, arg CreatePaymentLogParams) (PaymentLog, error)
	GetPaymentLogByOrderID(ctx context.Context, orderID string) (PaymentLog, error)
	UpdatePaymentLogStatus(ctx context.Context, arg UpdatePaymentLogStatusParams) (int64, error)
	ListPaymentLogsByUser(ctx context.Context, arg ListPaymentLogsByUserParams) ([]PaymentLog, error)
	GetActivePlanPrice(ctx context.Context, plan string) (PlanPrice, error)
	ListActivePlanPrices(ctx context.Context) ([]PlanPrice, error)
	CreatePresentation(ctx context.Context, arg CreatePresentationParams) (Presentation, error)
	GetPresentationByID(ctx context.Context, id uuid.UUID) (Presentation, error)
	ListPresentationsByProject(ctx context.Context, projectID uuid.UUID) ([]Presentation, error)
	UpdatePresentationStatus(ctx context.Context, arg UpdatePresentationStatusParams) error
	UpdatePresentationContent(ctx context.Context, arg UpdatePresentationContentParams) error
	CreateProject(ctx context.Context, arg CreateProjectParams) (Project, error)
	GetProjectByID(ctx context.Context, id uuid.UUID) (Project, error)
	GetProjectByIDAndUserID(ctx context.Context, arg GetProjectByIDAndUserIDParams) (Project, error)
	ListProjectsByUser(ctx context.Context, arg ListProjectsByUserParams) ([]Project, error)
	UpdateProjectStatus(ctx context.Context, arg UpdateProjectStatusParams) error
	UpdateProjectAnalysis(ctx context.Context, arg UpdateProjectAnalysisParams) error
	DeleteProject(ctx context.Context, arg DeleteProjectParams) (int64, error)
	CreateReport(ctx context.Context, arg CreateReportParams) (Report, error)
	GetReportByID(ctx context.Context, id uuid.UUID) (Report, error)
	GetReportByIDAndUserID(ctx context.Context, arg GetReportByIDAndUserIDParams) (Report, error)
	ListReportsByProject(ctx context.Context, projectID uuid.UUID) ([]Report, error)
	UpdateReportStatus(ctx context.Context, arg UpdateReportStatusParams) error
	UpdateReportCompleted(ctx context.Context, arg UpdateReportCompletedParams) error
	CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
	GetSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (Subscription, error)
	GetSubscriptionByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (Subscription, error)
	CreateSubscription(ctx context.Context, arg CreateSubscriptionParams) (Subscription, error)
	UpdateSubscription(ctx context.Context, arg UpdateSubscriptionParams) (int64, error)
	ListDueSubscriptions(ctx context.Context, arg ListDueSubscriptionsParams) ([]Subscription, error)
	GetUsageCount(ctx context.Context, arg GetUsageCountParams) (int32, error)
	IncrementUsage(ctx context.Context, arg IncrementUsageParams) (int32, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

var _ Querier = (*Queries)(nil)
