package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/auth"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/service"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock UserService Implementation
// =============================================================================

type mockUserService struct {
	RegisterFunc              func(ctx context.Context, params domain.RegisterParams) (*domain.User, error)
	LoginFunc                 func(ctx context.Context, email, password string) (*domain.LoginResult, error)
	LogoutFunc                func(ctx context.Context, token string) error
	GetByIDFunc               func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetBySessionTokenFunc     func(ctx context.Context, token string) (*domain.User, error)
	DeleteExpiredSessionsFunc func(ctx context.Context) (int64, error)
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, params)
	}
	return nil, errors.New("RegisterFunc not implemented")
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, errors.New("LoginFunc not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errors.New("GetByIDFunc not implemented")
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, errors.New("GetBySessionTokenFunc not implemented")
}

func (m *mockUserService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	if m.DeleteExpiredSessionsFunc != nil {
		return m.DeleteExpiredSessionsFunc(ctx)
	}
	return 0, nil
}

// =============================================================================
// Mock SubscriptionService Implementation
// =============================================================================

type mockSubscriptionService struct {
	GetFunc                    func(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
	ScheduleUpgradeFunc        func(ctx context.Context, userID uuid.UUID, target domain.Plan) (*domain.ScheduledUpgrade, error)
	CancelScheduledUpgradeFunc func(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
	DowngradeToFreeFunc        func(ctx context.Context, userID uuid.UUID) (*domain.DowngradeResult, error)
}

func (m *mockSubscriptionService) Get(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return nil, errors.New("GetFunc not implemented")
}

func (m *mockSubscriptionService) ScheduleUpgrade(ctx context.Context, userID uuid.UUID, target domain.Plan) (*domain.ScheduledUpgrade, error) {
	if m.ScheduleUpgradeFunc != nil {
		return m.ScheduleUpgradeFunc(ctx, userID, target)
	}
	return nil, errors.New("ScheduleUpgradeFunc not implemented")
}

func (m *mockSubscriptionService) CancelScheduledUpgrade(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	if m.CancelScheduledUpgradeFunc != nil {
		return m.CancelScheduledUpgradeFunc(ctx, userID)
	}
	return nil, errors.New("CancelScheduledUpgradeFunc not implemented")
}

func (m *mockSubscriptionService) DowngradeToFree(ctx context.Context, userID uuid.UUID) (*domain.DowngradeResult, error) {
	if m.DowngradeToFreeFunc != nil {
		return m.DowngradeToFreeFunc(ctx, userID)
	}
	return nil, errors.New("DowngradeToFreeFunc not implemented")
}

// =============================================================================
// Mock CouponService Implementation
// =============================================================================

type mockCouponService struct {
	RedeemFunc func(ctx context.Context, userID uuid.UUID, code string) (*domain.RedemptionResult, error)
	CreateFunc func(ctx context.Context, params domain.CreateCouponParams) (*domain.Coupon, error)
	ListFunc   func(ctx context.Context, limit, offset int) ([]domain.Coupon, error)
}

func (m *mockCouponService) Redeem(ctx context.Context, userID uuid.UUID, code string) (*domain.RedemptionResult, error) {
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, userID, code)
	}
	return nil, errors.New("RedeemFunc not implemented")
}

func (m *mockCouponService) Create(ctx context.Context, params domain.CreateCouponParams) (*domain.Coupon, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, errors.New("CreateFunc not implemented")
}

func (m *mockCouponService) List(ctx context.Context, limit, offset int) ([]domain.Coupon, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return nil, errors.New("ListFunc not implemented")
}

// =============================================================================
// Mock PolicyService Implementation
// =============================================================================

type mockPolicyService struct {
	CheckProjectCreationFunc      func(ctx context.Context, userID uuid.UUID, role domain.Role, plan domain.Plan) (domain.PolicyDecision, error)
	CheckPresentationCreationFunc func(ctx context.Context, userID uuid.UUID, role domain.Role, plan domain.Plan) (domain.PolicyDecision, error)
	RecordUsageFunc               func(ctx context.Context, userID uuid.UUID, kind domain.UsageKind) (int, error)
	SnapshotFunc                  func(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.PolicySnapshot, error)
	ListPoliciesFunc              func(ctx context.Context) ([]domain.GroupPolicy, error)
	GetPolicyFunc                 func(ctx context.Context, group string) (*domain.GroupPolicy, error)
	CreatePolicyFunc              func(ctx context.Context, params domain.UpsertGroupPolicyParams) (*domain.GroupPolicy, error)
	UpdatePolicyFunc              func(ctx context.Context, params domain.UpdateGroupPolicyParams) (*domain.GroupPolicy, error)
	DeletePolicyFunc              func(ctx context.Context, group string) error
}

func (m *mockPolicyService) CheckProjectCreation(ctx context.Context, userID uuid.UUID, role domain.Role, plan domain.Plan) (domain.PolicyDecision, error) {
	if m.CheckProjectCreationFunc != nil {
		return m.CheckProjectCreationFunc(ctx, userID, role, plan)
	}
	return domain.PolicyDecision{}, errors.New("CheckProjectCreationFunc not implemented")
}

func (m *mockPolicyService) CheckPresentationCreation(ctx context.Context, userID uuid.UUID, role domain.Role, plan domain.Plan) (domain.PolicyDecision, error) {
	if m.CheckPresentationCreationFunc != nil {
		return m.CheckPresentationCreationFunc(ctx, userID, role, plan)
	}
	return domain.PolicyDecision{}, errors.New("CheckPresentationCreationFunc not implemented")
}

func (m *mockPolicyService) RecordUsage(ctx context.Context, userID uuid.UUID, kind domain.UsageKind) (int, error) {
	if m.RecordUsageFunc != nil {
		return m.RecordUsageFunc(ctx, userID, kind)
	}
	return 0, errors.New("RecordUsageFunc not implemented")
}

func (m *mockPolicyService) Snapshot(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.PolicySnapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, userID, role)
	}
	return nil, errors.New("SnapshotFunc not implemented")
}

func (m *mockPolicyService) ListPolicies(ctx context.Context) ([]domain.GroupPolicy, error) {
	if m.ListPoliciesFunc != nil {
		return m.ListPoliciesFunc(ctx)
	}
	return nil, errors.New("ListPoliciesFunc not implemented")
}

func (m *mockPolicyService) GetPolicy(ctx context.Context, group string) (*domain.GroupPolicy, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc(ctx, group)
	}
	return nil, errors.New("GetPolicyFunc not implemented")
}

func (m *mockPolicyService) CreatePolicy(ctx context.Context, params domain.UpsertGroupPolicyParams) (*domain.GroupPolicy, error) {
	if m.CreatePolicyFunc != nil {
		return m.CreatePolicyFunc(ctx, params)
	}
	return nil, errors.New("CreatePolicyFunc not implemented")
}

func (m *mockPolicyService) UpdatePolicy(ctx context.Context, params domain.UpdateGroupPolicyParams) (*domain.GroupPolicy, error) {
	if m.UpdatePolicyFunc != nil {
		return m.UpdatePolicyFunc(ctx, params)
	}
	return nil, errors.New("UpdatePolicyFunc not implemented")
}

func (m *mockPolicyService) DeletePolicy(ctx context.Context, group string) error {
	if m.DeletePolicyFunc != nil {
		return m.DeletePolicyFunc(ctx, group)
	}
	return errors.New("DeletePolicyFunc not implemented")
}

// =============================================================================
// Mock BillingService Implementation
// =============================================================================

type mockBillingService struct {
	ChargeSubscriptionFunc   func(ctx context.Context, userID uuid.UUID, caller domain.ChargeCaller) (*domain.ChargeResult, error)
	StartCheckoutFunc        func(ctx context.Context, userID uuid.UUID, plan domain.Plan) (*domain.CheckoutSession, error)
	ConfirmCheckoutFunc      func(ctx context.Context, params domain.ConfirmCheckoutParams) (*domain.ChargeResult, error)
	HandleWebhookFunc        func(ctx context.Context, gateway string, payload []byte, header http.Header) error
	ListPaymentsFunc         func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.PaymentLog, error)
	ListPricesFunc           func(ctx context.Context) ([]domain.PlanPrice, error)
	ListDueSubscriptionsFunc func(ctx context.Context, asOf time.Time, limit int) ([]domain.Subscription, error)
}

func (m *mockBillingService) ChargeSubscription(ctx context.Context, userID uuid.UUID, caller domain.ChargeCaller) (*domain.ChargeResult, error) {
	if m.ChargeSubscriptionFunc != nil {
		return m.ChargeSubscriptionFunc(ctx, userID, caller)
	}
	return nil, errors.New("ChargeSubscriptionFunc not implemented")
}

func (m *mockBillingService) StartCheckout(ctx context.Context, userID uuid.UUID, plan domain.Plan) (*domain.CheckoutSession, error) {
	if m.StartCheckoutFunc != nil {
		return m.StartCheckoutFunc(ctx, userID, plan)
	}
	return nil, errors.New("StartCheckoutFunc not implemented")
}

func (m *mockBillingService) ConfirmCheckout(ctx context.Context, params domain.ConfirmCheckoutParams) (*domain.ChargeResult, error) {
	if m.ConfirmCheckoutFunc != nil {
		return m.ConfirmCheckoutFunc(ctx, params)
	}
	return nil, errors.New("ConfirmCheckoutFunc not implemented")
}

func (m *mockBillingService) HandleWebhook(ctx context.Context, gateway string, payload []byte, header http.Header) error {
	if m.HandleWebhookFunc != nil {
		return m.HandleWebhookFunc(ctx, gateway, payload, header)
	}
	return errors.New("HandleWebhookFunc not implemented")
}

func (m *mockBillingService) ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.PaymentLog, error) {
	if m.ListPaymentsFunc != nil {
		return m.ListPaymentsFunc(ctx, userID, limit, offset)
	}
	return nil, errors.New("ListPaymentsFunc not implemented")
}

func (m *mockBillingService) ListPrices(ctx context.Context) ([]domain.PlanPrice, error) {
	if m.ListPricesFunc != nil {
		return m.ListPricesFunc(ctx)
	}
	return nil, errors.New("ListPricesFunc not implemented")
}

func (m *mockBillingService) ListDueSubscriptions(ctx context.Context, asOf time.Time, limit int) ([]domain.Subscription, error) {
	if m.ListDueSubscriptionsFunc != nil {
		return m.ListDueSubscriptionsFunc(ctx, asOf, limit)
	}
	return nil, errors.New("ListDueSubscriptionsFunc not implemented")
}

// =============================================================================
// Mock ProjectService Implementation
// =============================================================================

type mockProjectService struct {
	CreateProjectFunc      func(ctx context.Context, params domain.CreateProjectParams, file io.Reader) (*domain.Project, error)
	GetProjectFunc         func(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error)
	ListProjectsFunc       func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Project, error)
	DeleteProjectFunc      func(ctx context.Context, userID, projectID uuid.UUID) error
	CreatePresentationFunc func(ctx context.Context, userID uuid.UUID, role domain.Role, projectID uuid.UUID) (*domain.Presentation, error)
	ListPresentationsFunc  func(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Presentation, error)
	RequestReportFunc      func(ctx context.Context, userID, projectID uuid.UUID) (*domain.Report, error)
	GetReportFunc          func(ctx context.Context, userID, reportID uuid.UUID) (*domain.Report, error)
}

func (m *mockProjectService) CreateProject(ctx context.Context, params domain.CreateProjectParams, file io.Reader) (*domain.Project, error) {
	if m.CreateProjectFunc != nil {
		return m.CreateProjectFunc(ctx, params, file)
	}
	return nil, errors.New("CreateProjectFunc not implemented")
}

func (m *mockProjectService) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error) {
	if m.GetProjectFunc != nil {
		return m.GetProjectFunc(ctx, userID, projectID)
	}
	return nil, errors.New("GetProjectFunc not implemented")
}

func (m *mockProjectService) ListProjects(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Project, error) {
	if m.ListProjectsFunc != nil {
		return m.ListProjectsFunc(ctx, userID, limit, offset)
	}
	return nil, errors.New("ListProjectsFunc not implemented")
}

func (m *mockProjectService) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	if m.DeleteProjectFunc != nil {
		return m.DeleteProjectFunc(ctx, userID, projectID)
	}
	return errors.New("DeleteProjectFunc not implemented")
}

func (m *mockProjectService) CreatePresentation(ctx context.Context, userID uuid.UUID, role domain.Role, projectID uuid.UUID) (*domain.Presentation, error) {
	if m.CreatePresentationFunc != nil {
		return m.CreatePresentationFunc(ctx, userID, role, projectID)
	}
	return nil, errors.New("CreatePresentationFunc not implemented")
}

func (m *mockProjectService) ListPresentations(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Presentation, error) {
	if m.ListPresentationsFunc != nil {
		return m.ListPresentationsFunc(ctx, userID, projectID)
	}
	return nil, errors.New("ListPresentationsFunc not implemented")
}

func (m *mockProjectService) RequestReport(ctx context.Context, userID, projectID uuid.UUID) (*domain.Report, error) {
	if m.RequestReportFunc != nil {
		return m.RequestReportFunc(ctx, userID, projectID)
	}
	return nil, errors.New("RequestReportFunc not implemented")
}

func (m *mockProjectService) GetReport(ctx context.Context, userID, reportID uuid.UUID) (*domain.Report, error) {
	if m.GetReportFunc != nil {
		return m.GetReportFunc(ctx, userID, reportID)
	}
	return nil, errors.New("GetReportFunc not implemented")
}

var (
	_ service.UserService         = (*mockUserService)(nil)
	_ service.SubscriptionService = (*mockSubscriptionService)(nil)
	_ service.CouponService       = (*mockCouponService)(nil)
	_ service.PolicyService       = (*mockPolicyService)(nil)
	_ service.BillingService      = (*mockBillingService)(nil)
	_ service.ProjectService      = (*mockProjectService)(nil)
)

// =============================================================================
// Test Helpers
// =============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUser(role domain.Role) *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Email:     "owner@example.com",
		Name:      "Owner",
		Role:      role,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// newJSONRequest builds a request with body marshaled as JSON, or raw when
// body is a string.
func newJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, user *domain.User) *http.Request {
	return req.WithContext(auth.SetUser(req.Context(), user))
}

// passthrough stands in for the auth and rate limit middleware.
func passthrough(next http.Handler) http.Handler { return next }

// serve routes req through a mux so path values are populated.
func serve(register func(mux *http.ServeMux), req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
