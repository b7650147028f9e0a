package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/notify"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
)

// fakeStore is an in-memory repository.Store. ExecTx serializes transactions
// and restores the pre-transaction state when fn fails, which is enough to
// check all-or-nothing behaviour and lost-update handling.
type fakeStore struct {
	repository.Querier // unimplemented statements panic

	txMu sync.Mutex
	mu   sync.Mutex
	state

	// failOn makes the named statement return the error.
	failOn map[string]error

	// beforeSubscriptionUpdate runs ahead of UpdateSubscription, letting a
	// test slip in a concurrent write.
	beforeSubscriptionUpdate func()
}

type state struct {
	users         map[uuid.UUID]repository.User
	sessions      map[string]repository.Session
	subs          map[uuid.UUID]repository.Subscription
	coupons       map[uuid.UUID]repository.Coupon
	policies      map[string]repository.GroupPolicy
	usage         map[usageKey]int32
	payments      []repository.PaymentLog
	prices        map[string]repository.PlanPrice
	projects      map[uuid.UUID]repository.Project
	presentations map[uuid.UUID]repository.Presentation
	reports       map[uuid.UUID]repository.Report
	jobs          []repository.Job
}

type usageKey struct {
	userID    uuid.UUID
	yearMonth string
	kind      string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: state{
			users:         map[uuid.UUID]repository.User{},
			sessions:      map[string]repository.Session{},
			subs:          map[uuid.UUID]repository.Subscription{},
			coupons:       map[uuid.UUID]repository.Coupon{},
			policies:      map[string]repository.GroupPolicy{},
			usage:         map[usageKey]int32{},
			prices:        map[string]repository.PlanPrice{},
			projects:      map[uuid.UUID]repository.Project{},
			presentations: map[uuid.UUID]repository.Presentation{},
			reports:       map[uuid.UUID]repository.Report{},
		},
		failOn: map[string]error{},
	}
}

func (s state) clone() state {
	return state{
		users:         maps.Clone(s.users),
		sessions:      maps.Clone(s.sessions),
		subs:          maps.Clone(s.subs),
		coupons:       maps.Clone(s.coupons),
		policies:      maps.Clone(s.policies),
		usage:         maps.Clone(s.usage),
		payments:      slices.Clone(s.payments),
		prices:        maps.Clone(s.prices),
		projects:      maps.Clone(s.projects),
		presentations: maps.Clone(s.presentations),
		reports:       maps.Clone(s.reports),
		jobs:          slices.Clone(s.jobs),
	}
}

func (f *fakeStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snapshot := f.state.clone()
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.state = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) fail(name string) error {
	return f.failOn[name]
}

var errUnique = &pgconn.PgError{Code: "23505"}

// =============================================================================
// Seed helpers
// =============================================================================

func (f *fakeStore) addUser(email, role string) repository.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := repository.User{ID: uuid.New(), Email: email, Name: "Test User", Role: role, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) putSubscription(sub repository.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.Version == 0 {
		sub.Version = 1
	}
	if sub.Status == "" {
		sub.Status = "active"
	}
	f.subs[sub.UserID] = sub
}

// bumpVersion simulates another writer updating the subscription.
func (f *fakeStore) bumpVersion(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.subs[userID]
	s.Version++
	f.subs[userID] = s
}

func (f *fakeStore) sub(userID uuid.UUID) (repository.Subscription, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[userID]
	return s, ok
}

func (f *fakeStore) addCoupon(code, plan string, days int32) repository.Coupon {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := repository.Coupon{ID: uuid.New(), Code: code, Plan: plan, DurationDays: days, CreatedAt: time.Now()}
	f.coupons[c.ID] = c
	return c
}

func (f *fakeStore) addPolicy(group string, projects, presentations int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[group] = repository.GroupPolicy{
		GroupName:                group,
		MonthlyProjectLimit:      projects,
		MonthlyPresentationLimit: presentations,
	}
}

func (f *fakeStore) setPrice(plan string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[plan] = repository.PlanPrice{Plan: plan, Amount: amount, Currency: "KRW", OrderName: plan + " monthly", Active: true}
}

func (f *fakeStore) paymentLogs() []repository.PaymentLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.payments)
}

func (f *fakeStore) usageCount(userID uuid.UUID, yearMonth, kind string) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage[usageKey{userID, yearMonth, kind}]
}

func (f *fakeStore) queuedJobs() []repository.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.jobs)
}

// =============================================================================
// Users and sessions
// =============================================================================

func (f *fakeStore) CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error) {
	if err := f.fail("CreateUser"); err != nil {
		return repository.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == arg.Email {
			return repository.User{}, errUnique
		}
	}
	u := repository.User{
		ID:           uuid.New(),
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Name:         arg.Name,
		CompanyName:  arg.CompanyName,
		Role:         arg.Role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (f *fakeStore) CreateSession(ctx context.Context, arg repository.CreateSessionParams) (repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := repository.Session{ID: uuid.New(), UserID: arg.UserID, TokenHash: arg.TokenHash, ExpiresAt: arg.ExpiresAt, CreatedAt: time.Now()}
	f.sessions[arg.TokenHash] = s
	return s, nil
}

func (f *fakeStore) GetSessionByTokenHash(ctx context.Context, tokenHash string) (repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[tokenHash]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return repository.Session{}, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

func (f *fakeStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, s := range f.sessions {
		if !s.ExpiresAt.After(time.Now()) {
			delete(f.sessions, k)
			n++
		}
	}
	return n, nil
}

// =============================================================================
// Subscriptions
// =============================================================================

func (f *fakeStore) GetSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (repository.Subscription, error) {
	if err := f.fail("GetSubscriptionByUserID"); err != nil {
		return repository.Subscription{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[userID]
	if !ok {
		return repository.Subscription{}, sql.ErrNoRows
	}
	return s, nil
}

// GetSubscriptionByUserIDForUpdate has no row lock here; txMu already
// serializes transactions, and beforeSubscriptionUpdate models a writer that
// slips in regardless.
func (f *fakeStore) GetSubscriptionByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (repository.Subscription, error) {
	if err := f.fail("GetSubscriptionByUserIDForUpdate"); err != nil {
		return repository.Subscription{}, err
	}
	return f.GetSubscriptionByUserID(ctx, userID)
}

func (f *fakeStore) CreateSubscription(ctx context.Context, arg repository.CreateSubscriptionParams) (repository.Subscription, error) {
	if err := f.fail("CreateSubscription"); err != nil {
		return repository.Subscription{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[arg.UserID]; ok {
		return repository.Subscription{}, errUnique
	}
	s := repository.Subscription{
		ID:                 uuid.New(),
		UserID:             arg.UserID,
		Plan:               arg.Plan,
		Status:             arg.Status,
		BillingKey:         arg.BillingKey,
		CustomerKey:        arg.CustomerKey,
		CurrentPeriodStart: arg.CurrentPeriodStart,
		CurrentPeriodEnd:   arg.CurrentPeriodEnd,
		Version:            1,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	f.subs[arg.UserID] = s
	return s, nil
}

func (f *fakeStore) UpdateSubscription(ctx context.Context, arg repository.UpdateSubscriptionParams) (int64, error) {
	if err := f.fail("UpdateSubscription"); err != nil {
		return 0, err
	}
	if hook := f.beforeSubscriptionUpdate; hook != nil {
		f.beforeSubscriptionUpdate = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[arg.UserID]
	if !ok || s.Version != arg.Version {
		return 0, nil
	}
	s.Plan = arg.Plan
	s.Status = arg.Status
	s.PendingPlan = arg.PendingPlan
	s.BillingKey = arg.BillingKey
	s.CustomerKey = arg.CustomerKey
	s.CurrentPeriodStart = arg.CurrentPeriodStart
	s.CurrentPeriodEnd = arg.CurrentPeriodEnd
	s.Version++
	s.UpdatedAt = time.Now()
	f.subs[arg.UserID] = s
	return 1, nil
}

func (f *fakeStore) ListDueSubscriptions(ctx context.Context, arg repository.ListDueSubscriptionsParams) ([]repository.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Subscription
	for _, s := range f.subs {
		if s.BillingKey.Valid && s.Status == "active" && s.CurrentPeriodEnd.Valid && !s.CurrentPeriodEnd.Time.After(arg.AsOf) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentPeriodEnd.Time.Before(out[j].CurrentPeriodEnd.Time) })
	if len(out) > int(arg.Limit) {
		out = out[:arg.Limit]
	}
	return out, nil
}

// =============================================================================
// Coupons
// =============================================================================

func (f *fakeStore) CreateCoupon(ctx context.Context, arg repository.CreateCouponParams) (repository.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.coupons {
		if c.Code == arg.Code {
			return repository.Coupon{}, errUnique
		}
	}
	c := repository.Coupon{
		ID:           uuid.New(),
		Code:         arg.Code,
		Plan:         arg.Plan,
		DurationDays: arg.DurationDays,
		CreatedBy:    arg.CreatedBy,
		CreatedAt:    time.Now(),
	}
	f.coupons[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetCouponByCode(ctx context.Context, code string) (repository.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.coupons {
		if c.Code == code {
			return c, nil
		}
	}
	return repository.Coupon{}, sql.ErrNoRows
}

func (f *fakeStore) RedeemCoupon(ctx context.Context, arg repository.RedeemCouponParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[arg.ID]
	if !ok || c.RedeemedBy.Valid {
		return 0, nil
	}
	c.RedeemedBy = uuid.NullUUID{UUID: arg.RedeemedBy, Valid: true}
	c.RedeemedAt = sql.NullTime{Time: arg.RedeemedAt, Valid: true}
	c.ExpiresAt = sql.NullTime{Time: arg.ExpiresAt, Valid: true}
	f.coupons[arg.ID] = c
	return 1, nil
}

func (f *fakeStore) ListCoupons(ctx context.Context, arg repository.ListCouponsParams) ([]repository.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Collect(maps.Values(f.coupons))
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, arg.Limit, arg.Offset), nil
}

// =============================================================================
// Policies and usage
// =============================================================================

func (f *fakeStore) GetGroupPolicy(ctx context.Context, groupName string) (repository.GroupPolicy, error) {
	if err := f.fail("GetGroupPolicy"); err != nil {
		return repository.GroupPolicy{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[groupName]
	if !ok {
		return repository.GroupPolicy{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) ListGroupPolicies(ctx context.Context) ([]repository.GroupPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Collect(maps.Values(f.policies))
	sort.Slice(out, func(i, j int) bool { return out[i].GroupName < out[j].GroupName })
	return out, nil
}

func (f *fakeStore) CreateGroupPolicy(ctx context.Context, arg repository.CreateGroupPolicyParams) (repository.GroupPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.policies[arg.GroupName]; ok {
		return repository.GroupPolicy{}, errUnique
	}
	p := repository.GroupPolicy{
		GroupName:                arg.GroupName,
		MonthlyProjectLimit:      arg.MonthlyProjectLimit,
		MonthlyPresentationLimit: arg.MonthlyPresentationLimit,
		Description:              arg.Description,
		CreatedAt:                time.Now(),
		UpdatedAt:                time.Now(),
	}
	f.policies[arg.GroupName] = p
	return p, nil
}

func (f *fakeStore) UpdateGroupPolicy(ctx context.Context, arg repository.UpdateGroupPolicyParams) (repository.GroupPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[arg.GroupName]
	if !ok {
		return repository.GroupPolicy{}, sql.ErrNoRows
	}
	if arg.MonthlyProjectLimit.Valid {
		p.MonthlyProjectLimit = arg.MonthlyProjectLimit.Int32
	}
	if arg.MonthlyPresentationLimit.Valid {
		p.MonthlyPresentationLimit = arg.MonthlyPresentationLimit.Int32
	}
	if arg.Description.Valid {
		p.Description = arg.Description.String
	}
	p.UpdatedAt = time.Now()
	f.policies[arg.GroupName] = p
	return p, nil
}

func (f *fakeStore) DeleteGroupPolicy(ctx context.Context, groupName string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.policies[groupName]; !ok {
		return 0, nil
	}
	delete(f.policies, groupName)
	return 1, nil
}

func (f *fakeStore) GetUsageCount(ctx context.Context, arg repository.GetUsageCountParams) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage[usageKey{arg.UserID, arg.YearMonth, arg.Kind}], nil
}

func (f *fakeStore) IncrementUsage(ctx context.Context, arg repository.IncrementUsageParams) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := usageKey{arg.UserID, arg.YearMonth, arg.Kind}
	f.usage[k]++
	return f.usage[k], nil
}

// =============================================================================
// Payments
// =============================================================================

func (f *fakeStore) CreatePaymentLog(ctx context.Context, arg repository.CreatePaymentLogParams) (repository.PaymentLog, error) {
	if err := f.fail("CreatePaymentLog"); err != nil {
		return repository.PaymentLog{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.OrderID == arg.OrderID {
			return repository.PaymentLog{}, errUnique
		}
	}
	p := repository.PaymentLog{
		ID:            uuid.New(),
		UserID:        arg.UserID,
		OrderID:       arg.OrderID,
		Amount:        arg.Amount,
		Currency:      arg.Currency,
		Status:        arg.Status,
		Plan:          arg.Plan,
		Method:        arg.Method,
		TransactionID: arg.TransactionID,
		Description:   arg.Description,
		FailureReason: arg.FailureReason,
		Metadata:      arg.Metadata,
		PaidAt:        arg.PaidAt,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	f.payments = append(f.payments, p)
	return p, nil
}

func (f *fakeStore) GetPaymentLogByOrderID(ctx context.Context, orderID string) (repository.PaymentLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return repository.PaymentLog{}, sql.ErrNoRows
}

func (f *fakeStore) UpdatePaymentLogStatus(ctx context.Context, arg repository.UpdatePaymentLogStatusParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.payments {
		if p.OrderID != arg.OrderID || p.Status != arg.FromStatus {
			continue
		}
		p.Status = arg.Status
		p.TransactionID = arg.TransactionID
		p.Method = arg.Method
		p.FailureReason = arg.FailureReason
		p.Metadata = arg.Metadata
		p.PaidAt = arg.PaidAt
		p.UpdatedAt = time.Now()
		f.payments[i] = p
		return 1, nil
	}
	return 0, nil
}

func (f *fakeStore) ListPaymentLogsByUser(ctx context.Context, arg repository.ListPaymentLogsByUserParams) ([]repository.PaymentLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.PaymentLog
	for i := len(f.payments) - 1; i >= 0; i-- {
		if f.payments[i].UserID == arg.UserID {
			out = append(out, f.payments[i])
		}
	}
	return page(out, arg.Limit, arg.Offset), nil
}

func (f *fakeStore) GetActivePlanPrice(ctx context.Context, plan string) (repository.PlanPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[plan]
	if !ok || !p.Active {
		return repository.PlanPrice{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) ListActivePlanPrices(ctx context.Context) ([]repository.PlanPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.PlanPrice
	for _, p := range f.prices {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out, nil
}

// =============================================================================
// Projects, artifacts and jobs
// =============================================================================

func (f *fakeStore) CreateProject(ctx context.Context, arg repository.CreateProjectParams) (repository.Project, error) {
	if err := f.fail("CreateProject"); err != nil {
		return repository.Project{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := repository.Project{
		ID:          arg.ID,
		UserID:      arg.UserID,
		Title:       arg.Title,
		Status:      "uploaded",
		FileKey:     arg.FileKey,
		FileName:    arg.FileName,
		ContentType: arg.ContentType,
		FileSize:    arg.FileSize,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetProjectByID(ctx context.Context, id uuid.UUID) (repository.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return repository.Project{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) GetProjectByIDAndUserID(ctx context.Context, arg repository.GetProjectByIDAndUserIDParams) (repository.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[arg.ID]
	if !ok || p.UserID != arg.UserID {
		return repository.Project{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) ListProjectsByUser(ctx context.Context, arg repository.ListProjectsByUserParams) ([]repository.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Project
	for _, p := range f.projects {
		if p.UserID == arg.UserID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, arg.Limit, arg.Offset), nil
}

func (f *fakeStore) UpdateProjectStatus(ctx context.Context, arg repository.UpdateProjectStatusParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[arg.ID]
	if ok {
		p.Status = arg.Status
		p.ErrorMessage = arg.ErrorMessage
		f.projects[arg.ID] = p
	}
	return nil
}

func (f *fakeStore) UpdateProjectAnalysis(ctx context.Context, arg repository.UpdateProjectAnalysisParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[arg.ID]
	if ok {
		p.Status = "analyzed"
		p.Analysis = sql.NullString{String: arg.Analysis, Valid: true}
		f.projects[arg.ID] = p
	}
	return nil
}

func (f *fakeStore) DeleteProject(ctx context.Context, arg repository.DeleteProjectParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[arg.ID]
	if !ok || p.UserID != arg.UserID {
		return 0, nil
	}
	delete(f.projects, arg.ID)
	for id, r := range f.reports {
		if r.ProjectID == arg.ID {
			delete(f.reports, id)
		}
	}
	for id, pr := range f.presentations {
		if pr.ProjectID == arg.ID {
			delete(f.presentations, id)
		}
	}
	return 1, nil
}

func (f *fakeStore) CreatePresentation(ctx context.Context, arg repository.CreatePresentationParams) (repository.Presentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := repository.Presentation{ID: uuid.New(), ProjectID: arg.ProjectID, UserID: arg.UserID, Status: "pending", CreatedAt: time.Now()}
	f.presentations[p.ID] = p
	return p, nil
}

func (f *fakeStore) ListPresentationsByProject(ctx context.Context, projectID uuid.UUID) ([]repository.Presentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Presentation
	for _, p := range f.presentations {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateReport(ctx context.Context, arg repository.CreateReportParams) (repository.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := repository.Report{ID: uuid.New(), ProjectID: arg.ProjectID, UserID: arg.UserID, Status: "pending", CreatedAt: time.Now()}
	f.reports[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetReportByIDAndUserID(ctx context.Context, arg repository.GetReportByIDAndUserIDParams) (repository.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[arg.ID]
	if !ok || r.UserID != arg.UserID {
		return repository.Report{}, sql.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) ListReportsByProject(ctx context.Context, projectID uuid.UUID) ([]repository.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Report
	for _, r := range f.reports {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateReportCompleted(ctx context.Context, arg repository.UpdateReportCompletedParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[arg.ID]
	if ok {
		r.Status = "completed"
		r.FileKey = sql.NullString{String: arg.FileKey, Valid: true}
		r.FileSize = sql.NullInt64{Int64: arg.FileSize, Valid: true}
		r.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
		f.reports[arg.ID] = r
	}
	return nil
}

func (f *fakeStore) EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := repository.Job{
		ID:          uuid.New(),
		JobType:     arg.JobType,
		Payload:     arg.Payload,
		Status:      "pending",
		Priority:    arg.Priority,
		MaxAttempts: arg.MaxAttempts,
		ScheduledAt: arg.ScheduledAt,
		CreatedAt:   time.Now(),
	}
	f.jobs = append(f.jobs, j)
	return j, nil
}

func page[T any](items []T, limit, offset int32) []T {
	if int(offset) >= len(items) {
		return nil
	}
	items = items[offset:]
	if int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}

var _ repository.Store = (*fakeStore)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func subscriptionRow(userID uuid.UUID, plan string) repository.Subscription {
	return repository.Subscription{UserID: userID, Plan: plan, Status: "active"}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// recordingNotifier keeps every message it is asked to send.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingNotifier) events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, m.Event)
	}
	return out
}
