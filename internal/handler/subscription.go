package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/service"
)

// SubscriptionHandler handles the caller's plan and quota HTTP requests.
//
// Routes handled:
// - GET    /user/subscription                  -> Get
// - POST   /user/subscription/schedule-upgrade -> ScheduleUpgrade
// - DELETE /user/subscription/schedule-upgrade -> CancelScheduledUpgrade
// - POST   /user/subscription/downgrade        -> Downgrade
// - GET    /user/policy                        -> Policy
type SubscriptionHandler struct {
	subscriptions service.SubscriptionService
	policies      service.PolicyService
	logger        *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subscriptions service.SubscriptionService, policies service.PolicyService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		policies:      policies,
		logger:        logger,
	}
}

// RegisterRoutes registers subscription routes on the provided mux.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /user/subscription", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("POST /user/subscription/schedule-upgrade", requireUser(http.HandlerFunc(h.ScheduleUpgrade)))
	mux.Handle("DELETE /user/subscription/schedule-upgrade", requireUser(http.HandlerFunc(h.CancelScheduledUpgrade)))
	mux.Handle("POST /user/subscription/downgrade", requireUser(http.HandlerFunc(h.Downgrade)))
	mux.Handle("GET /user/policy", requireUser(http.HandlerFunc(h.Policy)))
}

// Get returns the caller's subscription.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, "SubscriptionHandler.Get")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	sub, err := h.subscriptions.Get(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, map[string]any{"subscription": toSubscriptionResponse(sub)})
}

type scheduleUpgradeRequest struct {
	TargetPlan string `json:"targetPlan"`
}

type scheduleUpgradeResponse struct {
	Success         bool       `json:"success"`
	Message         string     `json:"message"`
	CurrentPlan     string     `json:"currentPlan"`
	PendingPlan     string     `json:"pendingPlan"`
	NextBillingDate *time.Time `json:"nextBillingDate"`
}

// ScheduleUpgrade queues a higher plan for the next billing cycle.
func (h *SubscriptionHandler) ScheduleUpgrade(w http.ResponseWriter, r *http.Request) {
	const op = "SubscriptionHandler.ScheduleUpgrade"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req scheduleUpgradeRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	target, err := domain.ParsePlan(req.TargetPlan)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "targetPlan must be one of free, pro or expert"))
		return
	}

	result, err := h.subscriptions.ScheduleUpgrade(r.Context(), user.ID, target)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	message := fmt.Sprintf("Your plan will change to %s at the next billing date.", target)
	if result.NextBillingDate != nil {
		message = fmt.Sprintf("Your plan will change to %s on %s.", target, result.NextBillingDate.Format("2006-01-02"))
	}
	writeOK(w, scheduleUpgradeResponse{
		Success:         true,
		Message:         message,
		CurrentPlan:     string(result.Subscription.Plan),
		PendingPlan:     string(target),
		NextBillingDate: result.NextBillingDate,
	})
}

// CancelScheduledUpgrade clears the pending plan.
func (h *SubscriptionHandler) CancelScheduledUpgrade(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, "SubscriptionHandler.CancelScheduledUpgrade")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	sub, err := h.subscriptions.CancelScheduledUpgrade(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, map[string]any{
		"success":      true,
		"message":      "The scheduled upgrade was canceled.",
		"subscription": toSubscriptionResponse(sub),
	})
}

type downgradeResponse struct {
	Success      bool   `json:"success"`
	PreviousPlan string `json:"previousPlan"`
	NewPlan      string `json:"newPlan"`
}

// Downgrade drops the caller to the free plan.
func (h *SubscriptionHandler) Downgrade(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, "SubscriptionHandler.Downgrade")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.subscriptions.DowngradeToFree(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, downgradeResponse{
		Success:      true,
		PreviousPlan: string(result.PreviousPlan),
		NewPlan:      string(result.NewPlan),
	})
}

type policySnapshotResponse struct {
	Group         string           `json:"group"`
	Plan          string           `json:"plan"`
	YearMonth     string           `json:"yearMonth"`
	Configured    bool             `json:"configured"`
	Projects      domain.KindUsage `json:"projects"`
	Presentations domain.KindUsage `json:"presentations"`
}

// Policy returns the caller's effective group and this month's usage.
func (h *SubscriptionHandler) Policy(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, "SubscriptionHandler.Policy")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	snap, err := h.policies.Snapshot(r.Context(), user.ID, user.Role)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, policySnapshotResponse{
		Group:         snap.Group,
		Plan:          string(snap.Plan),
		YearMonth:     snap.YearMonth,
		Configured:    snap.Configured,
		Projects:      snap.Projects,
		Presentations: snap.Presentations,
	})
}
