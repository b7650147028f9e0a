package handler

import (
	"log/slog"
	"net/http"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/service"
)

// AdminHandler handles group policy administration.
//
// Routes handled (admin only):
// - GET    /admin/policies         -> ListPolicies
// - POST   /admin/policies         -> CreatePolicy
// - GET    /admin/policies/{group} -> GetPolicy
// - PATCH  /admin/policies/{group} -> UpdatePolicy
// - DELETE /admin/policies/{group} -> DeletePolicy
type AdminHandler struct {
	policies service.PolicyService
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(policies service.PolicyService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		policies: policies,
		logger:   logger,
	}
}

// RegisterRoutes registers admin routes with the admin middleware applied.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /admin/policies", requireAdmin(http.HandlerFunc(h.ListPolicies)))
	mux.Handle("POST /admin/policies", requireAdmin(http.HandlerFunc(h.CreatePolicy)))
	mux.Handle("GET /admin/policies/{group}", requireAdmin(http.HandlerFunc(h.GetPolicy)))
	mux.Handle("PATCH /admin/policies/{group}", requireAdmin(http.HandlerFunc(h.UpdatePolicy)))
	mux.Handle("DELETE /admin/policies/{group}", requireAdmin(http.HandlerFunc(h.DeletePolicy)))
}

// ListPolicies returns every group policy.
func (h *AdminHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.policies.ListPolicies(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]policyResponse, 0, len(policies))
	for i := range policies {
		out = append(out, toPolicyResponse(&policies[i]))
	}
	writeOK(w, map[string]any{"policies": out})
}

// GetPolicy returns one group policy.
func (h *AdminHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.policies.GetPolicy(r.Context(), r.PathValue("group"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, map[string]any{"policy": toPolicyResponse(policy)})
}

type createPolicyRequest struct {
	GroupName                string `json:"groupName"`
	MonthlyProjectLimit      *int   `json:"monthlyProjectLimit"`
	MonthlyPresentationLimit *int   `json:"monthlyPresentationLimit"`
	Description              string `json:"description"`
}

// CreatePolicy adds a policy for a new group.
func (h *AdminHandler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	const op = "AdminHandler.CreatePolicy"

	var req createPolicyRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	// Both limits are required; zero is a valid "deny all" limit
	var verr error
	if req.MonthlyProjectLimit == nil {
		verr = domain.NewValidationError(op, "monthlyProjectLimit", "is required")
	}
	if req.MonthlyPresentationLimit == nil {
		verr = domain.AddFieldError(verr, "monthlyPresentationLimit", "is required")
	}
	if verr != nil {
		ErrorResponse(w, r, h.logger, verr)
		return
	}

	policy, err := h.policies.CreatePolicy(r.Context(), domain.UpsertGroupPolicyParams{
		GroupName:                req.GroupName,
		MonthlyProjectLimit:      *req.MonthlyProjectLimit,
		MonthlyPresentationLimit: *req.MonthlyPresentationLimit,
		Description:              req.Description,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"policy": toPolicyResponse(policy)})
}

type updatePolicyRequest struct {
	MonthlyProjectLimit      *int    `json:"monthlyProjectLimit"`
	MonthlyPresentationLimit *int    `json:"monthlyPresentationLimit"`
	Description              *string `json:"description"`
}

// UpdatePolicy changes the fields present in the body.
func (h *AdminHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	const op = "AdminHandler.UpdatePolicy"

	var req updatePolicyRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.MonthlyProjectLimit == nil && req.MonthlyPresentationLimit == nil && req.Description == nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Nothing to update"))
		return
	}

	policy, err := h.policies.UpdatePolicy(r.Context(), domain.UpdateGroupPolicyParams{
		GroupName:                r.PathValue("group"),
		MonthlyProjectLimit:      req.MonthlyProjectLimit,
		MonthlyPresentationLimit: req.MonthlyPresentationLimit,
		Description:              req.Description,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, map[string]any{"policy": toPolicyResponse(policy)})
}

// DeletePolicy removes a group policy. Members of the group are denied
// until a policy is recreated.
func (h *AdminHandler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.policies.DeletePolicy(r.Context(), r.PathValue("group")); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, map[string]bool{"success": true})
}
