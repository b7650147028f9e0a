package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/service"
)

// CouponHandler handles coupon redemption and issuance.
//
// Routes handled:
// - POST /coupons/redeem -> Redeem
// - GET  /admin/coupons  -> List (admin)
// - POST /admin/coupons  -> Create (admin)
type CouponHandler struct {
	coupons service.CouponService
	logger  *slog.Logger
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(coupons service.CouponService, logger *slog.Logger) *CouponHandler {
	return &CouponHandler{
		coupons: coupons,
		logger:  logger,
	}
}

// RegisterRoutes registers coupon routes. limitRedeem slows down code
// guessing; it must run after requireUser so it can key by user.
func (h *CouponHandler) RegisterRoutes(mux *http.ServeMux, requireUser, requireAdmin, limitRedeem func(http.Handler) http.Handler) {
	mux.Handle("POST /coupons/redeem", requireUser(limitRedeem(http.HandlerFunc(h.Redeem))))
	mux.Handle("GET /admin/coupons", requireAdmin(http.HandlerFunc(h.List)))
	mux.Handle("POST /admin/coupons", requireAdmin(http.HandlerFunc(h.Create)))
}

type redeemRequest struct {
	Code string `json:"code"`
}

type redeemResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Plan      string    `json:"plan"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Redeem applies a coupon to the caller's subscription.
func (h *CouponHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	const op = "CouponHandler.Redeem"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req redeemRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if domain.NormalizeCouponCode(req.Code) == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Coupon code is required"))
		return
	}

	result, err := h.coupons.Redeem(r.Context(), user.ID, req.Code)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeOK(w, redeemResponse{
		Success:   true,
		Message:   fmt.Sprintf("Coupon applied. Your %s plan is active until %s.", result.Plan, result.ExpiresAt.Format("2006-01-02")),
		Plan:      string(result.Plan),
		ExpiresAt: result.ExpiresAt,
	})
}

type createCouponRequest struct {
	Code         string `json:"code"`
	Plan         string `json:"plan"`
	DurationDays int    `json:"durationDays"`
}

// Create issues a coupon. A code is generated when none is given.
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "CouponHandler.Create"

	admin, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req createCouponRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	plan, err := domain.ParsePlan(req.Plan)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "plan", "must be pro or expert"))
		return
	}

	coupon, err := h.coupons.Create(r.Context(), domain.CreateCouponParams{
		Code:         req.Code,
		Plan:         plan,
		DurationDays: req.DurationDays,
		CreatedBy:    admin.ID,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"coupon": toCouponResponse(coupon)})
}

// List returns coupons, newest first.
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	coupons, err := h.coupons.List(r.Context(), limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]couponResponse, 0, len(coupons))
	for i := range coupons {
		out = append(out, toCouponResponse(&coupons[i]))
	}
	writeOK(w, map[string]any{"coupons": out})
}
