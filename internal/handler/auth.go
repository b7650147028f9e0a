// Package handler contains the JSON HTTP handlers for the advisor API.
//
// Handlers decode requests, call a service and render either a JSON body or
// an ErrorResponse. Each handler type registers its own routes.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/service"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/session"
)

// AuthHandler handles registration and session HTTP requests.
//
// Routes handled:
// - POST /auth/register -> Register
// - POST /auth/login    -> Login
// - POST /auth/logout   -> Logout
// - GET  /auth/me       -> Me
type AuthHandler struct {
	userService service.UserService
	logger      *slog.Logger
	isSecure    bool // Whether to set Secure flag on cookies (true in production)
	now         func() time.Time
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService service.UserService, logger *slog.Logger, isSecure bool) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
		isSecure:    isSecure,
		now:         time.Now,
	}
}

// RegisterRoutes registers auth routes. limitLogin guards the credential
// check against brute force.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, requireUser, limitLogin func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.Handle("POST /auth/login", limitLogin(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.Handle("GET /auth/me", requireUser(http.HandlerFunc(h.Me)))
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
}

// Register creates an account with a free subscription.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "AuthHandler.Register"

	var req registerRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": toUserResponse(user)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Login verifies credentials, sets the session cookie and also returns the
// token for clients that send it as a bearer header.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "AuthHandler.Login"

	var req loginRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Email and password are required"))
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session.SetCookie(w, result.Token, result.ExpiresAt.Sub(h.now()), h.isSecure)
	writeOK(w, loginResponse{
		User:      toUserResponse(result.User),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout deletes the session. It succeeds for anonymous callers too.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := session.TokenFromRequest(r); token != "" {
		if err := h.userService.Logout(r.Context(), token); err != nil {
			// The cookie is cleared regardless; a dangling row expires on its own
			h.logger.Error("failed to delete session", "error", err)
		}
	}
	session.ClearCookie(w, h.isSecure)
	writeOK(w, map[string]bool{"success": true})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, "AuthHandler.Me")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, map[string]any{"user": toUserResponse(user)})
}
