// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/notify"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// This should NOT be configurable at runtime to prevent accidental
	// weakening.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// The token is hex-encoded to 64 characters for storage/transmission.
	SessionTokenBytes = 32

	// DefaultSessionDuration is used when no duration is configured.
	DefaultSessionDuration = 24 * time.Hour

	// MinSessionDuration and MaxSessionDuration bound configured durations.
	MinSessionDuration = 15 * time.Minute
	MaxSessionDuration = 30 * 24 * time.Hour

	// MinPasswordLength is the minimum password length (NIST SP 800-63B).
	MinPasswordLength = 8

	// MaxPasswordLength matches the bcrypt input limit.
	MaxPasswordLength = 72

	// ErrMsgInvalidCredentials is shared by every login failure so responses
	// do not reveal whether the email exists.
	ErrMsgInvalidCredentials = "Invalid email or password"

	// ErrMsgInvalidSession is shared by every session lookup failure.
	ErrMsgInvalidSession = "Invalid or expired session"
)

// commonPasswords are rejected regardless of other rules (compared lowercased).
var commonPasswords = []string{
	"password1", "password123", "qwerty123", "letmein1", "welcome1",
	"admin123", "abc12345", "iloveyou1", "12345678a", "passw0rd",
}

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for account and session operations.
type UserService interface {
	// Register creates a new user account with a free subscription.
	// Returns domain.ECONFLICT if email already exists.
	// Returns domain.EINVALID for validation errors.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token.
	// This is idempotent - calling with an invalid token is not an error.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by their ID.
	// Returns domain.ENOTFOUND if user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken retrieves a user by their session token.
	// Returns domain.EUNAUTHORIZED if token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// DeleteExpiredSessions removes all expired sessions and returns how
	// many were deleted.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

// UserServiceConfig holds tunables for the user service.
type UserServiceConfig struct {
	SessionDuration time.Duration
	AdminEmails     []string // Lowercased; matching registrations get the admin role
}

type userService struct {
	store           repository.Store
	notifier        notify.Notifier
	sessionDuration time.Duration
	adminEmails     []string
	logger          *slog.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(store repository.Store, notifier notify.Notifier, cfg UserServiceConfig, logger *slog.Logger) UserService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	admins := make([]string, 0, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		admins = append(admins, strings.ToLower(strings.TrimSpace(e)))
	}
	return &userService{
		store:           store,
		notifier:        notifier,
		sessionDuration: normalizeSessionDuration(cfg.SessionDuration),
		adminEmails:     admins,
		logger:          logger,
	}
}

// normalizeSessionDuration applies the default and clamps to the allowed range.
func normalizeSessionDuration(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultSessionDuration
	case d < MinSessionDuration:
		return MinSessionDuration
	case d > MaxSessionDuration:
		return MaxSessionDuration
	}
	return d
}

// =============================================================================
// Register Implementation
// =============================================================================

// Register creates a new user account with the provided parameters.
//
// Flow:
// 1. Validate input parameters (email format, password strength)
// 2. Check if email already exists
// 3. Hash the password with bcrypt
// 4. In one transaction: create the user and its free subscription
//
// The password is hashed even when the email is taken so both paths take
// about the same time.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)
	params.CompanyName = strings.TrimSpace(params.CompanyName)

	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid email address")
	}
	if params.Name == "" {
		return nil, domain.Invalid(op, "Name is required")
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}

	_, err := s.store.GetUserByEmail(ctx, params.Email)
	if err == nil {
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email already registered")
	}
	if !repository.IsNotFound(err) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	role := domain.RoleUser
	if slices.Contains(s.adminEmails, params.Email) {
		role = domain.RoleAdmin
	}

	var created repository.User
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		u, err := q.CreateUser(ctx, repository.CreateUserParams{
			Email:        params.Email,
			PasswordHash: string(passwordHash),
			Name:         params.Name,
			CompanyName:  domain.ToNullString(params.CompanyName),
			Role:         string(role),
		})
		if err != nil {
			if repository.IsUniqueViolation(err) {
				return domain.Conflict(op, "Email already registered")
			}
			return domain.Internal(err, op, "Failed to create user")
		}

		if _, err := q.CreateSubscription(ctx, repository.CreateSubscriptionParams{
			UserID: u.ID,
			Plan:   string(domain.PlanFree),
			Status: string(domain.SubscriptionStatusActive),
		}); err != nil {
			return domain.Internal(err, op, "Failed to create subscription")
		}

		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	user := repoUserToDomain(created)
	user.PasswordHash = ""

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	sendNotification(ctx, s.notifier, s.logger, notify.Message{
		Event: notify.EventUserRegistered,
		Title: "New user",
		Fields: []notify.Field{
			notify.F("email", user.Email),
			notify.F("company", user.CompanyName),
		},
	})

	return user, nil
}

// =============================================================================
// Login Implementation
// =============================================================================

// Login authenticates a user and creates a new session.
//
// Only the SHA-256 hash of the session token is stored; the raw token is
// returned once to be set as a cookie.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))

	repoUser, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			// Keep the timing of unknown emails close to wrong passwords
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, ErrMsgInvalidCredentials)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, ErrMsgInvalidCredentials)
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	expiresAt := time.Now().Add(s.sessionDuration)
	_, err = s.store.CreateSession(ctx, repository.CreateSessionParams{
		UserID:    repoUser.ID,
		TokenHash: hashSessionToken(token),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	s.logger.Info("user logged in", "user_id", user.ID)

	return &domain.LoginResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Logout invalidates a session.
func (s *userService) Logout(ctx context.Context, token string) error {
	if len(token) != SessionTokenBytes*2 {
		return nil
	}

	if err := s.store.DeleteSessionByTokenHash(ctx, hashSessionToken(token)); err != nil {
		s.logger.Warn("failed to delete session", "error", err)
	}

	s.logger.Debug("session invalidated")
	return nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	repoUser, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

// GetBySessionToken retrieves a user by their session token.
// Expired sessions are filtered by the query itself.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	if len(token) != SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, ErrMsgInvalidSession)
	}

	session, err := s.store.GetSessionByTokenHash(ctx, hashSessionToken(token))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.Unauthorized(op, ErrMsgInvalidSession)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}

	repoUser, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.Unauthorized(op, ErrMsgInvalidSession)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const op = "UserService.DeleteExpiredSessions"

	n, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to delete expired sessions")
	}
	if n > 0 {
		s.logger.Info("expired sessions deleted", "count", n)
	}
	return n, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// generateSessionToken creates a 64-character hex token from crypto/rand.
func generateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashSessionToken creates a SHA-256 hash of a session token.
//
// Session tokens are high-entropy random values, so SHA-256 is sufficient
// and fast enough for per-request validation.
func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// validateEmail validates an email address format.
func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("", "Email is required")
	}
	if len(email) > 254 {
		return domain.Invalid("", "Email must be 254 characters or less")
	}

	at := strings.Index(email, "@")
	if at < 0 || strings.Count(email, "@") != 1 {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}
	if at == 0 {
		return domain.Invalid("", "Email cannot start with @")
	}
	if at == len(email)-1 {
		return domain.Invalid("", "Email cannot end with @")
	}
	if !strings.Contains(email[at+1:], ".") {
		return domain.Invalid("", "Email domain must contain a dot")
	}
	if strings.Contains(email, "..") {
		return domain.Invalid("", "Email cannot contain consecutive dots")
	}
	return nil
}

// validatePassword validates password strength requirements.
//
// Rules:
// - 8 to 72 characters
// - at least one letter and one number
// - not a well-known password
func validatePassword(password string) error {
	const op = "validatePassword"

	if len(password) < MinPasswordLength {
		return domain.Invalid(op, "Password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.Invalid(op, "Password must be 72 characters or less")
	}

	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasNumber = true
		}
	}
	if !hasLetter {
		return domain.Invalid(op, "Password must contain at least one letter")
	}
	if !hasNumber {
		return domain.Invalid(op, "Password must contain at least one number")
	}

	if slices.Contains(commonPasswords, strings.ToLower(password)) {
		return domain.Invalid(op, "Password is too common. Please choose another.")
	}
	return nil
}

var _ UserService = (*userService)(nil)
