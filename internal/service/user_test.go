package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/notify"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(store *fakeStore, notifier notify.Notifier, admins ...string) UserService {
	return NewUserService(store, notifier, UserServiceConfig{AdminEmails: admins}, discardLogger())
}

func validRegistration(email string) domain.RegisterParams {
	return domain.RegisterParams{
		Email:       email,
		Password:    "advisor2025",
		Name:        "Kim Minsu",
		CompanyName: "Hanbit Trading",
	}
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with free subscription", func(t *testing.T) {
		store := newFakeStore()
		notifier := &recordingNotifier{}
		svc := newTestUserService(store, notifier)

		user, err := svc.Register(ctx, validRegistration("  Owner@Example.COM "))
		require.NoError(t, err)
		assert.Equal(t, "owner@example.com", user.Email)
		assert.Equal(t, domain.RoleUser, user.Role)
		assert.Empty(t, user.PasswordHash)
		assert.Equal(t, "Hanbit Trading", user.CompanyName)

		sub, ok := store.sub(user.ID)
		require.True(t, ok)
		assert.Equal(t, "free", sub.Plan)
		assert.Equal(t, "active", sub.Status)

		assert.Equal(t, []notify.Event{notify.EventUserRegistered}, notifier.events())
	})

	t.Run("admin email gets admin role", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestUserService(store, nil, " Ops@Example.com ")

		user, err := svc.Register(ctx, validRegistration("ops@example.com"))
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, user.Role)
	})

	t.Run("duplicate email", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestUserService(store, nil)

		_, err := svc.Register(ctx, validRegistration("dup@example.com"))
		require.NoError(t, err)
		_, err = svc.Register(ctx, validRegistration("DUP@example.com"))
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	})

	t.Run("subscription failure rolls back user", func(t *testing.T) {
		store := newFakeStore()
		store.failOn["CreateSubscription"] = assert.AnError
		svc := newTestUserService(store, nil)

		_, err := svc.Register(ctx, validRegistration("rollback@example.com"))
		assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))

		_, err = store.GetUserByEmail(ctx, "rollback@example.com")
		assert.True(t, repository.IsNotFound(err))
	})

	invalid := []struct {
		name   string
		mutate func(*domain.RegisterParams)
	}{
		{"bad email", func(p *domain.RegisterParams) { p.Email = "not-an-email" }},
		{"missing name", func(p *domain.RegisterParams) { p.Name = "  " }},
		{"short password", func(p *domain.RegisterParams) { p.Password = "ab1" }},
		{"common password", func(p *domain.RegisterParams) { p.Password = "password123" }},
		{"long password", func(p *domain.RegisterParams) { p.Password = strings.Repeat("a1", 40) }},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			params := validRegistration("someone@example.com")
			tt.mutate(&params)

			_, err := newTestUserService(newFakeStore(), nil).Register(ctx, params)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}
}

func TestUserService_Sessions(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestUserService(store, nil)

	registered, err := svc.Register(ctx, validRegistration("session@example.com"))
	require.NoError(t, err)

	_, err = svc.Login(ctx, "session@example.com", "wrong-password1")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	_, err = svc.Login(ctx, "nobody@example.com", "advisor2025")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	assert.Equal(t, ErrMsgInvalidCredentials, domain.ErrorMessage(err))

	result, err := svc.Login(ctx, " SESSION@example.com", "advisor2025")
	require.NoError(t, err)
	assert.Len(t, result.Token, SessionTokenBytes*2)
	assert.Equal(t, registered.ID, result.User.ID)

	stored, ok := store.sessions[hashSessionToken(result.Token)]
	require.True(t, ok, "only the token hash is stored")
	assert.WithinDuration(t, time.Now().Add(DefaultSessionDuration), stored.ExpiresAt, time.Minute)

	user, err := svc.GetBySessionToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.GetBySessionToken(ctx, "short")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	require.NoError(t, svc.Logout(ctx, result.Token))
	_, err = svc.GetBySessionToken(ctx, result.Token)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	assert.NoError(t, svc.Logout(ctx, "garbage"))
}

func TestUserService_DeleteExpiredSessions(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestUserService(store, nil)
	userID := uuid.New()

	_, err := store.CreateSession(ctx, repository.CreateSessionParams{UserID: userID, TokenHash: "old", ExpiresAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, repository.CreateSessionParams{UserID: userID, TokenHash: "live", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	n, err := svc.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, store.sessions, "live")
}

func TestUserService_GetByID(t *testing.T) {
	store := newFakeStore()
	u := store.addUser("get@example.com", "user")
	svc := newTestUserService(store, nil)

	user, err := svc.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "get@example.com", user.Email)

	_, err = svc.GetByID(context.Background(), uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
