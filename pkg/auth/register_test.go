package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/token"
	"github.com/dmitrymomot/authkit/pkg/token/memory"
	"github.com/dmitrymomot/authkit/pkg/validator"
)

func newRegistrationFixture(t *testing.T, mailer auth.Mailer) (*auth.RegistrationService, *fakeStorage) {
	t.Helper()
	storage := newFakeStorage()
	tokens := token.NewService(memory.New())
	verification := auth.NewVerificationService(storage, tokens, mailer)
	svc := auth.NewRegistrationService(storage, verification, auth.WithBcryptCost(bcrypt.MinCost))
	return svc, storage
}

func TestRegistrationService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates unverified user and sends verification token", func(t *testing.T) {
		t.Parallel()

		mailer := &MockMailer{}
		mailer.On("SendVerificationEmail", mock.Anything, "alice@example.com", mock.AnythingOfType("string")).Return(nil)

		svc, storage := newRegistrationFixture(t, mailer)

		msg, err := svc.Register(context.Background(), auth.RegisterRequest{
			Username: "Alice",
			Email:    "Alice@Example.com",
			Password: "Sup3r-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, auth.MsgRegistered, msg)

		user, err := storage.GetUserByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.False(t, user.Verified)
		assert.Equal(t, auth.MethodCredentials, user.AuthMethod)
		assert.Equal(t, auth.DefaultRoleName, user.Role.Name)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Sup3r-secret")))

		mailer.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()

		mailer := &MockMailer{}
		mailer.On("SendVerificationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		svc, _ := newRegistrationFixture(t, mailer)

		_, err := svc.Register(context.Background(), auth.RegisterRequest{
			Username: "alice", Email: "alice@example.com", Password: "Sup3r-secret",
		})
		require.NoError(t, err)

		_, err = svc.Register(context.Background(), auth.RegisterRequest{
			Username: "alice2", Email: "alice@example.com", Password: "Sup3r-secret",
		})
		assert.ErrorIs(t, err, auth.ErrEmailExists)
	})

	t.Run("duplicate username", func(t *testing.T) {
		t.Parallel()

		mailer := &MockMailer{}
		mailer.On("SendVerificationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		svc, _ := newRegistrationFixture(t, mailer)

		_, err := svc.Register(context.Background(), auth.RegisterRequest{
			Username: "alice", Email: "alice@example.com", Password: "Sup3r-secret",
		})
		require.NoError(t, err)

		_, err = svc.Register(context.Background(), auth.RegisterRequest{
			Username: "alice", Email: "other@example.com", Password: "Sup3r-secret",
		})
		assert.ErrorIs(t, err, auth.ErrUsernameExists)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()

		svc, _ := newRegistrationFixture(t, &MockMailer{})

		testCases := []struct {
			name string
			req  auth.RegisterRequest
		}{
			{"bad email", auth.RegisterRequest{Username: "alice", Email: "not-an-email", Password: "Sup3r-secret"}},
			{"short username", auth.RegisterRequest{Username: "al", Email: "alice@example.com", Password: "Sup3r-secret"}},
			{"weak password", auth.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password"}},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.Register(context.Background(), tc.req)
				assert.True(t, validator.IsValidationError(err), "expected validation error, got %v", err)
			})
		}
	})

	t.Run("missing default role is an internal error", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		storage.role = nil
		tokens := token.NewService(memory.New())
		verification := auth.NewVerificationService(storage, tokens, &MockMailer{})
		svc := auth.NewRegistrationService(storage, verification, auth.WithBcryptCost(bcrypt.MinCost))

		_, err := svc.Register(context.Background(), auth.RegisterRequest{
			Username: "alice", Email: "alice@example.com", Password: "Sup3r-secret",
		})
		assert.ErrorIs(t, err, auth.ErrInternal)
	})

	t.Run("registration survives dispatch failure", func(t *testing.T) {
		t.Parallel()

		mailer := &MockMailer{}
		mailer.On("SendVerificationEmail", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp down"))

		svc, storage := newRegistrationFixture(t, mailer)

		msg, err := svc.Register(context.Background(), auth.RegisterRequest{
			Username: "alice", Email: "alice@example.com", Password: "Sup3r-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, auth.MsgRegistered, msg)

		_, err = storage.GetUserByEmail(context.Background(), "alice@example.com")
		assert.NoError(t, err)
	})
}
