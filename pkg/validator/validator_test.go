package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when all rules pass", func(t *testing.T) {
		t.Parallel()

		err := validator.Apply(
			validator.RequiredString("username", "alice"),
			validator.ValidEmail("email", "alice@example.com"),
		)
		assert.NoError(t, err)
	})

	t.Run("accumulates failures per field", func(t *testing.T) {
		t.Parallel()

		err := validator.Apply(
			validator.RequiredString("username", "  "),
			validator.ValidEmail("email", "nope"),
		)
		require.Error(t, err)
		require.True(t, validator.IsValidationError(err))

		ve := err.(validator.ValidationErrors)
		assert.Len(t, ve, 2)
		assert.True(t, ve.Has("username"))
		assert.True(t, ve.Has("email"))
	})
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		email string
		valid bool
	}{
		{"simple address", "user@example.com", true},
		{"plus addressing", "user+tag@example.com", true},
		{"empty", "", false},
		{"no at sign", "userexample.com", false},
		{"missing local part", "@example.com", false},
		{"domain without dot", "user@localhost", false},
		{"domain trailing dot", "user@example.com.", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := validator.Apply(validator.ValidEmail("email", tc.email))
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidUsername(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		username string
		valid    bool
	}{
		{"simple", "alice", true},
		{"with separators", "alice.b-c_d", true},
		{"too short", "ab", false},
		{"uppercase rejected", "Alice", false},
		{"leading separator", "_alice", false},
		{"spaces rejected", "al ice", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := validator.Apply(validator.ValidUsername("username", tc.username))
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStrongPassword(t *testing.T) {
	t.Parallel()

	cfg := validator.PasswordStrengthConfig{MinLength: 8, MaxLength: 128, MinCharClasses: 2}

	testCases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"letters and digits", "secret123", true},
		{"mixed case", "SecretPass", true},
		{"too short", "Ab1", false},
		{"single class", "alllowercase", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := validator.Apply(validator.StrongPassword("password", tc.password, cfg))
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
