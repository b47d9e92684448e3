package identity

import (
	"errors"
	"testing"

	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("creates user with normalized email", func(t *testing.T) {
		user, err := NewUser("idp_1", "  Alice@Example.COM ", " Alice ", "Smith")

		require.NoError(t, err)
		assert.NotEqual(t, "", user.ID.String())
		assert.Equal(t, "idp_1", user.ExternalID)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "Alice", user.FirstName)
		assert.Equal(t, "Smith", user.LastName)
		assert.Nil(t, user.CRMContactID)
		assert.False(t, user.HasCRMContact())
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("allows missing names", func(t *testing.T) {
		user, err := NewUser("idp_1", "a@x.com", "", "")

		require.NoError(t, err)
		assert.Empty(t, user.FullName())
	})

	t.Run("fails with empty external ID", func(t *testing.T) {
		_, err := NewUser("  ", "a@x.com", "", "")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be empty")
	})

	t.Run("fails with invalid email", func(t *testing.T) {
		_, err := NewUser("idp_1", "not-an-email", "", "")

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_EMAIL", domainErr.Code)
	})
}

func TestUser_UpdateProfile(t *testing.T) {
	user, err := NewUser("idp_1", "a@x.com", "A", "")
	require.NoError(t, err)
	require.NoError(t, user.LinkCRMContact("501"))
	before := user.UpdatedAt

	err = user.UpdateProfile("B@x.com", "B", "Jones")

	require.NoError(t, err)
	assert.Equal(t, "b@x.com", user.Email)
	assert.Equal(t, "B", user.FirstName)
	assert.Equal(t, "Jones", user.LastName)
	assert.Equal(t, "501", user.ContactID())
	assert.False(t, user.UpdatedAt.Before(before))

	assert.Error(t, user.UpdateProfile("", "B", "Jones"))
}

func TestUser_LinkCRMContact(t *testing.T) {
	user, err := NewUser("idp_1", "a@x.com", "", "")
	require.NoError(t, err)

	assert.Error(t, user.LinkCRMContact(" "))
	assert.False(t, user.HasCRMContact())

	require.NoError(t, user.LinkCRMContact("12345"))
	assert.True(t, user.HasCRMContact())
	assert.Equal(t, "12345", user.ContactID())
}
