package users_test

import (
	"context"
	"testing"
	"time"

	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Walks an account through its whole lifecycle against the in-memory
// store: register, sign in, verify the bearer token, patch, delete.
func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig{
		signingKey: "integration-key",
		issuer:     "integration-issuer",
		timezone:   "UTC",
		minAge:     18,
	}
	repo := newMemoryRepo()
	tokens := users.NewTokenProvider([]byte(cfg.signingKey), cfg.issuer, time.UTC, testLogger{})
	svc := users.NewService(repo, tokens, cfg).WithLogger(testLogger{})

	// Register.
	created, err := svc.Create(ctx, &users.User{
		FirstName: "First",
		LastName:  "Last",
		Username:  "first",
		Email:     "first@example.com",
		BirthDate: time.Date(2000, 11, 11, 0, 0, 0, 0, time.UTC),
	}, "password")
	require.NoError(t, err)

	// Sign in and verify the issued token round trips.
	token, err := svc.SignIn(ctx, "first", "password")
	require.NoError(t, err)

	decoded, err := tokens.Decode(token.Raw)
	require.NoError(t, err)
	assert.Equal(t, "first", decoded.Subject)

	// The subject resolves back to the account, the way the self
	// endpoints do it.
	account, err := svc.FindByUsername(ctx, decoded.Subject)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, created.ID, account.ID)

	// Sparse update: address only, everything else untouched.
	update := users.UserUpdate{Address: strptr("1 New Place")}
	merged := update.Apply(*account)
	updated, err := svc.Update(ctx, &merged, update.PlainPassword())
	require.NoError(t, err)
	assert.Equal(t, "1 New Place", updated.Address)
	assert.Equal(t, account.PasswordHash, updated.PasswordHash)

	// The old password still signs in after the sparse update.
	_, err = svc.SignIn(ctx, "first", "password")
	require.NoError(t, err)

	// Delete, then the account is gone and its credentials are dead.
	require.NoError(t, svc.DeleteByUsername(ctx, "first"))

	gone, err := svc.FindByUsername(ctx, "first")
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = svc.SignIn(ctx, "first", "password")
	require.Error(t, err)
	assert.True(t, users.IsInvalidCredentials(err))
}
