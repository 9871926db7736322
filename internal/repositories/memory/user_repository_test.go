package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(id, email string) domain.User {
	now := time.Now().UTC()
	return domain.User{
		UserID: id, Email: email, FirstName: "Test", LastName: "User",
		Role: domain.RoleUser, Status: domain.StatusActive, CreatedAt: now, UpdatedAt: now,
	}
}

func TestSaveUser_RejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	require.NoError(t, repo.SaveUser(ctx, newUser("u-1", "ada@example.com")))

	err := repo.SaveUser(ctx, newUser("u-2", "ada@example.com"))
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	_, err = repo.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConsumeRefreshToken_SingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	require.NoError(t, repo.SaveUser(ctx, newUser("u-1", "ada@example.com")))
	require.NoError(t, repo.AddRefreshToken(ctx, "u-1", "hash-1", time.Now().Add(time.Hour)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ConsumeRefreshToken(ctx, "u-1", "hash-1")
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Zero(t, repo.RefreshTokenCount("u-1"))
}

func TestLinkProvider_NeverOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	require.NoError(t, repo.SaveUser(ctx, newUser("u-1", "ada@example.com")))

	ok, err := repo.LinkProvider(ctx, "u-1", domain.ProviderGoogle, "g-1", true, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.LinkProvider(ctx, "u-1", domain.ProviderGoogle, "g-1", true, nil)
	require.NoError(t, err)
	assert.True(t, ok, "relinking the same id is a no-op")

	ok, err = repo.LinkProvider(ctx, "u-1", domain.ProviderGoogle, "g-2", true, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	user, err := repo.FindUserByProviderID(ctx, domain.ProviderGoogle, "g-1")
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
}
