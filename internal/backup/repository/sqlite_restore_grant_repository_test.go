package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanfleet/fleetcore/internal/backup/domain"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/testutil"
)

func setupRepository(t *testing.T) (*SQLiteRestoreGrantRepository, *sql.DB) {
	t.Helper()
	db := testutil.SetupDB(t)
	return NewSQLiteRestoreGrantRepository(db, testutil.SetupCodec(t)), db
}

func newGrant(repo *SQLiteRestoreGrantRepository, code string) *domain.RestoreGrant {
	return &domain.RestoreGrant{
		Code:               code,
		AdminUsernameToken: repo.AdminToken("admin_one"),
		BackupRef:          "20240101T000000Z-abc",
	}
}

func TestRestoreGrantRepositoryCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo, _ := setupRepository(t)

		grant := newGrant(repo, "code-one")
		require.NoError(t, repo.Create(ctx, grant))
		assert.NotZero(t, grant.ID)

		got, err := repo.GetByCode(ctx, "code-one")
		require.NoError(t, err)
		assert.Equal(t, grant.ID, got.ID)
		assert.Equal(t, repo.AdminToken("admin_one"), got.AdminUsernameToken)
		assert.Equal(t, grant.BackupRef, got.BackupRef)
		assert.False(t, got.Used)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		repo, _ := setupRepository(t)

		require.NoError(t, repo.Create(ctx, newGrant(repo, "code-one")))
		err := repo.Create(ctx, newGrant(repo, "code-one"))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("unknown code", func(t *testing.T) {
		repo, _ := setupRepository(t)

		_, err := repo.GetByCode(ctx, "no-such-code")
		assert.ErrorIs(t, err, domain.ErrGrantNotFound)
	})
}

func TestRestoreGrantRepositoryAdminToken(t *testing.T) {
	repo, _ := setupRepository(t)

	// Deterministic and case-insensitive, so identity matching survives
	// however the username was typed.
	assert.Equal(t, repo.AdminToken("admin_one"), repo.AdminToken("  Admin_One  "))
	assert.NotEqual(t, repo.AdminToken("admin_one"), repo.AdminToken("admin_two"))
}

func TestRestoreGrantRepositoryConsume(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	require.NoError(t, repo.Create(ctx, newGrant(repo, "code-one")))

	consumed, err := repo.Consume(ctx, "code-one")
	require.NoError(t, err)
	assert.True(t, consumed)

	got, err := repo.GetByCode(ctx, "code-one")
	require.NoError(t, err)
	assert.True(t, got.Used)

	// Second consumption loses the used = 0 guard.
	consumed, err = repo.Consume(ctx, "code-one")
	require.NoError(t, err)
	assert.False(t, consumed)

	consumed, err = repo.Consume(ctx, "no-such-code")
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestRestoreGrantRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	require.NoError(t, repo.Create(ctx, newGrant(repo, "code-one")))

	removed, err := repo.DeleteByCode(ctx, "code-one")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.DeleteByCode(ctx, "code-one")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRestoreGrantRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	grants, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, grants)

	require.NoError(t, repo.Create(ctx, newGrant(repo, "code-one")))
	require.NoError(t, repo.Create(ctx, newGrant(repo, "code-two")))

	grants, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "code-two", grants[0].Code)
	assert.Equal(t, "code-one", grants[1].Code)
}
