package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanfleet/fleetcore/internal/authz"
	"github.com/urbanfleet/fleetcore/internal/testutil"
	"github.com/urbanfleet/fleetcore/internal/user/domain"
)

func newUser(username string, role authz.Role) *domain.UserAccount {
	return &domain.UserAccount{
		Username:     username,
		Role:         role,
		FirstName:    "Jane",
		LastName:     "Jansen",
		PasswordHash: "argon2id-hash",
	}
}

func TestSQLiteUserRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	codec := testutil.SetupCodec(t)
	repo := NewSQLiteUserRepository(db, codec)

	t.Run("Create sets id and stores no plaintext", func(t *testing.T) {
		user := newUser("mendes_01", authz.RoleAdministrator)
		require.NoError(t, repo.Create(ctx, user))
		assert.Greater(t, user.ID, int64(0))

		var usernameToken, usernameCipher string
		err := db.QueryRow(`SELECT username_token, username_cipher FROM users WHERE id = ?`, user.ID).
			Scan(&usernameToken, &usernameCipher)
		require.NoError(t, err)
		assert.NotEqual(t, "mendes_01", usernameToken)
		assert.NotEqual(t, "mendes_01", usernameCipher)
	})

	t.Run("Create duplicate username", func(t *testing.T) {
		user := newUser("dupname_1", authz.RoleOperator)
		require.NoError(t, repo.Create(ctx, user))

		err := repo.Create(ctx, newUser("dupname_1", authz.RoleOperator))
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})

	t.Run("GetByID round trip", func(t *testing.T) {
		user := newUser("getbyid_1", authz.RoleOperator)
		require.NoError(t, repo.Create(ctx, user))

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "getbyid_1", got.Username)
		assert.Equal(t, authz.RoleOperator, got.Role)
		assert.Equal(t, "Jane", got.FirstName)
		assert.Equal(t, "Jansen", got.LastName)
		assert.False(t, got.Corrupted)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("GetByID not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99999)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("GetByUsername includes password hash", func(t *testing.T) {
		user := newUser("byname_01", authz.RoleAdministrator)
		require.NoError(t, repo.Create(ctx, user))

		got, err := repo.GetByUsername(ctx, "byname_01")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "argon2id-hash", got.PasswordHash)
	})

	t.Run("GetByUsername not found", func(t *testing.T) {
		_, err := repo.GetByUsername(ctx, "no_such_1")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("ExistsUsername", func(t *testing.T) {
		user := newUser("exists_01", authz.RoleOperator)
		require.NoError(t, repo.Create(ctx, user))

		exists, err := repo.ExistsUsername(ctx, "exists_01")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsUsername(ctx, "missing_1")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("UpdateProfile", func(t *testing.T) {
		user := newUser("profile_1", authz.RoleOperator)
		require.NoError(t, repo.Create(ctx, user))

		updated, err := repo.UpdateProfile(ctx, user.ID, "Piet", "de Vries")
		require.NoError(t, err)
		assert.True(t, updated)

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Piet", got.FirstName)
		assert.Equal(t, "de Vries", got.LastName)

		updated, err = repo.UpdateProfile(ctx, 99999, "x", "y")
		require.NoError(t, err)
		assert.False(t, updated)
	})

	t.Run("UpdatePassword", func(t *testing.T) {
		user := newUser("passwd_01", authz.RoleOperator)
		require.NoError(t, repo.Create(ctx, user))

		updated, err := repo.UpdatePassword(ctx, user.ID, "new-hash")
		require.NoError(t, err)
		assert.True(t, updated)

		got, err := repo.GetByUsername(ctx, "passwd_01")
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		user := newUser("delete_01", authz.RoleOperator)
		require.NoError(t, repo.Create(ctx, user))

		deleted, err := repo.Delete(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestSQLiteUserRepositoryList(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	codec := testutil.SetupCodec(t)
	repo := NewSQLiteUserRepository(db, codec)

	require.NoError(t, repo.Create(ctx, newUser("lista_001", authz.RoleAdministrator)))
	require.NoError(t, repo.Create(ctx, newUser("listb_001", authz.RoleOperator)))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "lista_001", users[0].Username)
	assert.Equal(t, "listb_001", users[1].Username)
}

func TestSQLiteUserRepositoryCorruptedRecord(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	codec := testutil.SetupCodec(t)
	repo := NewSQLiteUserRepository(db, codec)

	user := newUser("corrupt_1", authz.RoleOperator)
	require.NoError(t, repo.Create(ctx, user))

	// Damage the stored ciphertext directly.
	_, err := db.Exec(`UPDATE users SET username_cipher = 'bm90LWEtY2lwaGVydGV4dA==' WHERE id = ?`, user.ID)
	require.NoError(t, err)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].Corrupted)
	assert.Equal(t, "user_1", users[0].Username)
	assert.Equal(t, "Jane", users[0].FirstName)
}

func TestSQLiteUserRepositoryClosedDB(t *testing.T) {
	db := testutil.SetupDB(t)
	codec := testutil.SetupCodec(t)
	repo := NewSQLiteUserRepository(db, codec)
	require.NoError(t, db.Close())

	_, err := repo.List(context.Background())
	assert.Error(t, err)
}
