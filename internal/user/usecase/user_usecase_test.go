package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/urbanfleet/fleetcore/internal/authz"
	"github.com/urbanfleet/fleetcore/internal/database/mocks"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/user/domain"
	"github.com/urbanfleet/fleetcore/internal/user/service"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.UserAccount) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.UserAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserAccount), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserAccount), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.UserAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UserAccount), args.Error(1)
}

func (m *MockUserRepository) ExistsUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id int64, firstName, lastName string) (bool, error) {
	args := m.Called(ctx, id, firstName, lastName)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (bool, error) {
	args := m.Called(ctx, id, passwordHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// RecordingAuditRecorder captures audit calls for assertions.
type RecordingAuditRecorder struct {
	Activities []string
	Suspicions []string
}

func (r *RecordingAuditRecorder) Activity(_ context.Context, _, description, _ string) {
	r.Activities = append(r.Activities, description)
}

func (r *RecordingAuditRecorder) Suspicious(_ context.Context, _, description, _ string) {
	r.Suspicions = append(r.Suspicions, description)
}

var (
	ownerActor    = authz.Actor{Username: domain.OwnerUsername, Role: authz.RoleOwner}
	adminActor    = authz.Actor{Username: "admin_one", Role: authz.RoleAdministrator}
	operatorActor = authz.Actor{Username: "oper_one1", Role: authz.RoleOperator}
)

func setupUseCase(t *testing.T) (*MockUserRepository, *RecordingAuditRecorder, UseCase) {
	t.Helper()
	repo := new(MockUserRepository)
	audit := &RecordingAuditRecorder{}
	uc := NewUserUseCase(mocks.NewMockTxManager(t), repo, service.NewCredentialService(), audit)
	return repo, audit, uc
}

func validCreateInput(role authz.Role) CreateUserInput {
	return CreateUserInput{
		Username:  "new_staff1",
		Password:  "Sterk&Veilig12",
		Role:      role,
		FirstName: "Anna",
		LastName:  "Bakker",
	}
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("owner creates administrator", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		repo.On("ExistsUsername", mock.Anything, "new_staff1").Return(false, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		user, err := uc.CreateUser(ctx, ownerActor, validCreateInput(authz.RoleAdministrator))
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, "new_staff1", user.Username)
		assert.Equal(t, authz.RoleAdministrator, user.Role)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "Sterk&Veilig12", user.PasswordHash)
		assert.Contains(t, audit.Activities, "created administrator account")
		repo.AssertExpectations(t)
	})

	t.Run("administrator creates operator", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		repo.On("ExistsUsername", mock.Anything, "new_staff1").Return(false, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		user, err := uc.CreateUser(ctx, adminActor, validCreateInput(authz.RoleOperator))
		require.NoError(t, err)
		assert.Equal(t, authz.RoleOperator, user.Role)
	})

	t.Run("administrator cannot create administrator", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)

		_, err := uc.CreateUser(ctx, adminActor, validCreateInput(authz.RoleAdministrator))
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, audit.Suspicions, "denied account creation")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("operator cannot create accounts", func(t *testing.T) {
		_, _, uc := setupUseCase(t)

		_, err := uc.CreateUser(ctx, operatorActor, validCreateInput(authz.RoleOperator))
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, _, uc := setupUseCase(t)

		input := validCreateInput(authz.Role("superuser"))
		_, err := uc.CreateUser(ctx, ownerActor, input)
		assert.ErrorIs(t, err, domain.ErrInvalidRole)
	})

	t.Run("reserved username", func(t *testing.T) {
		_, _, uc := setupUseCase(t)

		input := validCreateInput(authz.RoleAdministrator)
		input.Username = domain.OwnerUsername
		_, err := uc.CreateUser(ctx, ownerActor, input)
		assert.ErrorIs(t, err, domain.ErrReservedUsername)
	})

	t.Run("invalid username", func(t *testing.T) {
		_, audit, uc := setupUseCase(t)

		input := validCreateInput(authz.RoleOperator)
		input.Username = "ab"
		_, err := uc.CreateUser(ctx, ownerActor, input)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, audit.Suspicions, "rejected account creation")
	})

	t.Run("weak password", func(t *testing.T) {
		_, _, uc := setupUseCase(t)

		input := validCreateInput(authz.RoleOperator)
		input.Password = "alllowercase"
		_, err := uc.CreateUser(ctx, ownerActor, input)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("duplicate username", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		repo.On("ExistsUsername", mock.Anything, "new_staff1").Return(true, nil)

		_, err := uc.CreateUser(ctx, ownerActor, validCreateInput(authz.RoleOperator))
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
		assert.Contains(t, audit.Suspicions, "rejected account creation")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	stored := &domain.UserAccount{
		ID: 7, Username: "oper_one1", Role: authz.RoleOperator, PasswordHash: "hash",
	}

	t.Run("operator reads own account", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		repo.On("GetByID", mock.Anything, int64(7)).Return(stored, nil)

		user, err := uc.GetUser(ctx, operatorActor, 7)
		require.NoError(t, err)
		assert.Equal(t, "oper_one1", user.Username)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("operator cannot read other accounts", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		other := &domain.UserAccount{ID: 8, Username: "oper_two1", Role: authz.RoleOperator}
		repo.On("GetByID", mock.Anything, int64(8)).Return(other, nil)

		_, err := uc.GetUser(ctx, operatorActor, 8)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, audit.Suspicions, "denied account lookup")
	})

	t.Run("not found", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		repo.On("GetByID", mock.Anything, int64(99)).Return(nil, domain.ErrUserNotFound)

		_, err := uc.GetUser(ctx, ownerActor, 99)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("credentials are stripped", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		repo.On("List", mock.Anything).Return([]*domain.UserAccount{
			{ID: 1, Username: "admin_one", Role: authz.RoleAdministrator, PasswordHash: "hash"},
		}, nil)

		users, err := uc.ListUsers(ctx, ownerActor)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Empty(t, users[0].PasswordHash)
	})

	t.Run("operator denied and flagged", func(t *testing.T) {
		_, audit, uc := setupUseCase(t)

		_, err := uc.ListUsers(ctx, operatorActor)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, audit.Suspicions, "denied account listing")
	})
}

func TestSearchUsers(t *testing.T) {
	ctx := context.Background()
	accounts := []*domain.UserAccount{
		{ID: 1, Username: "admin_one", FirstName: "Anna", LastName: "Bakker", Role: authz.RoleAdministrator},
		{ID: 2, Username: "oper_one1", FirstName: "Bram", LastName: "Visser", Role: authz.RoleOperator},
		{ID: 3, Username: "user_3", Corrupted: true, Role: authz.RoleOperator},
	}

	t.Run("matches username and name", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		repo.On("List", mock.Anything).Return(accounts, nil)

		matches, err := uc.SearchUsers(ctx, ownerActor, "anna")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "admin_one", matches[0].Username)
	})

	t.Run("corrupted records are skipped", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		repo.On("List", mock.Anything).Return(accounts, nil)

		matches, err := uc.SearchUsers(ctx, ownerActor, "user_3")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("query too short", func(t *testing.T) {
		_, _, uc := setupUseCase(t)

		_, err := uc.SearchUsers(ctx, ownerActor, "a")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	input := UpdateProfileInput{UserID: 7, FirstName: "Bram", LastName: "Visser"}
	stored := &domain.UserAccount{ID: 7, Username: "oper_one1", Role: authz.RoleOperator}

	t.Run("operator updates own profile", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		repo.On("GetByID", mock.Anything, int64(7)).Return(stored, nil)
		repo.On("UpdateProfile", mock.Anything, int64(7), "Bram", "Visser").Return(true, nil)

		require.NoError(t, uc.UpdateProfile(ctx, operatorActor, input))
		assert.Contains(t, audit.Activities, "updated profile")
	})

	t.Run("operator cannot update others", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		other := &domain.UserAccount{ID: 8, Username: "oper_two1", Role: authz.RoleOperator}
		repo.On("GetByID", mock.Anything, int64(8)).Return(other, nil)

		err := uc.UpdateProfile(ctx, operatorActor, UpdateProfileInput{UserID: 8, FirstName: "X", LastName: "Y"})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, audit.Suspicions, "denied profile update")
	})

	t.Run("invalid name", func(t *testing.T) {
		_, _, uc := setupUseCase(t)

		err := uc.UpdateProfile(ctx, operatorActor, UpdateProfileInput{UserID: 7, FirstName: "", LastName: "Visser"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	stored := &domain.UserAccount{ID: 4, Username: "admin_one", Role: authz.RoleAdministrator}

	t.Run("owner resets administrator password", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		repo.On("GetByID", mock.Anything, int64(4)).Return(stored, nil)
		repo.On("UpdatePassword", mock.Anything, int64(4), mock.AnythingOfType("string")).Return(true, nil)

		err := uc.ResetPassword(ctx, ownerActor, ResetPasswordInput{UserID: 4, NewPassword: "Nieuw&Wachtw0rd"})
		require.NoError(t, err)
		assert.Contains(t, audit.Activities, "reset password")
	})

	t.Run("operator cannot reset others", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		repo.On("GetByID", mock.Anything, int64(4)).Return(stored, nil)

		err := uc.ResetPassword(ctx, operatorActor, ResetPasswordInput{UserID: 4, NewPassword: "Nieuw&Wachtw0rd"})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("weak password rejected", func(t *testing.T) {
		_, _, uc := setupUseCase(t)

		err := uc.ResetPassword(ctx, ownerActor, ResetPasswordInput{UserID: 4, NewPassword: "short"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("administrator deletes operator", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		target := &domain.UserAccount{ID: 9, Username: "oper_one1", Role: authz.RoleOperator}
		repo.On("GetByID", mock.Anything, int64(9)).Return(target, nil)
		repo.On("Delete", mock.Anything, int64(9)).Return(true, nil)

		require.NoError(t, uc.DeleteUser(ctx, adminActor, 9))
		assert.Contains(t, audit.Activities, "deleted operator account")
	})

	t.Run("administrator cannot delete administrator", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		target := &domain.UserAccount{ID: 5, Username: "admin_two", Role: authz.RoleAdministrator}
		repo.On("GetByID", mock.Anything, int64(5)).Return(target, nil)

		err := uc.DeleteUser(ctx, adminActor, 5)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("self deletion is refused and flagged", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		target := &domain.UserAccount{ID: 4, Username: "admin_one", Role: authz.RoleAdministrator}
		repo.On("GetByID", mock.Anything, int64(4)).Return(target, nil)

		err := uc.DeleteUser(ctx, adminActor, 4)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, audit.Suspicions, "denied account deletion")
	})
}
