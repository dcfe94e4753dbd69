package usecase

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/urbanfleet/fleetcore/internal/audit/domain"
	"github.com/urbanfleet/fleetcore/internal/authz"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
)

// MockEntryRepository is a mock implementation of EntryRepository
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Create(ctx context.Context, e *domain.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEntryRepository) List(ctx context.Context) ([]*domain.Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Entry), args.Error(1)
}

func (m *MockEntryRepository) CountSuspicious(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEntryRepository) CountFailedLogins(ctx context.Context, username string, since time.Time) (int, error) {
	args := m.Called(ctx, username, since)
	return args.Int(0), args.Error(1)
}

// RecordingSuspiciousRecorder captures denial entries for assertions.
type RecordingSuspiciousRecorder struct {
	Suspicions []string
}

func (r *RecordingSuspiciousRecorder) Suspicious(_ context.Context, _, description, _ string) {
	r.Suspicions = append(r.Suspicions, description)
}

func TestRecorderBestEffort(t *testing.T) {
	ctx := context.Background()

	t.Run("storage failure is logged and swallowed", func(t *testing.T) {
		repo := new(MockEntryRepository)
		repo.On("Create", mock.Anything, mock.Anything).
			Return(apperrors.New("disk full"))

		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		recorder := NewRecorder(repo, logger)

		assert.NotPanics(t, func() {
			recorder.Activity(ctx, "admin_one", "registered vehicle", "serial=X")
		})
		assert.Contains(t, buf.String(), "failed to record audit entry")
	})

	t.Run("suspicious entries carry the flag", func(t *testing.T) {
		repo := new(MockEntryRepository)
		var captured *domain.Entry
		repo.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(*domain.Entry)
			}).
			Return(nil)

		recorder := NewRecorder(repo, slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)))
		recorder.Suspicious(ctx, "oper_one1", "denied vehicle deletion", "requires Administrator")

		require.NotNil(t, captured)
		assert.Equal(t, domain.KindSuspicious, captured.Kind)
		assert.True(t, captured.Suspicious)
		assert.Equal(t, "oper_one1", captured.Actor)
	})

	t.Run("login kinds", func(t *testing.T) {
		repo := new(MockEntryRepository)
		var kinds []string
		repo.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				kinds = append(kinds, args.Get(1).(*domain.Entry).Kind)
			}).
			Return(nil)

		recorder := NewRecorder(repo, slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)))
		recorder.LoginSuccess(ctx, "admin_one")
		recorder.LoginFailed(ctx, "admin_one", "wrong password")

		assert.Equal(t, []string{domain.KindLoginSuccess, domain.KindLoginFailed}, kinds)
	})
}

func TestListEntries(t *testing.T) {
	ctx := context.Background()
	adminActor := authz.Actor{Username: "admin_one", Role: authz.RoleAdministrator}
	operatorActor := authz.Actor{Username: "oper_one1", Role: authz.RoleOperator}

	t.Run("administrator may review the log", func(t *testing.T) {
		repo := new(MockEntryRepository)
		repo.On("List", mock.Anything).Return([]*domain.Entry{{ID: 1}}, nil)

		entries, err := NewAuditUseCase(repo, &RecordingSuspiciousRecorder{}).ListEntries(ctx, adminActor)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("operator denied and flagged", func(t *testing.T) {
		repo := new(MockEntryRepository)
		recorder := &RecordingSuspiciousRecorder{}

		_, err := NewAuditUseCase(repo, recorder).ListEntries(ctx, operatorActor)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, recorder.Suspicions, "denied audit log access")
		repo.AssertNotCalled(t, "List", mock.Anything)
	})
}

func TestDetectRepeatedFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("at threshold", func(t *testing.T) {
		repo := new(MockEntryRepository)
		repo.On("CountFailedLogins", mock.Anything, "admin_one", mock.Anything).Return(3, nil)

		detected, err := NewAuditUseCase(repo, &RecordingSuspiciousRecorder{}).DetectRepeatedFailures(ctx, "admin_one", 10*time.Minute, 3)
		require.NoError(t, err)
		assert.True(t, detected)
	})

	t.Run("below threshold", func(t *testing.T) {
		repo := new(MockEntryRepository)
		repo.On("CountFailedLogins", mock.Anything, "admin_one", mock.Anything).Return(2, nil)

		detected, err := NewAuditUseCase(repo, &RecordingSuspiciousRecorder{}).DetectRepeatedFailures(ctx, "admin_one", 10*time.Minute, 3)
		require.NoError(t, err)
		assert.False(t, detected)
	})
}

func TestVerifyIntegrity(t *testing.T) {
	ctx := context.Background()
	ownerActor := authz.Actor{Username: "owner_root", Role: authz.RoleOwner}

	repo := new(MockEntryRepository)
	repo.On("List", mock.Anything).Return([]*domain.Entry{
		{ID: 1, SignatureValid: true},
		{ID: 2, SignatureValid: false},
		{ID: 3, SignatureValid: true},
		{ID: 4, SignatureValid: false},
	}, nil)

	report, err := NewAuditUseCase(repo, &RecordingSuspiciousRecorder{}).VerifyIntegrity(ctx, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, []int64{2, 4}, report.InvalidIDs)
	assert.False(t, report.Clean())
}

func TestVerifyIntegrityDenied(t *testing.T) {
	ctx := context.Background()
	operatorActor := authz.Actor{Username: "oper_one1", Role: authz.RoleOperator}

	repo := new(MockEntryRepository)
	recorder := &RecordingSuspiciousRecorder{}

	_, err := NewAuditUseCase(repo, recorder).VerifyIntegrity(ctx, operatorActor)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Contains(t, recorder.Suspicions, "denied audit integrity check")
	repo.AssertNotCalled(t, "List", mock.Anything)
}
