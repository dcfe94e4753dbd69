package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/urbanfleet/fleetcore/internal/audit/domain"
	"github.com/urbanfleet/fleetcore/internal/authz"
)

// MockAuditUseCase is a mock implementation of the audit use case
type MockAuditUseCase struct {
	mock.Mock
}

func (m *MockAuditUseCase) ListEntries(ctx context.Context, actor authz.Actor) ([]*auditDomain.Entry, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Entry), args.Error(1)
}

func (m *MockAuditUseCase) SuspiciousCount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuditUseCase) VerifyIntegrity(ctx context.Context, actor authz.Actor) (auditDomain.IntegrityReport, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(auditDomain.IntegrityReport), args.Error(1)
}

func (m *MockAuditUseCase) DetectRepeatedFailures(
	ctx context.Context,
	username string,
	window time.Duration,
	threshold int,
) (bool, error) {
	args := m.Called(ctx, username, window, threshold)
	return args.Bool(0), args.Error(1)
}

func TestRunVerifyAuditLogs(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("clean log, text output", func(t *testing.T) {
		mockUseCase := &MockAuditUseCase{}
		mockUseCase.On("VerifyIntegrity", ctx, mock.Anything).
			Return(auditDomain.IntegrityReport{Total: 10, Valid: 10}, nil)

		var out bytes.Buffer
		err := RunVerifyAuditLogs(ctx, mockUseCase, logger, &out, "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "Integrity: OK")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("clean log, json output", func(t *testing.T) {
		mockUseCase := &MockAuditUseCase{}
		mockUseCase.On("VerifyIntegrity", ctx, mock.Anything).
			Return(auditDomain.IntegrityReport{Total: 10, Valid: 10}, nil)

		var out bytes.Buffer
		err := RunVerifyAuditLogs(ctx, mockUseCase, logger, &out, "json")
		require.NoError(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, float64(10), result["total"])
		require.Equal(t, true, result["clean"])
	})

	t.Run("tampered log fails the command", func(t *testing.T) {
		mockUseCase := &MockAuditUseCase{}
		mockUseCase.On("VerifyIntegrity", ctx, mock.Anything).
			Return(auditDomain.IntegrityReport{Total: 10, Valid: 8, InvalidIDs: []int64{3, 7}}, nil)

		var out bytes.Buffer
		err := RunVerifyAuditLogs(ctx, mockUseCase, logger, &out, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "2 tampered entries")
		require.Contains(t, out.String(), "Integrity: FAILED")
	})
}
