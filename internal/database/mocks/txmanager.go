// Package mocks provides test doubles for database utilities.
package mocks

import (
	"context"
	"testing"
)

// MockTxManager is a TxManager test double that executes the callback without a
// real transaction. Set FailWith to simulate a transaction failure.
type MockTxManager struct {
	t        *testing.T
	FailWith error
	Calls    int
}

// NewMockTxManager creates a new MockTxManager.
func NewMockTxManager(t *testing.T) *MockTxManager {
	t.Helper()
	return &MockTxManager{t: t}
}

// WithTx runs fn directly, returning FailWith instead when configured.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if m.FailWith != nil {
		return m.FailWith
	}
	return fn(ctx)
}
