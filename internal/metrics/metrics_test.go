package metrics

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderWriteText(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider("fleetcore")
	require.NoError(t, err)
	defer func() {
		_ = provider.Shutdown(ctx)
	}()

	business, err := NewBusinessMetrics(provider.MeterProvider(), "fleetcore")
	require.NoError(t, err)

	business.RecordOperation(ctx, "vehicle", "vehicle_create", "success")
	business.RecordOperation(ctx, "vehicle", "vehicle_create", "error")
	business.RecordDuration(ctx, "session", "login", 25*time.Millisecond, "success")

	var buf bytes.Buffer
	require.NoError(t, provider.WriteText(&buf))

	output := buf.String()
	assert.Contains(t, output, "fleetcore_operations_total")
	assert.Contains(t, output, "fleetcore_operation_duration_seconds")
	assert.Contains(t, output, `operation="vehicle_create"`)
	assert.Contains(t, output, `status="error"`)
}

func TestNoOpBusinessMetrics(t *testing.T) {
	ctx := context.Background()
	business := NewNoOpBusinessMetrics()

	assert.NotPanics(t, func() {
		business.RecordOperation(ctx, "vehicle", "vehicle_create", "success")
		business.RecordDuration(ctx, "vehicle", "vehicle_create", time.Second, "success")
	})
}
