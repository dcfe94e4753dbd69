package commands

import (
	"fmt"
	"io"

	"github.com/urbanfleet/fleetcore/internal/app"
)

// RunMetrics dumps all collected metrics in Prometheus text exposition
// format. The application has no network listener, so this is the only way
// to read the counters.
func RunMetrics(container *app.Container, writer io.Writer) error {
	provider, err := container.MetricsProvider()
	if err != nil {
		return fmt.Errorf("failed to get metrics provider: %w", err)
	}

	if err := provider.WriteText(writer); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	return nil
}
