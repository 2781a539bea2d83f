package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"MetadataExtractor/internal/config"
)

func TestInit_Disabled(t *testing.T) {
	t.Parallel()

	shutdown, err := Init(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
}
