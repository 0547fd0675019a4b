package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "synth")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_Endpoint(t *testing.T) {
	// The exporter connects lazily, so an unreachable endpoint still sets up.
	shutdown, err := Setup(context.Background(), "http://127.0.0.1:1/v1/traces", "synth")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
}
