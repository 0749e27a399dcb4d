package supervisor

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegissuit/supervisor/internal/audit"
	"github.com/aegissuit/supervisor/internal/metrics"
	"github.com/aegissuit/supervisor/internal/secureelement"
	"github.com/aegissuit/supervisor/internal/telemetry"
)

func TestActuatorControllerEmitsAuditBeforeReturning(t *testing.T) {
	element, err := secureelement.NewSoft("test-code")
	require.NoError(t, err)
	queue := telemetry.NewMemory(10)
	sink := audit.NewSink("suit-test", element, queue, metrics.New(prometheus.NewRegistry()))
	ctrl := NewActuatorController(&fakeActuatorPort{}, sink)

	ctrl.SetMechRelease(context.Background(), 10, false, "corr-1", nil)

	entries := queue.Entries()
	require.Len(t, entries, 1, "the audit event for the latch change must be enqueued before SetMechRelease returns")
	assert.Contains(t, string(entries[0]), `"event":"MECH_RELEASE"`)
	assert.Contains(t, string(entries[0]), `"reason":"released"`)
}

func TestActuatorControllerDescentReason(t *testing.T) {
	element, err := secureelement.NewSoft("test-code")
	require.NoError(t, err)
	queue := telemetry.NewMemory(10)
	sink := audit.NewSink("suit-test", element, queue, metrics.New(prometheus.NewRegistry()))
	ctrl := NewActuatorController(&fakeActuatorPort{}, sink)

	ctrl.SetDescent(context.Background(), 10, true, "corr-2", nil)

	entries := queue.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, string(entries[0]), `"event":"DESCENT"`)
	assert.Contains(t, string(entries[0]), `"reason":"enabled"`)
}
