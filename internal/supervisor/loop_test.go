package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegissuit/supervisor/internal/actuator"
	"github.com/aegissuit/supervisor/internal/audit"
	"github.com/aegissuit/supervisor/internal/clock"
	"github.com/aegissuit/supervisor/internal/hazard"
	"github.com/aegissuit/supervisor/internal/metrics"
	"github.com/aegissuit/supervisor/internal/secureelement"
	"github.com/aegissuit/supervisor/internal/sensors"
	"github.com/aegissuit/supervisor/internal/state"
	"github.com/aegissuit/supervisor/internal/telemetry"
	"github.com/aegissuit/supervisor/internal/types"
)

// fakeActuatorPort records every line change for assertions.
type fakeActuatorPort struct {
	mechLocked   bool
	descentOn    bool
	ledPattern   actuator.StatusPattern
	mechChanges  []bool
	descentCalls []bool
}

func (p *fakeActuatorPort) SetMechReleaseLine(locked bool) {
	p.mechLocked = locked
	p.mechChanges = append(p.mechChanges, locked)
}
func (p *fakeActuatorPort) SetDescentLine(enabled bool) {
	p.descentOn = enabled
	p.descentCalls = append(p.descentCalls, enabled)
}
func (p *fakeActuatorPort) SetStatusLED(pattern actuator.StatusPattern) { p.ledPattern = pattern }

// fakeSecondaryLink returns a fixed frame or a fixed error, settable per
// test.
type fakeSecondaryLink struct {
	frame types.SensorFrame
	err   error
}

func (l *fakeSecondaryLink) QuerySecondary(ctx context.Context) (types.SensorFrame, error) {
	return l.frame, l.err
}

func newTestLoop(t *testing.T, sensorPort sensors.Port, link *fakeSecondaryLink, actuatorPort *fakeActuatorPort) *Loop {
	t.Helper()
	element, err := secureelement.NewSoft("test-code")
	require.NoError(t, err)
	sink := audit.NewSink("suit-test", element, telemetry.NewMemory(100), metrics.New(prometheus.NewRegistry()))
	ctrl := NewActuatorController(actuatorPort, sink)
	return NewLoop("suit-test", clock.NewFake(0), sensorPort, link, ctrl, hazard.NewEvaluator(hazard.DefaultThresholds()), sink, metrics.New(prometheus.NewRegistry()))
}

func TestBootLocksAndDisables(t *testing.T) {
	actuatorPort := &fakeActuatorPort{}
	link := &fakeSecondaryLink{}
	loop := newTestLoop(t, sensors.NewFake(), link, actuatorPort)

	loop.Boot(context.Background())

	assert.True(t, actuatorPort.mechLocked)
	assert.False(t, actuatorPort.descentOn)
	assert.Equal(t, state.KindNormal, loop.current.Kind())
}

func TestStepHeartbeatOnNoHazard(t *testing.T) {
	actuatorPort := &fakeActuatorPort{}
	link := &fakeSecondaryLink{frame: types.SensorFrame{}}
	loop := newTestLoop(t, sensors.NewFake(), link, actuatorPort)
	loop.Boot(context.Background())
	loop.tracker.MarkOK(0)

	dwell := loop.step(context.Background())

	assert.Equal(t, state.KindNormal, loop.current.Kind())
	assert.LessOrEqual(t, dwell, loop.SampleInterval, "dwell must never exceed the sample interval")
	assert.Greater(t, dwell, time.Duration(0))
	assert.NotNil(t, loop.prev)
}

func TestStepWatchdogTriggersFailsafe(t *testing.T) {
	actuatorPort := &fakeActuatorPort{}
	link := &fakeSecondaryLink{err: errors.New("bus down")}
	loop := newTestLoop(t, sensors.NewFake(), link, actuatorPort)
	loop.Boot(context.Background())
	loop.Clock.(*clock.Fake).Advance(2000) // well past the 1000ms heartbeat timeout

	dwell := loop.step(context.Background())

	assert.Equal(t, state.KindFailsafe, loop.current.Kind())
	assert.LessOrEqual(t, dwell, HazardDwell, "dwell must never exceed the hazard settling time")
	assert.False(t, actuatorPort.mechLocked, "latch must release on FAILSAFE")
}

func TestStepSuddenDropFromFailsafeEscalates(t *testing.T) {
	actuatorPort := &fakeActuatorPort{}
	sensorPort := sensors.NewFake()
	sensorPort.LoadLeft, sensorPort.LoadRight = 20, 20
	// Secondary agrees with whatever primary reads this iteration, so
	// only sudden_drop fires, not sensor_mismatch.
	link := &fakeSecondaryLink{}
	loop := newTestLoop(t, sensorPort, link, actuatorPort)
	loop.Boot(context.Background())
	loop.current = state.NewFailsafe(types.ReasonOverload, &types.SensorFrame{TsMs: 0, LoadLeft: 20, LoadRight: 20})
	loop.prev = &types.SensorFrame{TsMs: 0, LoadLeft: 20, LoadRight: 20}
	loop.tracker.MarkOK(0)

	fake := loop.Clock.(*clock.Fake)
	fake.Advance(500)
	sensorPort.LoadLeft = 5 // 30kg/s drop over 500ms on the left channel
	link.frame = types.SensorFrame{LoadLeft: 5, LoadRight: 20}

	dwell := loop.step(context.Background())

	assert.Equal(t, state.KindEmergencyDescent, loop.current.Kind())
	assert.LessOrEqual(t, dwell, HazardDwell, "dwell must never exceed the hazard settling time")
	assert.True(t, actuatorPort.descentOn)
}

// TestStepNormalToEmergencyDescentOrdersDescentBeforeMechRelease drives a
// sudden drop straight from NORMAL, the path spec.md scenario 5 names:
// set_descent(true) must be driven (and audited) before set_mech_release(false).
func TestStepNormalToEmergencyDescentOrdersDescentBeforeMechRelease(t *testing.T) {
	actuatorPort := &fakeActuatorPort{}
	sensorPort := sensors.NewFake()
	sensorPort.LoadLeft, sensorPort.LoadRight = 20, 20
	link := &fakeSecondaryLink{frame: types.SensorFrame{LoadLeft: 20, LoadRight: 20}}
	loop := newTestLoop(t, sensorPort, link, actuatorPort)
	loop.Boot(context.Background())
	loop.prev = &types.SensorFrame{TsMs: 0, LoadLeft: 20, LoadRight: 20}
	loop.tracker.MarkOK(0)

	fake := loop.Clock.(*clock.Fake)
	fake.Advance(500)
	sensorPort.LoadLeft = 5 // 30kg/s drop over 500ms on the left channel
	link.frame = types.SensorFrame{LoadLeft: 5, LoadRight: 20}

	dwell := loop.step(context.Background())

	assert.Equal(t, state.KindEmergencyDescent, loop.current.Kind())
	assert.LessOrEqual(t, dwell, HazardDwell)
	// Boot already drove each line once (latch locked, descent disabled).
	require.Len(t, actuatorPort.descentCalls, 2)
	require.Len(t, actuatorPort.mechChanges, 2)
	assert.True(t, actuatorPort.descentCalls[1])
	assert.False(t, actuatorPort.mechChanges[1])

	entries := loop.Sink.Queue.(*telemetry.Memory).Entries()
	// boot: MECH_RELEASE locked, DESCENT disabled;
	// step: DESCENT enabled, MECH_RELEASE released, EMERGENCY_DESCENT
	require.Len(t, entries, 5)
	assertEnvelopeContains(t, entries[2], `"event":"DESCENT"`)
	assertEnvelopeContains(t, entries[3], `"event":"MECH_RELEASE"`)
	assertEnvelopeContains(t, entries[4], `"event":"EMERGENCY_DESCENT"`)
}

func assertEnvelopeContains(t *testing.T, envelope []byte, substr string) {
	t.Helper()
	assert.Contains(t, string(envelope), substr)
}

func TestStepAbsorbingFailsafeIgnoresRepeatHazard(t *testing.T) {
	actuatorPort := &fakeActuatorPort{}
	link := &fakeSecondaryLink{err: errors.New("still down")}
	loop := newTestLoop(t, sensors.NewFake(), link, actuatorPort)
	loop.Boot(context.Background())
	loop.current = state.NewFailsafe(types.ReasonSecondaryWatchdogExpiry, &types.SensorFrame{})
	loop.tracker.MarkOK(0)
	loop.Clock.(*clock.Fake).Advance(5000)

	dwell := loop.step(context.Background())

	assert.Equal(t, state.KindFailsafe, loop.current.Kind(), "already-FAILSAFE must not re-transition on watchdog")
	assert.LessOrEqual(t, dwell, loop.SampleInterval, "a non-transitioning iteration paces normally, not on the hazard dwell")
}
