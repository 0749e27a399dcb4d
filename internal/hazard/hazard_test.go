package hazard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegissuit/supervisor/internal/state"
	"github.com/aegissuit/supervisor/internal/types"
)

func TestWatchdogExpired(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	tracker := types.HeartbeatTracker{LastSecondaryOKMs: 1000}

	assert.False(t, e.WatchdogExpired(tracker, 1999))
	assert.True(t, e.WatchdogExpired(tracker, 2001))
}

func TestWatchdogExpiredToleratesTickWrap(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	// LastSecondaryOKMs just before the u32 wrap, now just after it: the
	// unsigned subtraction must read this as a small positive delta, not
	// a huge one.
	tracker := types.HeartbeatTracker{LastSecondaryOKMs: math.MaxUint32 - 10}
	assert.False(t, e.WatchdogExpired(tracker, 40))
}

func TestSensorMismatch(t *testing.T) {
	p := types.SensorFrame{LoadLeft: 10, LoadRight: 10}
	s := types.SensorFrame{LoadLeft: 11, LoadRight: 10}
	assert.False(t, SensorMismatch(0.20, p, s), "1kg divergence on 10kg is within 20%")

	s.LoadLeft = 13
	assert.True(t, SensorMismatch(0.20, p, s), "3kg divergence on 10kg exceeds 20%")
}

func TestSensorMismatchNaNForcesTrue(t *testing.T) {
	p := types.SensorFrame{LoadLeft: float32(math.NaN())}
	s := types.SensorFrame{LoadLeft: 10}
	assert.True(t, SensorMismatch(0.20, p, s))
}

func TestOverload(t *testing.T) {
	assert.False(t, Overload(50, types.SensorFrame{LoadLeft: 50, LoadRight: 49.9}))
	assert.True(t, Overload(50, types.SensorFrame{LoadLeft: 50.1, LoadRight: 0}))
}

func TestOverloadNaNIsConservative(t *testing.T) {
	assert.True(t, Overload(50, types.SensorFrame{LoadLeft: float32(math.NaN())}))
}

func TestSuddenDrop(t *testing.T) {
	prev := &types.SensorFrame{TsMs: 0, LoadLeft: 20, LoadRight: 20}
	cur := types.SensorFrame{TsMs: 500, LoadLeft: 10, LoadRight: 20} // 20kg/s drop on left
	assert.True(t, SuddenDrop(10, prev, cur))
}

func TestSuddenDropNoPriorFrame(t *testing.T) {
	assert.False(t, SuddenDrop(10, nil, types.SensorFrame{LoadLeft: 0}))
}

func TestSuddenDropIgnoresRisingLoad(t *testing.T) {
	prev := &types.SensorFrame{TsMs: 0, LoadLeft: 10}
	cur := types.SensorFrame{TsMs: 500, LoadLeft: 30}
	assert.False(t, SuddenDrop(10, prev, cur))
}

func TestEvaluatePriorityOrder(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	tracker := types.HeartbeatTracker{LastSecondaryOKMs: 0}

	primary := types.SensorFrame{TsMs: 5000, LoadLeft: 100, LoadRight: 100}
	secondary := types.SensorFrame{TsMs: 5000}

	// Watchdog expired AND overloaded AND mismatched at once: watchdog
	// must win per the fixed priority order.
	h := e.Evaluate(tracker, 5000, primary, secondary, true, nil)
	require.Equal(t, state.HazardWatchdog, h)
}

func TestEvaluateMismatchSkippedWhenSecondaryNotOK(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	tracker := types.HeartbeatTracker{LastSecondaryOKMs: 1000}

	primary := types.SensorFrame{TsMs: 1100, LoadLeft: 10, LoadRight: 10}
	secondary := types.SensorFrame{TsMs: 1100, LoadLeft: 90, LoadRight: 90}

	h := e.Evaluate(tracker, 1100, primary, secondary, false, nil)
	require.Equal(t, state.HazardNone, h)
}

func TestEvaluateOverloadBeforeSuddenDrop(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	tracker := types.HeartbeatTracker{LastSecondaryOKMs: 1000}

	prev := &types.SensorFrame{TsMs: 1000, LoadLeft: 100, LoadRight: 100}
	primary := types.SensorFrame{TsMs: 1100, LoadLeft: 60, LoadRight: 0}
	secondary := primary

	h := e.Evaluate(tracker, 1100, primary, secondary, true, prev)
	require.Equal(t, state.HazardOverload, h)
}
