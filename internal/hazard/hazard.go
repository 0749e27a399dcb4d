// Package hazard implements the pure, side-effect-free hazard
// predicates the supervisor loop evaluates every iteration. Every
// function here is deterministic and fault-conservative: a NaN input
// never produces an accidental "no hazard" answer.
package hazard

import (
	"math"

	"github.com/aegissuit/supervisor/internal/state"
	"github.com/aegissuit/supervisor/internal/types"
)

// Thresholds carries four of the five compile-time tunables of spec §6
// (all but the sample interval, which the loop owns) as
// runtime-configurable values, so a bench build can load them from the
// config package instead of baking them into the binary.
type Thresholds struct {
	HeartbeatTimeoutMs   uint32
	LoadThresholdKg      float32
	SensorMismatchRatio  float32
	DropRateThresholdKgS float32
}

// DefaultThresholds returns the values spec §6 fixes.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeartbeatTimeoutMs:   1000,
		LoadThresholdKg:      50.0,
		SensorMismatchRatio:  0.20,
		DropRateThresholdKgS: 10.0,
	}
}

// Evaluator bundles the thresholds so call sites don't thread four
// scalars through every call.
type Evaluator struct {
	Thresholds Thresholds
}

func NewEvaluator(t Thresholds) Evaluator {
	return Evaluator{Thresholds: t}
}

// WatchdogExpired is true iff the secondary has not produced a
// successfully-read frame within HeartbeatTimeoutMs of now. The
// subtraction is deliberately unsigned so a single 32-bit tick wrap is
// tolerated, per the Clock contract.
func (e Evaluator) WatchdogExpired(tracker types.HeartbeatTracker, nowMs uint32) bool {
	return nowMs-tracker.LastSecondaryOKMs > e.Thresholds.HeartbeatTimeoutMs
}

// SensorMismatch reports whether the primary and secondary frames
// diverge by more than SensorMismatchRatio on either load channel, with
// the divergence floored against a denominator of at least 1.0kg to
// avoid amplifying noise near zero load. Any NaN on either side forces a
// mismatch.
func SensorMismatch(ratio float32, p, s types.SensorFrame) bool {
	if p.HasNaN() || s.HasNaN() {
		return true
	}
	for _, ch := range []types.Channel{types.Left, types.Right} {
		a, b := p.Load(ch), s.Load(ch)
		denom := maxAbs3(a, b, 1.0)
		if absf(a-b) > ratio*denom {
			return true
		}
	}
	return false
}

// Overload reports whether either primary load channel strictly exceeds
// the load threshold. NaN never compares true under IEEE rules, so it is
// checked explicitly and treated as an overload — the fault-conservative
// reading spec §4.5 mandates.
func Overload(thresholdKg float32, p types.SensorFrame) bool {
	if math.IsNaN(float64(p.LoadLeft)) || math.IsNaN(float64(p.LoadRight)) {
		return true
	}
	return p.LoadLeft > thresholdKg || p.LoadRight > thresholdKg
}

// SuddenDrop reports whether either load channel fell faster than
// dropRateThresholdKgS between prev and cur. A nil prev (no prior
// accepted frame yet) or a non-positive elapsed time never triggers. A
// rising load never triggers: only a positive drop rate is compared.
func SuddenDrop(dropRateThresholdKgS float32, prev *types.SensorFrame, cur types.SensorFrame) bool {
	if prev == nil {
		return false
	}
	dtS := float32(cur.TsMs-prev.TsMs) / 1000.0
	if dtS <= 0 {
		return false
	}
	for _, ch := range []types.Channel{types.Left, types.Right} {
		rate := (prev.Load(ch) - cur.Load(ch)) / dtS
		if rate > dropRateThresholdKgS {
			return true
		}
	}
	return false
}

// Evaluate runs the full priority chain of spec §4.5 — watchdog,
// mismatch, overload, sudden_drop, in that fixed order — and returns the
// first hazard that fires. Callers in state.KindFailsafe should only act
// on a HazardSuddenDrop result; Evaluate still reports the others so
// logging/metrics can observe that the underlying condition persists
// without the supervisor treating it as a new transition.
func (e Evaluator) Evaluate(tracker types.HeartbeatTracker, nowMs uint32, primary, secondary types.SensorFrame, secondaryOK bool, prev *types.SensorFrame) state.Hazard {
	if e.WatchdogExpired(tracker, nowMs) {
		return state.HazardWatchdog
	}
	if secondaryOK && SensorMismatch(e.Thresholds.SensorMismatchRatio, primary, secondary) {
		return state.HazardMismatch
	}
	if Overload(e.Thresholds.LoadThresholdKg, primary) {
		return state.HazardOverload
	}
	if SuddenDrop(e.Thresholds.DropRateThresholdKgS, prev, primary) {
		return state.HazardSuddenDrop
	}
	return state.HazardNone
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func maxAbs3(a, b, floor float32) float32 {
	m := absf(a)
	if absf(b) > m {
		m = absf(b)
	}
	if floor > m {
		m = floor
	}
	return m
}
