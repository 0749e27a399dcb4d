// Package supervisor implements the Supervisor Loop (spec §4.7): the
// single owner of all cross-iteration state (the previous primary frame,
// the current safety state, and the heartbeat tracker), scheduling one
// sample/evaluate/act pass per tick and pacing itself without ever
// trying to catch up on a slow iteration.
package supervisor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aegissuit/supervisor/internal/actuator"
	"github.com/aegissuit/supervisor/internal/audit"
	"github.com/aegissuit/supervisor/internal/clock"
	"github.com/aegissuit/supervisor/internal/hazard"
	"github.com/aegissuit/supervisor/internal/metrics"
	"github.com/aegissuit/supervisor/internal/secondary"
	"github.com/aegissuit/supervisor/internal/sensors"
	"github.com/aegissuit/supervisor/internal/state"
	"github.com/aegissuit/supervisor/internal/types"
)

// HazardDwell is the extra settling time spec §4.7 allows a
// hazard-triggered iteration before the next sample is taken, so the
// freshly latched actuator state has a moment to settle before it's
// re-read.
const HazardDwell = 100 * time.Millisecond

// Loop owns every piece of state that must survive across iterations.
// Nothing outside Loop may read or write prev, current, or tracker —
// that exclusivity is what makes the transition function in
// internal/state a pure, total function of its explicit arguments.
type Loop struct {
	NodeID string

	Clock     clock.Source
	Sensors   sensors.Port
	Secondary secondary.Link
	Actuator  *ActuatorController
	Evaluator hazard.Evaluator
	Sink      *audit.Sink
	Metrics   *metrics.Collector

	SampleInterval time.Duration

	prev    *types.SensorFrame
	current state.State
	tracker types.HeartbeatTracker
}

// NewLoop constructs a Loop with SampleInterval defaulted to 50ms (spec
// §6's SAMPLE_INTERVAL_MS) if unset.
func NewLoop(nodeID string, clk clock.Source, sensorPort sensors.Port, link secondary.Link, actuatorCtrl *ActuatorController, evaluator hazard.Evaluator, sink *audit.Sink, m *metrics.Collector) *Loop {
	return &Loop{
		NodeID:         nodeID,
		Clock:          clk,
		Sensors:        sensorPort,
		Secondary:      link,
		Actuator:       actuatorCtrl,
		Evaluator:      evaluator,
		Sink:           sink,
		Metrics:        m,
		SampleInterval: 50 * time.Millisecond,
		current:        state.Normal{},
	}
}

// Boot runs the fixed bring-up sequence spec §4.7 requires before the
// first sample: the mechanical release latched, descent disabled, and
// the heartbeat tracker primed against the current tick so a slow
// Secondary Link on the very first iteration doesn't look like an
// instant watchdog expiry.
func (l *Loop) Boot(ctx context.Context) {
	now := l.Clock.NowMs()
	l.tracker.MarkOK(now)
	corr := uuid.NewString()
	l.Actuator.SetMechRelease(ctx, now, true, corr, nil)
	l.Actuator.SetDescent(ctx, now, false, corr, nil)
	l.current = state.Normal{}
}

// Run drives the loop until ctx is cancelled. Each iteration paces
// itself to SampleInterval; a hazard-triggered iteration instead dwells
// for HazardDwell and restarts immediately, per spec §4.7 step 6.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		dwell := l.step(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dwell):
		}
	}
}

// step runs exactly one supervisor iteration and returns how long the
// caller should wait before the next one. It never blocks past its own
// internal timeouts: a stalled Secondary Link or a full telemetry queue
// degrade to a recorded fault, never a stuck loop.
func (l *Loop) step(ctx context.Context) time.Duration {
	t0 := l.Clock.NowMs()
	start := time.Now()
	corr := uuid.NewString()

	primary := sensors.Sample(l.Sensors, t0)

	secondaryFrame, err := l.Secondary.QuerySecondary(ctx)
	secondaryOK := err == nil
	nowMs := l.Clock.NowMs()
	if secondaryOK {
		l.tracker.MarkOK(nowMs)
	} else {
		l.Metrics.SecondaryLinkErrors.Inc()
	}

	h := l.Evaluator.Evaluate(l.tracker, nowMs, primary, secondaryFrame, secondaryOK, l.prev)
	next, changed := state.Next(l.current, h, &primary)

	if h != state.HazardNone {
		l.Metrics.HazardTotal.WithLabelValues(string(h.ReasonTag())).Inc()
	}

	if !changed {
		l.prev = &primary
		if h == state.HazardNone {
			l.Sink.Emit(ctx, types.AuditEvent{
				TsMs:          t0,
				EventKind:     types.EventHeartbeat,
				Reason:        types.ReasonOK,
				Frame:         &primary,
				CorrelationID: corr,
			})
		}
		l.Metrics.IterationDuration.WithLabelValues("heartbeat").Observe(time.Since(start).Seconds())
		l.Actuator.SetStatusLED(statusPatternFor(l.current.Kind()))
		return paceSince(start, l.SampleInterval)
	}

	l.applyTransition(ctx, t0, corr, next, &primary)
	l.current = next
	l.prev = &primary
	l.Metrics.IterationDuration.WithLabelValues("hazard").Observe(time.Since(start).Seconds())
	l.Actuator.SetStatusLED(statusPatternFor(l.current.Kind()))
	return paceSince(start, HazardDwell)
}

// paceSince returns the remaining wait before target has elapsed since
// start, or zero if target has already passed. Per spec §4.7 step 6, a
// slow iteration is never made up for with a shorter-than-normal wait —
// it just skips the sleep entirely.
func paceSince(start time.Time, target time.Duration) time.Duration {
	elapsed := time.Since(start)
	if elapsed >= target {
		return 0
	}
	return target - elapsed
}

// statusPatternFor maps the current safety state to the LED pattern the
// supervisor loop drives at the end of every iteration.
func statusPatternFor(k state.Kind) actuator.StatusPattern {
	switch k {
	case state.KindWarning:
		return actuator.StatusSlowBlink
	case state.KindFailsafe, state.KindEmergencyDescent:
		return actuator.StatusFastBlink
	default:
		return actuator.StatusSolid
	}
}

// applyTransition drives the actuator lines for the newly entered state
// before emitting the state-labeled audit event, per spec §5's ordering
// guarantee: every actuator audit entry for this transition is on record
// before the FAILSAFE/EMERGENCY_DESCENT entry that explains it.
func (l *Loop) applyTransition(ctx context.Context, nowMs uint32, corr string, next state.State, frame *types.SensorFrame) {
	switch next.Kind() {
	case state.KindFailsafe:
		l.Actuator.SetMechRelease(ctx, nowMs, false, corr, frame)
		l.Sink.Emit(ctx, types.AuditEvent{
			TsMs:          nowMs,
			EventKind:     types.EventFailsafe,
			Reason:        next.Reason(),
			Frame:         frame,
			CorrelationID: corr,
		})
	case state.KindEmergencyDescent:
		l.Actuator.SetDescent(ctx, nowMs, true, corr, frame)
		if l.current.Kind() != state.KindFailsafe {
			l.Actuator.SetMechRelease(ctx, nowMs, false, corr, frame)
		}
		l.Sink.Emit(ctx, types.AuditEvent{
			TsMs:          nowMs,
			EventKind:     types.EventEmergencyDescent,
			Reason:        next.Reason(),
			Frame:         frame,
			CorrelationID: corr,
		})
	}
}
