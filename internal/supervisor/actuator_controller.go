package supervisor

import (
	"context"

	"github.com/aegissuit/supervisor/internal/actuator"
	"github.com/aegissuit/supervisor/internal/audit"
	"github.com/aegissuit/supervisor/internal/types"
)

// ActuatorController wraps a raw actuator.Port so every discrete-output
// change emits its audit event before the call returns, satisfying spec
// §5's ordering guarantee: an actuator change is on record before the
// state-labeled event that caused it. The loop calls these methods, not
// the bare Port, for every latch/descent change.
type ActuatorController struct {
	port actuator.Port
	sink *audit.Sink
}

func NewActuatorController(port actuator.Port, sink *audit.Sink) *ActuatorController {
	return &ActuatorController{port: port, sink: sink}
}

// SetMechRelease drives the mechanical release line and audits the
// change under MECH_RELEASE/locked or MECH_RELEASE/released.
func (c *ActuatorController) SetMechRelease(ctx context.Context, nowMs uint32, locked bool, correlationID string, frame *types.SensorFrame) {
	c.port.SetMechReleaseLine(locked)
	reason := types.ReasonReleased
	if locked {
		reason = types.ReasonLocked
	}
	c.sink.Emit(ctx, types.AuditEvent{
		TsMs:          nowMs,
		EventKind:     types.EventMechRelease,
		Reason:        reason,
		Frame:         frame,
		CorrelationID: correlationID,
	})
}

// SetDescent drives the descent-enable line and audits the change under
// DESCENT/enabled or DESCENT/disabled.
func (c *ActuatorController) SetDescent(ctx context.Context, nowMs uint32, enabled bool, correlationID string, frame *types.SensorFrame) {
	c.port.SetDescentLine(enabled)
	reason := types.ReasonDisabled
	if enabled {
		reason = types.ReasonEnabled
	}
	c.sink.Emit(ctx, types.AuditEvent{
		TsMs:          nowMs,
		EventKind:     types.EventDescent,
		Reason:        reason,
		Frame:         frame,
		CorrelationID: correlationID,
	})
}

// SetStatusLED is a direct pass-through: the cosmetic LED pattern never
// participates in the audit trail.
func (c *ActuatorController) SetStatusLED(pattern actuator.StatusPattern) {
	c.port.SetStatusLED(pattern)
}
