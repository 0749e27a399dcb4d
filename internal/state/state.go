// Package state implements the four-value safety state machine as a sum
// type: each variant carries only the data it legitimately needs, and
// Next is a total function from (current state, hazard) to the next
// state. Modeling it this way makes "no transition back to NORMAL or
// WARNING" a property of the switch in Next rather than something every
// caller has to remember to check.
package state

import "github.com/aegissuit/supervisor/internal/types"

// Kind is the tag of a State value.
type Kind string

const (
	KindNormal           Kind = "NORMAL"
	KindWarning          Kind = "WARNING"
	KindFailsafe         Kind = "FAILSAFE"
	KindEmergencyDescent Kind = "EMERGENCY_DESCENT"
)

// State is implemented by the four variants below. It is intentionally
// small: callers switch on Kind() rather than type-asserting, since the
// only data any variant carries beyond its tag is the triggering reason
// and frame, exposed uniformly here.
type State interface {
	Kind() Kind
	// Reason is the ReasonTag that produced this state, or ReasonOK for
	// Normal and the never-entered Warning variant.
	Reason() types.ReasonTag
	// TriggerFrame is the sensor frame that caused the transition into
	// this state, or nil for Normal/Warning.
	TriggerFrame() *types.SensorFrame
}

// Normal is the boot state and has an outgoing edge for every hazard.
// Next gives the never-constructed Warning variant the same edges.
type Normal struct{}

func (Normal) Kind() Kind                      { return KindNormal }
func (Normal) Reason() types.ReasonTag          { return types.ReasonOK }
func (Normal) TriggerFrame() *types.SensorFrame { return nil }

// Warning is reserved for future soft-alert use. The core never
// constructs it, but it must remain a distinct variant so a future
// soft-alert path has somewhere to go without being confused for Normal.
type Warning struct{}

func (Warning) Kind() Kind                      { return KindWarning }
func (Warning) Reason() types.ReasonTag          { return types.ReasonOK }
func (Warning) TriggerFrame() *types.SensorFrame { return nil }

// Failsafe is the defensive absorbing state: latch released, descent
// left untouched.
type Failsafe struct {
	reason types.ReasonTag
	frame  *types.SensorFrame
}

func NewFailsafe(reason types.ReasonTag, frame *types.SensorFrame) Failsafe {
	return Failsafe{reason: reason, frame: frame}
}

func (f Failsafe) Kind() Kind                      { return KindFailsafe }
func (f Failsafe) Reason() types.ReasonTag          { return f.reason }
func (f Failsafe) TriggerFrame() *types.SensorFrame { return f.frame }

// EmergencyDescent is the escalated absorbing state: latch released and
// descent enabled. It carries the frame whose sudden-drop reading
// triggered the escalation.
type EmergencyDescent struct {
	reason types.ReasonTag
	frame  *types.SensorFrame
}

func NewEmergencyDescent(reason types.ReasonTag, frame *types.SensorFrame) EmergencyDescent {
	return EmergencyDescent{reason: reason, frame: frame}
}

func (e EmergencyDescent) Kind() Kind                      { return KindEmergencyDescent }
func (e EmergencyDescent) Reason() types.ReasonTag          { return e.reason }
func (e EmergencyDescent) TriggerFrame() *types.SensorFrame { return e.frame }

// IsAbsorbing reports whether no outgoing transition exists from this
// state within the current power cycle.
func IsAbsorbing(s State) bool {
	k := s.Kind()
	return k == KindFailsafe || k == KindEmergencyDescent
}

// Hazard is the output of the hazard evaluator for one iteration: either
// none fired, or exactly one fired (the first, by priority order).
type Hazard int

const (
	HazardNone Hazard = iota
	HazardWatchdog
	HazardMismatch
	HazardOverload
	HazardSuddenDrop
)

// ReasonTag returns the audit reason_tag for a fired hazard. Calling it
// on HazardNone is a programming error in the caller and returns ReasonOK.
func (h Hazard) ReasonTag() types.ReasonTag {
	switch h {
	case HazardWatchdog:
		return types.ReasonSecondaryWatchdogExpiry
	case HazardMismatch:
		return types.ReasonSensorMismatch
	case HazardOverload:
		return types.ReasonOverload
	case HazardSuddenDrop:
		return types.ReasonSuddenDrop
	default:
		return types.ReasonOK
	}
}

// Next computes the state that results from observing hazard while in
// current, per the fixed edge set of the supervisor loop:
//
//	NORMAL  -> FAILSAFE          on watchdog, mismatch, or overload
//	NORMAL  -> EMERGENCY_DESCENT on sudden_drop
//	FAILSAFE -> EMERGENCY_DESCENT on sudden_drop
//
// WARNING, which the core never enters, takes the same edges as NORMAL.
// No other (state, hazard) pair produces a transition: changed is false
// and current is returned unchanged. This includes every hazard observed
// while already in EMERGENCY_DESCENT, and watchdog/mismatch/overload
// observed while already in FAILSAFE — those are not new transitions,
// they are the absorbing state holding.
func Next(current State, hazard Hazard, frame *types.SensorFrame) (next State, changed bool) {
	if hazard == HazardNone {
		return current, false
	}
	switch current.Kind() {
	case KindNormal, KindWarning:
		switch hazard {
		case HazardWatchdog, HazardMismatch, HazardOverload:
			return NewFailsafe(hazard.ReasonTag(), frame), true
		case HazardSuddenDrop:
			return NewEmergencyDescent(hazard.ReasonTag(), frame), true
		}
	case KindFailsafe:
		if hazard == HazardSuddenDrop {
			return NewEmergencyDescent(hazard.ReasonTag(), frame), true
		}
	}
	return current, false
}
