// Package sensors defines the primary-side Sensor Port capability trait.
// Implementations are synchronous and assumed to complete within a small
// fraction of the sample interval; the ADC driver glue that backs a real
// board is external collaborator territory and out of scope here.
package sensors

import "github.com/aegissuit/supervisor/internal/types"

// Port reads the two load cells and the vertical accelerometer channel.
// A conforming Port never returns NaN — a faulting channel must return
// an arbitrary but finite value instead, leaving NaN-as-fault handling
// entirely to the hazard evaluator.
type Port interface {
	ReadLoad(ch types.Channel) float32
	ReadAccelZ() float32
}

// Sample captures one primary SensorFrame at the given tick.
func Sample(p Port, nowMs uint32) types.SensorFrame {
	return types.SensorFrame{
		TsMs:      nowMs,
		LoadLeft:  p.ReadLoad(types.Left),
		LoadRight: p.ReadLoad(types.Right),
		AccelZ:    p.ReadAccelZ(),
	}
}

// Fake is an in-memory Port for tests and the bench harness: each field
// is independently settable and defaults to zero load / 1g accel.
type Fake struct {
	LoadLeft  float32
	LoadRight float32
	AccelZ    float32
}

func NewFake() *Fake {
	return &Fake{AccelZ: 1.0}
}

func (f *Fake) ReadLoad(ch types.Channel) float32 {
	if ch == types.Left {
		return f.LoadLeft
	}
	return f.LoadRight
}

func (f *Fake) ReadAccelZ() float32 { return f.AccelZ }
