// Package i2cframe implements the real-hardware Secondary Link
// transport: command byte 0x10 written to 7-bit address 0x30, followed
// by a 16-byte response laid out as little-endian u32 ts_ms || f32
// load_left || f32 load_right || f32 accel_z, per spec §6. The I²C bus
// itself is an external collaborator; Bus below is the only interface
// this package consumes from it.
package i2cframe

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/aegissuit/supervisor/internal/secondary"
	"github.com/aegissuit/supervisor/internal/types"
)

const (
	SecondaryAddr   = 0x30
	CommandQuery    = 0x10
	ResponseLen     = 16
	HalfTransaction = 50 * time.Millisecond
)

// Bus is the minimal I²C primitive the HAL/driver layer must provide.
// Both calls must respect ctx's deadline themselves — this package sets
// a 50ms deadline per half-transaction and relies on Bus to honor it
// rather than enforcing it by racing a timer against an uncancellable
// call.
type Bus interface {
	WriteByte(ctx context.Context, addr uint8, b byte) error
	ReadBytes(ctx context.Context, addr uint8, n int) ([]byte, error)
}

// Link implements secondary.Link over a raw I²C Bus.
type Link struct {
	bus  Bus
	addr uint8
}

func NewLink(bus Bus) *Link {
	return &Link{bus: bus, addr: SecondaryAddr}
}

func (l *Link) QuerySecondary(ctx context.Context) (types.SensorFrame, error) {
	wctx, wcancel := context.WithTimeout(ctx, HalfTransaction)
	defer wcancel()
	if err := l.bus.WriteByte(wctx, l.addr, CommandQuery); err != nil {
		return types.SensorFrame{}, &secondary.LinkError{Half: "write", Err: err}
	}

	rctx, rcancel := context.WithTimeout(ctx, HalfTransaction)
	defer rcancel()
	raw, err := l.bus.ReadBytes(rctx, l.addr, ResponseLen)
	if err != nil {
		return types.SensorFrame{}, &secondary.LinkError{Half: "read", Err: err}
	}
	if len(raw) != ResponseLen {
		return types.SensorFrame{}, &secondary.LinkError{Half: "read", Err: secondary.ErrTimeout}
	}

	return Decode(raw), nil
}

// Decode parses a 16-byte secondary response into a SensorFrame. Shared
// with the grpcframe backend, which carries the same byte layout over a
// gRPC channel instead of a bus.
func Decode(raw []byte) types.SensorFrame {
	ts := binary.LittleEndian.Uint32(raw[0:4])
	left := math.Float32frombits(binary.LittleEndian.Uint32(raw[4:8]))
	right := math.Float32frombits(binary.LittleEndian.Uint32(raw[8:12]))
	accel := math.Float32frombits(binary.LittleEndian.Uint32(raw[12:16]))
	return types.SensorFrame{TsMs: ts, LoadLeft: left, LoadRight: right, AccelZ: accel}
}

// Encode is exposed for the fake secondary-MCU harness used in tests and
// the bench binary: it produces the exact 16 bytes a real secondary MCU
// would answer the 0x10 command with.
func Encode(f types.SensorFrame) []byte {
	buf := make([]byte, ResponseLen)
	binary.LittleEndian.PutUint32(buf[0:4], f.TsMs)
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(f.LoadLeft))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(f.LoadRight))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(f.AccelZ))
	return buf
}
