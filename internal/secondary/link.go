// Package secondary defines the Secondary Link capability trait shared
// by the two wire transports implemented in its i2cframe and grpcframe
// subpackages: a raw-I²C backend for real boards and a gRPC backend for
// bench rigs and software-in-the-loop testing. Both speak the same
// 16-byte little-endian frame described in spec §6; the gRPC backend
// just carries those bytes (and an SPI-FFE-authenticated channel) over a
// socket instead of a bus.
package secondary

import (
	"context"
	"errors"

	"github.com/aegissuit/supervisor/internal/types"
)

// LinkError is returned when a query_secondary transaction fails, either
// in the write half (command byte) or the read half (16-byte response).
// A single LinkError is not itself a hazard — spec's TransientLink
// taxonomy entry — it is the watchdog that decides whether persistence
// promotes it to one.
type LinkError struct {
	Half string // "write" or "read"
	Err  error
}

func (e *LinkError) Error() string {
	return "secondary link " + e.Half + " failed: " + e.Err.Error()
}

func (e *LinkError) Unwrap() error { return e.Err }

var ErrTimeout = errors.New("secondary link half-transaction timed out")

// Link is the capability trait the supervisor loop queries once per
// iteration. Implementations must bound both halves of the transaction
// to 50ms, per spec §4.3, and must return before that deadline rather
// than let a caller's context do the enforcement — the loop's own
// context carries no per-call deadline.
type Link interface {
	QuerySecondary(ctx context.Context) (types.SensorFrame, error)
}
