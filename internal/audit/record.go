// Package audit builds the canonical audit record text form (spec §6),
// signs it via a secureelement.Element, and hands the resulting envelope
// to a non-blocking telemetry backend. The record and envelope buffers
// are preallocated at their budget sizes; anything that comes out longer
// is rejected, and truncation is itself a reportable fault.
package audit

import (
	"fmt"

	"github.com/aegissuit/supervisor/internal/faults"
	"github.com/aegissuit/supervisor/internal/types"
)

// ErrTruncated is faults.ErrBufferTruncation, re-exported under the
// name the rest of this package uses.
var ErrTruncated = faults.ErrBufferTruncation

// RecordBufSize and EnvelopeBufSize are the spec §5 stack-buffer budgets.
const (
	RecordBufSize   = 256
	EnvelopeBufSize = 512

	FlagSigned   byte = 0x00
	FlagUnsigned byte = 0xFF
)

// BuildRecord renders ev as the canonical single-line JSON text form
// with the fixed field order ts_ms, node, event, reason, loads, accel_z.
// It returns ErrTruncated instead of a record longer than RecordBufSize.
func BuildRecord(ev types.AuditEvent) ([]byte, error) {
	loadLeft, loadRight := float32(-1.0), float32(-1.0)
	accelZ := float32(0.0)
	if ev.Frame != nil {
		loadLeft, loadRight = ev.Frame.LoadLeft, ev.Frame.LoadRight
		accelZ = ev.Frame.AccelZ
	}

	buf := make([]byte, 0, RecordBufSize)
	buf = fmt.Appendf(buf,
		`{"ts_ms":%d,"node":"%s","event":"%s","reason":"%s","loads":[%.2f,%.2f],"accel_z":%.3f}`,
		ev.TsMs, ev.NodeID, ev.EventKind, ev.Reason, loadLeft, loadRight, accelZ,
	)
	if len(buf) > RecordBufSize {
		return nil, ErrTruncated
	}
	return buf, nil
}

// BuildEnvelope prepends the flag byte to record||signature and enforces
// the EnvelopeBufSize budget, per spec §5/§6.
func BuildEnvelope(record, signature []byte, signed bool) ([]byte, error) {
	total := 1 + len(record) + len(signature)
	if total > EnvelopeBufSize {
		return nil, ErrTruncated
	}
	env := make([]byte, 0, total)
	if signed {
		env = append(env, FlagSigned)
	} else {
		env = append(env, FlagUnsigned)
	}
	env = append(env, record...)
	env = append(env, signature...)
	return env, nil
}
