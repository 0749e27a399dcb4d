package i2cframe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegissuit/supervisor/internal/secondary"
	"github.com/aegissuit/supervisor/internal/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := types.SensorFrame{TsMs: 123456, LoadLeft: 12.5, LoadRight: -3.25, AccelZ: 0.98}
	raw := Encode(want)
	require.Len(t, raw, ResponseLen)

	got := Decode(raw)
	assert.Equal(t, want, got)
}

// fakeBus is an in-memory i2cframe.Bus impersonating a well-behaved
// secondary MCU for Link tests.
type fakeBus struct {
	frame   types.SensorFrame
	failRd  bool
	failWr  bool
	lastCmd byte
}

func (b *fakeBus) WriteByte(ctx context.Context, addr uint8, cmd byte) error {
	if b.failWr {
		return context.DeadlineExceeded
	}
	b.lastCmd = cmd
	return nil
}

func (b *fakeBus) ReadBytes(ctx context.Context, addr uint8, n int) ([]byte, error) {
	if b.failRd {
		return nil, context.DeadlineExceeded
	}
	return Encode(b.frame), nil
}

func TestLinkQuerySecondarySuccess(t *testing.T) {
	bus := &fakeBus{frame: types.SensorFrame{TsMs: 1, LoadLeft: 5, LoadRight: 6, AccelZ: 1}}
	link := NewLink(bus)

	frame, err := link.QuerySecondary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bus.frame, frame)
	assert.Equal(t, byte(CommandQuery), bus.lastCmd)
}

func TestLinkQuerySecondaryWriteFailure(t *testing.T) {
	bus := &fakeBus{failWr: true}
	link := NewLink(bus)

	_, err := link.QuerySecondary(context.Background())
	require.Error(t, err)
	var linkErr *secondary.LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, "write", linkErr.Half)
}

func TestLinkQuerySecondaryReadFailure(t *testing.T) {
	bus := &fakeBus{failRd: true}
	link := NewLink(bus)

	_, err := link.QuerySecondary(context.Background())
	require.Error(t, err)
	var linkErr *secondary.LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, "read", linkErr.Half)
}

func TestHalfTransactionBudget(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, HalfTransaction)
}
