package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/spanner"

	"github.com/aegissuit/supervisor/internal/types"
)

// Archiver persists a signed audit envelope to durable, queryable
// storage — a second, slower destination alongside the lossy Queue,
// grounded on the teacher's internal/reputation/spanner.go SpannerWallet
// wiring. A nil Archiver is valid: archiving is a compliance nicety, not
// a safety property, so its absence never changes loop behavior.
type Archiver interface {
	Persist(ctx context.Context, ev types.AuditEvent, envelope []byte)
}

// SpannerArchive writes one row per audit event to a Spanner table. All
// writes are best-effort: a failure is logged and otherwise ignored, the
// same way the teacher's event bus treats a failed Pub/Sub publish.
type SpannerArchive struct {
	client *spanner.Client
	table  string
}

// NewSpannerArchive dials Spanner at projects/<project>/instances/<instance>/databases/<db>.
func NewSpannerArchive(ctx context.Context, project, instance, db, table string) (*SpannerArchive, error) {
	dbPath := fmt.Sprintf("projects/%s/instances/%s/databases/%s", project, instance, db)
	client, err := spanner.NewClient(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("telemetry: spanner.NewClient: %w", err)
	}
	if table == "" {
		table = "audit_events"
	}
	return &SpannerArchive{client: client, table: table}, nil
}

// Persist is fire-and-forget from the caller's perspective: it runs the
// mutation synchronously against ctx but never returns an error, so the
// Audit Sink is expected to call it from its own background goroutine
// rather than inline in Emit.
func (a *SpannerArchive) Persist(ctx context.Context, ev types.AuditEvent, envelope []byte) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	loadLeft, loadRight, accelZ := float32(-1), float32(-1), float32(0)
	if ev.Frame != nil {
		loadLeft, loadRight, accelZ = ev.Frame.LoadLeft, ev.Frame.LoadRight, ev.Frame.AccelZ
	}

	mutation := spanner.InsertOrUpdate(a.table,
		[]string{"ts_ms", "correlation_id", "node", "event", "reason", "load_left", "load_right", "accel_z", "envelope"},
		[]interface{}{int64(ev.TsMs), ev.CorrelationID, ev.NodeID, string(ev.EventKind), string(ev.Reason), float64(loadLeft), float64(loadRight), float64(accelZ), envelope},
	)

	if _, err := a.client.Apply(ctx, []*spanner.Mutation{mutation}); err != nil {
		slog.Warn("telemetry: spanner archive write failed", "correlation_id", ev.CorrelationID, "err", err)
	}
}

func (a *SpannerArchive) Close() {
	a.client.Close()
}
