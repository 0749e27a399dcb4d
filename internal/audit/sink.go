package audit

import (
	"context"
	"log/slog"

	"github.com/aegissuit/supervisor/internal/faults"
	"github.com/aegissuit/supervisor/internal/metrics"
	"github.com/aegissuit/supervisor/internal/secureelement"
	"github.com/aegissuit/supervisor/internal/telemetry"
	"github.com/aegissuit/supervisor/internal/types"
)

// Sink implements the Audit Sink component of spec §4.6: it builds the
// canonical record, asks the secure element to sign it, and hands the
// resulting envelope to a non-blocking telemetry queue. Emit never
// returns an error and never blocks past the queue's own bounded
// timeout — any fault downgrades to a logged, counted condition per
// spec §7, never a change to the safety state.
type Sink struct {
	NodeID   string
	Element  secureelement.Element
	Queue    telemetry.Queue
	Archive  telemetry.Archiver // nil disables durable archiving
	Notifier telemetry.Notifier // nil disables ops escalation
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// NewSink wires the minimum required dependencies. Archive and Notifier
// default to no-ops; set the fields directly to enable them.
func NewSink(nodeID string, element secureelement.Element, queue telemetry.Queue, m *metrics.Collector) *Sink {
	return &Sink{
		NodeID:   nodeID,
		Element:  element,
		Queue:    queue,
		Notifier: telemetry.NoOpNotifier{},
		Metrics:  m,
		Logger:   slog.Default(),
	}
}

// Emit builds, signs, and enqueues one audit event. ev.NodeID is filled
// in from the sink's own configuration if the caller left it empty;
// ev.CorrelationID is passed through as the caller set it.
func (s *Sink) Emit(ctx context.Context, ev types.AuditEvent) {
	if ev.NodeID == "" {
		ev.NodeID = s.NodeID
	}

	record, err := BuildRecord(ev)
	if err != nil {
		s.emitTruncated(ctx, ev)
		return
	}

	sig := s.Element.SignAndStore(record)
	signed := sig != nil
	if !signed {
		s.Logger.Warn("audit sign failed, falling back to unsigned envelope",
			"correlation_id", ev.CorrelationID, "err", faults.ErrAuditSignFailure)
		s.Metrics.AuditSignFailures.Inc()
	}

	envelope, err := BuildEnvelope(record, sig, signed)
	if err != nil {
		s.emitTruncated(ctx, ev)
		return
	}

	if err := s.Queue.Enqueue(ctx, envelope); err != nil {
		s.Logger.Warn("telemetry enqueue dropped event",
			"correlation_id", ev.CorrelationID, "err", faults.ErrTelemetryQueueFull)
		s.Metrics.TelemetryQueueFull.Inc()
	}

	if s.Archive != nil {
		go s.Archive.Persist(context.WithoutCancel(ctx), ev, envelope)
	}
	if isEscalation(ev.EventKind) && s.Notifier != nil {
		go s.Notifier.NotifyOps(context.WithoutCancel(ctx), ev)
	}
}

// emitTruncated substitutes the spec §5 unsigned TRUNCATED event for a
// record/envelope that overran its fixed buffer budget. The replacement
// record carries no frame, so it is small unless the sink's own NodeID
// is oversized; if even it overruns the budget, it is dropped.
func (s *Sink) emitTruncated(ctx context.Context, original types.AuditEvent) {
	s.Metrics.BufferTruncations.Inc()
	s.Logger.Warn("audit record truncated", "correlation_id", original.CorrelationID, "err", faults.ErrBufferTruncation)

	fallback := types.AuditEvent{
		TsMs:          original.TsMs,
		NodeID:        s.NodeID,
		EventKind:     types.EventKind("TRUNCATED"),
		Reason:        original.Reason,
		CorrelationID: original.CorrelationID,
	}
	record, err := BuildRecord(fallback)
	if err != nil {
		// Even the minimal fallback didn't fit — nothing left to do but
		// drop it; the metric above already recorded the fault.
		return
	}
	envelope, err := BuildEnvelope(record, nil, false)
	if err != nil {
		return
	}
	_ = s.Queue.Enqueue(ctx, envelope)
}

func isEscalation(k types.EventKind) bool {
	return k == types.EventFailsafe || k == types.EventEmergencyDescent
}
