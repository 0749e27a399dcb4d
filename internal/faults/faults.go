// Package faults collects the non-hazard error taxonomy of spec §7:
// conditions that are real but never escalate the safety state machine
// on their own. WatchdogExpired/SensorFault/OverloadHazard/
// SuddenDropHazard are hazards, not errors — they live in
// internal/hazard and internal/state instead, since they flow through
// state.Hazard rather than the error interface.
package faults

import "errors"

var (
	// ErrTransientLink is a single I²C/gRPC half-transaction failure.
	// Not itself an action trigger: the watchdog decides whether
	// persistence promotes it to WatchdogExpired.
	ErrTransientLink = errors.New("secondary link transaction failed")

	// ErrAuditSignFailure means the secure element declined to sign a
	// record. Non-fatal: the audit sink falls back to an unsigned
	// envelope and does not alter the safety state.
	ErrAuditSignFailure = errors.New("secure element sign failed; using unsigned envelope")

	// ErrTelemetryQueueFull means an audit envelope was dropped at the
	// transport boundary. Non-fatal and never blocks the loop.
	ErrTelemetryQueueFull = errors.New("telemetry queue full; envelope dropped")

	// ErrBufferTruncation means a record or envelope exceeded its fixed
	// stack-buffer budget. The sink substitutes an unsigned TRUNCATED
	// event in its place; it never alters the safety state.
	ErrBufferTruncation = errors.New("audit record or envelope exceeded its buffer budget")
)
