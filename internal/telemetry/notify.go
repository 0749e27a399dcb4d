package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"

	"github.com/aegissuit/supervisor/internal/types"
)

// Notifier is the ops-escalation hook fired once per FAILSAFE or
// EMERGENCY_DESCENT transition — the Go expression of the original C
// skeleton's "/* notify ops via telemetry uploader (out of scope here) */"
// comment. It is fire-and-forget: a failed notification never alters
// the safety state, and the Audit Sink calls it from a goroutine.
type Notifier interface {
	NotifyOps(ctx context.Context, ev types.AuditEvent)
}

// CloudTasksNotifier schedules one HTTP task against an ops-notification
// queue per transition, grounded on the teacher's CloudDispatcher
// (internal/webhooks/cloud_dispatcher.go).
type CloudTasksNotifier struct {
	client    *cloudtasks.Client
	queuePath string
	targetURL string
}

func NewCloudTasksNotifier(ctx context.Context, project, location, queue, targetURL string) (*CloudTasksNotifier, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("telemetry: cloudtasks.NewClient: %w", err)
	}
	return &CloudTasksNotifier{
		client:    client,
		queuePath: fmt.Sprintf("projects/%s/locations/%s/queues/%s", project, location, queue),
		targetURL: targetURL,
	}, nil
}

func (n *CloudTasksNotifier) NotifyOps(ctx context.Context, ev types.AuditEvent) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("telemetry: failed to marshal ops notification", "err", err)
		return
	}

	req := &taskspb.CreateTaskRequest{
		Parent: n.queuePath,
		Task: &taskspb.Task{
			MessageType: &taskspb.Task_HttpRequest{
				HttpRequest: &taskspb.HttpRequest{
					HttpMethod: taskspb.HttpMethod_POST,
					Url:        n.targetURL,
					Headers:    map[string]string{"Content-Type": "application/json"},
					Body:       payload,
				},
			},
		},
	}

	if _, err := n.client.CreateTask(ctx, req); err != nil {
		slog.Warn("telemetry: ops notification task enqueue failed", "correlation_id", ev.CorrelationID, "err", err)
	}
}

func (n *CloudTasksNotifier) Close() error {
	return n.client.Close()
}

// NoOpNotifier discards every notification. Used when no ops queue is
// configured (e.g. unit tests, isolated bench runs).
type NoOpNotifier struct{}

func (NoOpNotifier) NotifyOps(context.Context, types.AuditEvent) {}
