// Package boardinit runs the ordered bring-up sequence the supervisor
// binary executes before constructing the loop, mirroring the numbered
// "Initialize Microservices" bring-up block in the teacher's
// cmd/server/main.go and the implicit ordering of the original firmware
// (mechanical release latched before the loop's first iteration). Each
// step is independently named and fallible so a failure points at
// exactly which piece of hardware or backend didn't come up.
package boardinit

import (
	"context"
	"fmt"
	"log/slog"
)

// Step is one bring-up action. Name is used only for logging; Run does
// the actual work and may fail.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Sequence runs steps in order, stopping at the first failure. It logs
// each step's start and outcome at the same slog.Default() the rest of
// the binary uses, so a board that never comes up leaves a readable
// trail of how far it got.
func Sequence(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		slog.Info("board bring-up step starting", "step", step.Name)
		if err := step.Run(ctx); err != nil {
			slog.Error("board bring-up step failed", "step", step.Name, "err", err)
			return fmt.Errorf("boardinit: %s: %w", step.Name, err)
		}
		slog.Info("board bring-up step complete", "step", step.Name)
	}
	return nil
}
