// Package worker runs periodic housekeeping outside the request path.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task one housekeeping job.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Janitor runs its tasks on a fixed interval until the context ends.
type Janitor struct {
	interval time.Duration
	tasks    []Task
	logger   *zap.Logger
}

// NewJanitor creates a Janitor.
func NewJanitor(interval time.Duration, logger *zap.Logger, tasks ...Task) *Janitor {
	return &Janitor{interval: interval, tasks: tasks, logger: logger}
}

// Start runs the loop in a goroutine. The returned channel closes once the
// loop has exited after ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		j.Run(ctx)
	}()
	return done
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("janitor started", zap.Duration("interval", j.interval), zap.Int("tasks", len(j.tasks)))
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce runs every task once. A failing task is logged and does not stop the others.
func (j *Janitor) RunOnce(ctx context.Context) {
	for _, task := range j.tasks {
		if err := task.Run(ctx); err != nil {
			j.logger.Warn("janitor task failed", zap.String("task", task.Name), zap.Error(err))
		}
	}
}
