package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"feedgate/app/analytics"
	"feedgate/app/hub"
)

type NotifyHubTask struct {
	Task
	FeedURLs []string
	notifier *hub.Notifier
	metrics  *analytics.Metrics
}

func NewNotifyHubTask(feedURLs []string, notifier *hub.Notifier, metrics *analytics.Metrics) *NotifyHubTask {
	return &NotifyHubTask{
		Task:     NewTask(TaskTypeNotifyHub),
		FeedURLs: feedURLs,
		notifier: notifier,
		metrics:  metrics,
	}
}

func (t *NotifyHubTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	results := t.notifier.Notify(ctx, t.FeedURLs)

	failed := 0
	for _, result := range results {
		if t.metrics != nil {
			t.metrics.RecordNotification(result.Success)
		}
		if !result.Success {
			failed++
		}
	}

	slog.Info("Task completed",
		"type", "NotifyHub",
		"id", t.ID,
		"duration", t.GetDuration(),
		"total", len(results),
		"failed", failed)

	if failed > 0 {
		// retrying re-notifies succeeded URLs too; that is safe, the hub
		// dedupes unchanged publishes
		return fmt.Errorf("%d of %d hub notifications failed", failed, len(results))
	}

	return nil
}
