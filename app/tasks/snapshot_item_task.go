package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"feedgate/app/feed"
	"feedgate/app/store"
)

type SnapshotItemTask struct {
	Task
	Item feed.Item
	repo store.ItemRepository
}

func NewSnapshotItemTask(item feed.Item, repo store.ItemRepository) *SnapshotItemTask {
	return &SnapshotItemTask{
		Task: NewTask(TaskTypeSnapshotItem),
		Item: item,
		repo: repo,
	}
}

func (t *SnapshotItemTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.repo.UpsertItem(ctx, t.Item); err != nil {
		slog.Error("Task failed", "type", "SnapshotItem", "item", t.Item.ID, "error", err)
		return fmt.Errorf("failed to snapshot item: %w", err)
	}

	slog.Info("Task completed",
		"type", "SnapshotItem",
		"item", t.Item.ID,
		"duration", t.GetDuration())

	return nil
}
