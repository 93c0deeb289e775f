package source

import (
	"context"
	"fmt"

	"feedgate/app/feed"
	"feedgate/app/store"
)

// itemLimit caps feed size; subscribers only need the recent window.
const itemLimit = 50

// StoreSource serves items from the local sqlite snapshot, letting
// standalone deployments generate feeds without a live CMS.
type StoreSource struct {
	repo store.ItemRepository
}

func NewStoreSource(repo store.ItemRepository) *StoreSource {
	return &StoreSource{repo: repo}
}

func (s *StoreSource) Items(ctx context.Context) ([]feed.Item, error) {
	items, err := s.repo.GetItems(ctx, itemLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return items, nil
}

func (s *StoreSource) ItemsByCategory(ctx context.Context, slug string) ([]feed.Item, error) {
	items, err := s.repo.GetItemsByCategory(ctx, slug, itemLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return items, nil
}
