package usecase

import (
	"context"

	"github.com/capybara-io/capydeploy/internal/domain"
)

// ListRuns returns the recorded run history
type ListRuns struct {
	store RunStore
}

// NewListRuns creates a new ListRuns use case
func NewListRuns(store RunStore) *ListRuns {
	return &ListRuns{store: store}
}

// Run lists runs for network, or every run when network is empty
func (uc *ListRuns) Run(ctx context.Context, network string) ([]*domain.RunRecord, error) {
	return uc.store.ListRuns(ctx, network)
}

// Get returns a single run by id
func (uc *ListRuns) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	return uc.store.GetRun(ctx, id)
}
