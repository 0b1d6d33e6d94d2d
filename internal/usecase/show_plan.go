package usecase

import (
	"context"
	"fmt"

	"github.com/capybara-io/capydeploy/internal/domain"
)

// ShowPlan builds the plan of a manifest without touching any network
type ShowPlan struct {
	manifests ManifestLoader
}

// NewShowPlan creates a new ShowPlan use case
func NewShowPlan(manifests ManifestLoader) *ShowPlan {
	return &ShowPlan{manifests: manifests}
}

// Run loads the manifest at path and returns its plan
func (uc *ShowPlan) Run(ctx context.Context, path string) (*domain.DeploymentPlan, error) {
	manifest, err := uc.manifests.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	plan, err := BuildPlan(manifest.Group, manifest.Units)
	if err != nil {
		return nil, fmt.Errorf("invalid deployment plan: %w", err)
	}

	return plan, nil
}
