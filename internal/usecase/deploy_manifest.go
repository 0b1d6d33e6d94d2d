package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/google/uuid"
)

// ErrNotConfirmed is returned when the user declines to deploy
var ErrNotConfirmed = errors.New("deployment not confirmed")

// DeployManifest loads a manifest, plans it and runs it against a network
type DeployManifest struct {
	networks  NetworkLoader
	manifests ManifestLoader
	backend   DeploymentBackend
	store     RunStore
	confirmer Confirmer
	progress  ProgressSink
	log       *slog.Logger
	now       func() time.Time
}

// NewDeployManifest creates a new deploy use case
func NewDeployManifest(
	networks NetworkLoader,
	manifests ManifestLoader,
	backend DeploymentBackend,
	store RunStore,
	confirmer Confirmer,
	progress ProgressSink,
	log *slog.Logger,
) *DeployManifest {
	return &DeployManifest{
		networks:  networks,
		manifests: manifests,
		backend:   backend,
		store:     store,
		confirmer: confirmer,
		progress:  progress,
		log:       log,
		now:       time.Now,
	}
}

// DeployParams contains parameters for a deployment run
type DeployParams struct {
	ManifestPath   string
	Network        string
	DryRun         bool
	NonInteractive bool
}

// DeployResult contains the outcome of a deployment run. Result is non-nil
// as soon as the run has started, including when it failed part way.
type DeployResult struct {
	Plan    *domain.DeploymentPlan
	Network domain.NetworkConfig
	Result  *domain.DeploymentResult
	Record  *domain.RunRecord
}

// Execute runs load -> plan -> deploy. Errors raised before the first
// deployment (config and plan errors) return a nil result.
func (uc *DeployManifest) Execute(ctx context.Context, params DeployParams) (*DeployResult, error) {
	network, err := uc.networks.Load(params.Network)
	if err != nil {
		return nil, err
	}

	manifest, err := uc.manifests.Load(ctx, params.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	plan, err := BuildPlan(manifest.Group, manifest.Units)
	if err != nil {
		return nil, fmt.Errorf("invalid deployment plan: %w", err)
	}

	uc.log.Debug("plan built", "group", plan.Group, "network", network.Name, "units", plan.IDs())

	if !params.DryRun && !params.NonInteractive && !network.IsLocal() {
		prompt := fmt.Sprintf("Deploy %d unit(s) to %s (%s)", len(plan.Units), network.Name, network.RPCURL())
		ok, err := uc.confirmer.Confirm(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to confirm deployment: %w", err)
		}
		if !ok {
			return nil, ErrNotConfirmed
		}
	}

	record := &domain.RunRecord{
		ID:        uuid.NewString(),
		Group:     plan.Group,
		Network:   network.Name,
		DryRun:    params.DryRun,
		Status:    domain.RunStatusRunning,
		StartedAt: uc.now().UTC(),
	}
	uc.saveRecord(ctx, record)

	orchestrator := NewOrchestrator(uc.backend, uc.progress, uc.log.With("run", record.ID))
	result, runErr := orchestrator.Run(ctx, plan, network, uc.recordStep(record))

	finished := uc.now().UTC()
	record.FinishedAt = &finished
	record.Status = domain.RunStatusCompleted
	var failure *domain.DeploymentFailure
	var cancelled *domain.CancelledErr
	switch {
	case errors.As(runErr, &failure):
		record.Status = domain.RunStatusFailed
		record.FailedUnit = failure.Unit
		record.Error = failure.Err.Error()
	case errors.As(runErr, &cancelled):
		record.Status = domain.RunStatusCancelled
		record.Error = cancelled.Error()
	case runErr != nil:
		record.Status = domain.RunStatusFailed
		record.Error = runErr.Error()
	}
	uc.saveRecord(ctx, record)

	return &DeployResult{
		Plan:    plan,
		Network: network,
		Result:  result,
		Record:  record,
	}, runErr
}

// recordStep appends each unit outcome to the run record and persists it
func (uc *DeployManifest) recordStep(record *domain.RunRecord) StepHook {
	return func(ctx context.Context, unit domain.DeploymentSpec, args []any, address string, err error) {
		entry := domain.UnitRecord{
			ID:       unit.ID,
			Contract: unit.ContractName(),
			Address:  address,
		}
		for _, arg := range args {
			entry.Args = append(entry.Args, fmt.Sprintf("%v", arg))
		}
		if err != nil {
			entry.Error = err.Error()
		}
		record.Units = append(record.Units, entry)
		uc.saveRecord(ctx, record)
	}
}

// saveRecord persists the run record. History is best effort and never
// changes the outcome of a run.
func (uc *DeployManifest) saveRecord(ctx context.Context, record *domain.RunRecord) {
	if err := uc.store.SaveRun(context.WithoutCancel(ctx), record); err != nil {
		uc.log.Warn("failed to save run record", "run", record.ID, "error", err)
	}
}
