package usecase

import (
	"context"

	"github.com/capybara-io/capydeploy/internal/domain"
)

// DeployRequest is one unit handed to the backend with its arguments resolved
type DeployRequest struct {
	Unit     string
	Contract string
	Args     []any
}

// DeploymentBackend performs deployments. Deploy may be slow and may fail; it
// owns any timeout and retry policy.
type DeploymentBackend interface {
	// Deploy deploys one contract and returns its address
	Deploy(ctx context.Context, req DeployRequest, network domain.NetworkConfig) (string, error)
	// Deployer returns the account address deployments are sent from
	Deployer(ctx context.Context, network domain.NetworkConfig) (string, error)
}

// NetworkLoader resolves network names to configurations
type NetworkLoader interface {
	Load(name string) (domain.NetworkConfig, error)
	Networks() []string
}

// ManifestLoader reads the units declared in a manifest file
type ManifestLoader interface {
	Load(ctx context.Context, path string) (*domain.Manifest, error)
}

// RunStore persists run history
type RunStore interface {
	SaveRun(ctx context.Context, run *domain.RunRecord) error
	GetRun(ctx context.Context, id string) (*domain.RunRecord, error)
	// ListRuns returns runs newest first; an empty network lists every network
	ListRuns(ctx context.Context, network string) ([]*domain.RunRecord, error)
}

// ChainChecker inspects the current state of a network
type ChainChecker interface {
	ChainID(ctx context.Context, network domain.NetworkConfig) (uint64, error)
	CodeExists(ctx context.Context, network domain.NetworkConfig, address string) (bool, error)
}

// Confirmer asks the user before an irreversible action
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// NetworkSelector lets the user pick a network when none was given
type NetworkSelector interface {
	SelectNetwork(ctx context.Context, networks []string) (string, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    RunStage
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata any
}

// RunStage names a point in a run that progress sinks react to
type RunStage string

const (
	StagePlanCreated  RunStage = "plan_created"
	StageUnitStarting RunStage = "unit_starting"
	StageUnitDeployed RunStage = "unit_deployed"
	StageUnitFailed   RunStage = "unit_failed"
	StageRunCompleted RunStage = "run_completed"
)

// UnitEvent is the metadata of unit_* progress events
type UnitEvent struct {
	Unit     string
	Contract string
	Address  string
	Args     []any
	Err      error
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
