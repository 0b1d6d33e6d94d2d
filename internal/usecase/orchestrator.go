package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/capybara-io/capydeploy/internal/domain"
)

// StepHook is called after every unit, successful or not. The run record is
// kept current through it.
type StepHook func(ctx context.Context, unit domain.DeploymentSpec, args []any, address string, err error)

// Orchestrator executes a plan against one network, one unit at a time
type Orchestrator struct {
	backend  DeploymentBackend
	progress ProgressSink
	log      *slog.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(backend DeploymentBackend, progress ProgressSink, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		backend:  backend,
		progress: progress,
		log:      log,
	}
}

// Run deploys every unit of plan in order and returns the addresses recorded.
// On failure the run stops at once and the partial result is returned along
// with a *domain.DeploymentFailure. Committed deployments are never rolled back.
func (o *Orchestrator) Run(ctx context.Context, plan *domain.DeploymentPlan, network domain.NetworkConfig, hooks ...StepHook) (*domain.DeploymentResult, error) {
	result := domain.NewDeploymentResult()
	total := len(plan.Units)

	o.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StagePlanCreated,
		Total:    total,
		Metadata: plan,
	})

	for i, unit := range plan.Units {
		// Cancellation is only honoured between units
		if err := ctx.Err(); err != nil {
			o.log.Warn("run cancelled", "next_unit", unit.ID, "deployed", result.Len())
			return result, &domain.CancelledErr{NextUnit: unit.ID, Partial: result, Err: err}
		}

		o.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageUnitStarting,
			Current:  i + 1,
			Total:    total,
			Message:  fmt.Sprintf("Deploying %s", unit.ID),
			Spinner:  true,
			Metadata: UnitEvent{Unit: unit.ID, Contract: unit.ContractName()},
		})

		args, address, err := o.deployUnit(ctx, unit, result, network)
		for _, hook := range hooks {
			hook(ctx, unit, args, address, err)
		}

		if err != nil {
			o.log.Error("deployment failed", "unit", unit.ID, "contract", unit.ContractName(), "error", err)
			o.progress.OnProgress(ctx, ProgressEvent{
				Stage:    StageUnitFailed,
				Current:  i + 1,
				Total:    total,
				Metadata: UnitEvent{Unit: unit.ID, Contract: unit.ContractName(), Args: args, Err: err},
			})
			return result, &domain.DeploymentFailure{Unit: unit.ID, Partial: result, Err: err}
		}

		o.log.Info("unit deployed", "unit", unit.ID, "address", address)
		o.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageUnitDeployed,
			Current:  i + 1,
			Total:    total,
			Metadata: UnitEvent{Unit: unit.ID, Contract: unit.ContractName(), Address: address, Args: args},
		})
	}

	o.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StageRunCompleted,
		Current:  total,
		Total:    total,
		Metadata: result,
	})

	return result, nil
}

// deployUnit resolves the arguments of unit, deploys it and records the address
func (o *Orchestrator) deployUnit(ctx context.Context, unit domain.DeploymentSpec, result *domain.DeploymentResult, network domain.NetworkConfig) ([]any, string, error) {
	for _, dep := range unit.DependsOn {
		if _, ok := result.Address(dep); !ok {
			return nil, "", fmt.Errorf("dependency '%s' has not been deployed: %w", dep, domain.ErrUnknownReference)
		}
	}

	args, err := o.resolveArgs(ctx, unit, result, network)
	if err != nil {
		return nil, "", err
	}

	o.log.Debug("deploying unit", "unit", unit.ID, "contract", unit.ContractName(), "args", args)

	// A submitted deployment cannot be aborted, so it never sees cancellation
	address, err := o.backend.Deploy(context.WithoutCancel(ctx), DeployRequest{
		Unit:     unit.ID,
		Contract: unit.ContractName(),
		Args:     args,
	}, network)
	if err != nil {
		return args, "", err
	}

	if err := result.Record(unit.ID, address); err != nil {
		return args, address, err
	}

	return args, address, nil
}

// resolveArgs replaces address and deployer references with concrete values
func (o *Orchestrator) resolveArgs(ctx context.Context, unit domain.DeploymentSpec, result *domain.DeploymentResult, network domain.NetworkConfig) ([]any, error) {
	args := make([]any, len(unit.Args))
	for i, arg := range unit.Args {
		switch arg.Kind {
		case domain.ArgLiteral:
			args[i] = arg.Value
		case domain.ArgAddress:
			address, ok := result.Address(arg.Ref)
			if !ok {
				return nil, fmt.Errorf("argument %d references '%s' which has no address: %w", i, arg.Ref, domain.ErrUnknownReference)
			}
			args[i] = address
		case domain.ArgDeployer:
			deployer, err := o.backend.Deployer(context.WithoutCancel(ctx), network)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve deployer for argument %d: %w", i, err)
			}
			args[i] = deployer
		default:
			return nil, fmt.Errorf("argument %d has unknown kind '%s': %w", i, arg.Kind, domain.ErrInvalidSpec)
		}
	}
	return args, nil
}
