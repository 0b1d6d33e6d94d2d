package progress

import (
	"context"

	"github.com/capybara-io/capydeploy/internal/cli/render"
	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/capybara-io/capydeploy/internal/usecase"
)

// DeployProgress renders a run as it happens: the plan, then one block per unit
type DeployProgress struct {
	renderer *render.DeployRenderer
	spinner  *SpinnerProgressReporter

	planRendered bool
}

// NewDeployProgress creates a new deploy progress reporter
func NewDeployProgress(renderer *render.DeployRenderer) *DeployProgress {
	return &DeployProgress{
		renderer: renderer,
		spinner:  NewSpinnerProgressReporter(),
	}
}

// OnProgress handles progress events of a deployment run
func (p *DeployProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	switch event.Stage {
	case usecase.StagePlanCreated:
		if plan, ok := event.Metadata.(*domain.DeploymentPlan); ok && !p.planRendered {
			p.renderer.RenderPlan(plan)
			p.planRendered = true
		}

	case usecase.StageUnitStarting:
		if unit, ok := event.Metadata.(usecase.UnitEvent); ok {
			p.spinner.Stop()
			p.renderer.RenderUnitStarting(event.Current, event.Total, unit)
		}
		p.spinner.OnProgress(ctx, event)

	case usecase.StageUnitDeployed:
		p.spinner.Stop()
		if unit, ok := event.Metadata.(usecase.UnitEvent); ok {
			p.renderer.RenderUnitDeployed(unit)
		}

	case usecase.StageUnitFailed:
		p.spinner.Stop()
		if unit, ok := event.Metadata.(usecase.UnitEvent); ok {
			p.renderer.RenderUnitFailed(unit)
		}

	case usecase.StageRunCompleted:
		// Final summary is rendered by the CLI command after this returns
		p.spinner.Stop()

	default:
		p.spinner.OnProgress(ctx, event)
	}
}

// Info forwards info messages to the spinner
func (p *DeployProgress) Info(message string) {
	p.spinner.Info(message)
}

// Error forwards error messages to the spinner
func (p *DeployProgress) Error(message string) {
	p.spinner.Error(message)
}

var _ usecase.ProgressSink = (*DeployProgress)(nil)
