package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/fatih/color"
)

// DeployRenderer renders deployment plans, unit outcomes and run summaries
type DeployRenderer struct {
	out    io.Writer
	errOut io.Writer
}

// NewDeployRenderer creates a new deploy renderer
func NewDeployRenderer(out, errOut io.Writer) *DeployRenderer {
	return &DeployRenderer{
		out:    out,
		errOut: errOut,
	}
}

// GetWriter returns the io.Writer used for regular output
func (r *DeployRenderer) GetWriter() io.Writer {
	return r.out
}

// RenderPlan displays the units of plan in execution order
func (r *DeployRenderer) RenderPlan(plan *domain.DeploymentPlan) {
	fmt.Fprintf(r.out, "\n🎯 Deploying %s\n", plan.Group)
	fmt.Fprintf(r.out, "📋 Execution plan: %d unit(s)\n", len(plan.Units))
	fmt.Fprintf(r.out, "%s\n", strings.Repeat("─", 50))

	for i, unit := range plan.Units {
		fmt.Fprintf(r.out, "%d. ", i+1)
		color.New(color.FgCyan).Fprintf(r.out, "%s", unit.ID)

		if unit.ContractName() != unit.ID {
			fmt.Fprintf(r.out, " → ")
			color.New(color.FgGreen).Fprintf(r.out, "%s", unit.ContractName())
		}

		if len(unit.Args) > 0 {
			args := make([]string, len(unit.Args))
			for j, arg := range unit.Args {
				args[j] = arg.String()
			}
			fmt.Fprintf(r.out, "(%s)", strings.Join(args, ", "))
		}

		if deps := unit.Dependencies(); len(deps) > 0 {
			color.New(color.FgHiBlack).Fprintf(r.out, " (depends on: %s)", strings.Join(deps, ", "))
		}

		fmt.Fprintln(r.out)
	}

	fmt.Fprintln(r.out)
}

// RenderUnitStarting shows the header of a unit about to be deployed
func (r *DeployRenderer) RenderUnitStarting(current, total int, event usecase.UnitEvent) {
	color.New(color.Bold).Fprintf(r.out, "[%d/%d] %s\n", current, total, event.Unit)
}

// RenderUnitDeployed shows the address of a deployed unit
func (r *DeployRenderer) RenderUnitDeployed(event usecase.UnitEvent) {
	color.New(color.FgGreen).Fprintf(r.out, "  ✓ %s deployed at ", event.Contract)
	color.New(color.FgYellow).Fprintln(r.out, event.Address)
}

// RenderUnitFailed shows why a unit failed
func (r *DeployRenderer) RenderUnitFailed(event usecase.UnitEvent) {
	color.New(color.FgRed).Fprintf(r.out, "  ✗ %s failed: %v\n", event.Contract, event.Err)
}

// RenderResult displays the final summary of a run. A failed or cancelled run
// is reported on the error writer together with the partial result.
func (r *DeployRenderer) RenderResult(result *usecase.DeployResult, runErr error) {
	var failure *domain.DeploymentFailure
	var cancelled *domain.CancelledErr

	switch {
	case runErr == nil:
		fmt.Fprintf(r.out, "%s\n", strings.Repeat("═", 70))
		verb := "Deployed"
		if result.Record != nil && result.Record.DryRun {
			verb = "Simulated"
		}
		color.New(color.FgGreen, color.Bold).Fprintf(r.out, "🎉 %s %d unit(s) of %s to %s\n",
			verb, result.Result.Len(), result.Plan.Group, result.Network.Name)
		r.renderAddresses(r.out, result.Result)
		r.renderRunID(r.out, result.Record)

	case errors.As(runErr, &failure):
		fmt.Fprintf(r.errOut, "%s\n", strings.Repeat("═", 70))
		color.New(color.FgRed, color.Bold).Fprintf(r.errOut, "❌ Deployment failed at unit %s\n", failure.Unit)
		fmt.Fprintf(r.errOut, "  Error: %v\n", failure.Err)
		r.renderPartial(result, failure.Partial)

	case errors.As(runErr, &cancelled):
		fmt.Fprintf(r.errOut, "%s\n", strings.Repeat("═", 70))
		color.New(color.FgYellow, color.Bold).Fprintf(r.errOut, "⚠️  Run cancelled before unit %s\n", cancelled.NextUnit)
		r.renderPartial(result, cancelled.Partial)
	}
}

func (r *DeployRenderer) renderPartial(result *usecase.DeployResult, partial *domain.DeploymentResult) {
	total := 0
	if result != nil && result.Plan != nil {
		total = len(result.Plan.Units)
	}
	fmt.Fprintf(r.errOut, "\n📊 Partial result: %d/%d unit(s) deployed\n", partial.Len(), total)
	if partial.Len() > 0 {
		r.renderAddresses(r.errOut, partial)
	}
	if result != nil {
		r.renderRunID(r.errOut, result.Record)
	}
}

func (r *DeployRenderer) renderAddresses(out io.Writer, result *domain.DeploymentResult) {
	if result.Len() == 0 {
		return
	}
	fmt.Fprintln(out)
	t := newTable(out, "UNIT", "ADDRESS")
	for _, id := range result.IDs() {
		addr, _ := result.Address(id)
		t.AppendRow([]any{id, addr})
	}
	t.Render()
}

func (r *DeployRenderer) renderRunID(out io.Writer, record *domain.RunRecord) {
	if record == nil {
		return
	}
	color.New(color.FgHiBlack).Fprintf(out, "\nRun %s recorded\n", record.ID)
}
