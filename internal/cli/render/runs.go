package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RunsRenderer renders recorded run history
type RunsRenderer struct {
	out io.Writer
}

// NewRunsRenderer creates a new runs renderer
func NewRunsRenderer(out io.Writer) *RunsRenderer {
	return &RunsRenderer{out: out}
}

// RenderList renders one line per run, newest first
func (r *RunsRenderer) RenderList(runs []*domain.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(r.out, "No runs recorded yet")
		return
	}

	t := newTable(r.out, "RUN", "STARTED", "NETWORK", "GROUP", "STATUS", "UNITS")
	for _, run := range runs {
		group := run.Group
		if run.DryRun {
			group += " (dry-run)"
		}
		t.AppendRow([]any{
			shortID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			run.Network,
			group,
			statusLabel(run.Status),
			fmt.Sprintf("%d", len(run.Addresses())),
		})
	}
	t.Render()
}

// RenderRun renders the details of a single run
func (r *RunsRenderer) RenderRun(run *domain.RunRecord) {
	color.New(color.Bold).Fprintf(r.out, "Run %s\n", run.ID)
	fmt.Fprintf(r.out, "  Group:    %s\n", run.Group)
	fmt.Fprintf(r.out, "  Network:  %s\n", run.Network)
	if run.DryRun {
		fmt.Fprintf(r.out, "  Mode:     dry-run\n")
	}
	fmt.Fprintf(r.out, "  Status:   %s\n", statusLabel(run.Status))
	fmt.Fprintf(r.out, "  Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		fmt.Fprintf(r.out, "  Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	if run.FailedUnit != "" {
		fmt.Fprintf(r.out, "  Failed:   %s\n", color.New(color.FgRed).Sprint(run.FailedUnit))
	}
	if run.Error != "" {
		fmt.Fprintf(r.out, "  Error:    %s\n", run.Error)
	}

	if len(run.Units) == 0 {
		return
	}
	fmt.Fprintln(r.out)
	t := newTable(r.out, "UNIT", "CONTRACT", "ADDRESS", "ARGS")
	for _, unit := range run.Units {
		addr := unit.Address
		if unit.Error != "" {
			addr = color.New(color.FgRed).Sprintf("failed: %s", unit.Error)
		}
		t.AppendRow([]any{unit.ID, unit.Contract, addr, fmt.Sprintf("%v", unit.Args)})
	}
	t.Render()
}

func statusLabel(status domain.RunStatus) string {
	label := cases.Title(language.English).String(string(status))
	switch status {
	case domain.RunStatusCompleted:
		return color.New(color.FgGreen).Sprint(label)
	case domain.RunStatusFailed:
		return color.New(color.FgRed).Sprint(label)
	case domain.RunStatusCancelled:
		return color.New(color.FgYellow).Sprint(label)
	default:
		return color.New(color.FgCyan).Sprint(label)
	}
}

// RenderVerify renders the on-chain check of a run's addresses
func (r *RunsRenderer) RenderVerify(result *usecase.VerifyRunResult) {
	color.New(color.Bold).Fprintf(r.out, "Run %s on %s (chain %d)\n\n", shortID(result.Run.ID), result.Network.Name, result.ChainID)

	if len(result.Units) == 0 {
		fmt.Fprintln(r.out, "The run deployed no units")
		return
	}

	t := newTable(r.out, "", "UNIT", "ADDRESS", "STATUS")
	for _, check := range result.Units {
		switch {
		case check.Err != nil:
			t.AppendRow([]any{"⚠️", check.Unit, check.Address, color.New(color.FgYellow).Sprint(check.Err.Error())})
		case check.Deployed:
			t.AppendRow([]any{"✅", check.Unit, check.Address, color.New(color.FgGreen).Sprint("code present")})
		default:
			t.AppendRow([]any{"❌", check.Unit, check.Address, color.New(color.FgRed).Sprint("no code")})
		}
	}
	t.Render()

	if missing := result.Missing(); len(missing) > 0 {
		fmt.Fprintln(r.out)
		color.New(color.FgRed).Fprintf(r.out, "%d unit(s) missing: %s\n", len(missing), strings.Join(missing, ", "))
	}
}
