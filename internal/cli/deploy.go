package cli

import (
	"fmt"

	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewDeployCmd creates the deploy command
func NewDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy [network]",
		Short: "Deploy the units of a manifest to a network",
		Long: `Deploy every unit of the manifest to the given network in dependency order.

Units are deployed one at a time. When a unit fails the run stops, the failing
unit is reported and the addresses of the units deployed so far are printed.
Deployed contracts are never rolled back. Interrupting the run stops it before
the next unit.

With --dry-run the plan is executed against an in-process chain and nothing is
sent to the network.`,
		Example: `  capydeploy deploy development
  capydeploy deploy sepolia -f deployments/capybara.yaml
  capydeploy deploy mainnet --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var network string
			if len(args) > 0 {
				network = args[0]
			} else {
				network, err = app.Selector.SelectNetwork(ctx, app.Networks.Networks())
				if err != nil {
					return err
				}
			}

			result, err := app.DeployManifest.Execute(ctx, usecase.DeployParams{
				ManifestPath:   app.Config.ManifestPath,
				Network:        network,
				DryRun:         app.Config.DryRun,
				NonInteractive: app.Config.NonInteractive,
			})
			if result != nil {
				app.DeployRenderer.RenderResult(result, err)
			}
			if err != nil {
				return fmt.Errorf("deploy %s: %w", network, err)
			}
			return nil
		},
	}

	cmd.Flags().StringP("manifest", "f", "", "Manifest file (default: deployments.yaml)")
	cmd.Flags().Bool("dry-run", false, "Run against an in-process chain instead of the network")

	return cmd
}
