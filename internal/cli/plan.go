package cli

import (
	"github.com/spf13/cobra"
)

// NewPlanCmd creates the plan command
func NewPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the order units would be deployed in",
		Long: `Build the deployment plan of the manifest and print it without connecting
to any network. Cycles, duplicate ids and references to undeclared units are
reported here before anything is deployed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			plan, err := app.ShowPlan.Run(cmd.Context(), app.Config.ManifestPath)
			if err != nil {
				return err
			}

			app.DeployRenderer.RenderPlan(plan)
			return nil
		},
	}

	cmd.Flags().StringP("manifest", "f", "", "Manifest file (default: deployments.yaml)")

	return cmd
}
