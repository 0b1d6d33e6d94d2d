package cli

import (
	"github.com/capybara-io/capydeploy/internal/cli/render"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewNetworksCmd creates the networks command
func NewNetworksCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List networks configured in capydeploy.yaml",
		Long: `List all networks configured in the networks section of the project config.

Each network is fully resolved, so missing or invalid fields are reported here.
With --check every network is contacted and its chain id compared with the
configured network_id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Get app from context
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			// Run use case
			result, err := app.ListNetworks.Run(cmd.Context(), usecase.ListNetworksParams{Probe: check})
			if err != nil {
				return err
			}

			// Render output
			return render.NewNetworksRenderer(cmd.OutOrStdout()).RenderNetworksList(result)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Connect to each network and fetch its chain id")

	return cmd
}
