package cli

import (
	"fmt"

	"github.com/capybara-io/capydeploy/internal/cli/render"
	"github.com/spf13/cobra"
)

// NewRunsCmd creates the runs command
func NewRunsCmd() *cobra.Command {
	var network string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded deployment runs",
		Long: `List recorded deployment runs, newest first. Every run is recorded,
including failed, cancelled and dry runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			runs, err := app.ListRuns.Run(cmd.Context(), network)
			if err != nil {
				return err
			}

			render.NewRunsRenderer(cmd.OutOrStdout()).RenderList(runs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&network, "network", "n", "", "Only list runs on this network")
	cmd.AddCommand(newRunsShowCmd(), newRunsVerifyCmd())

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the units and addresses of a run",
		Long:  `Show a recorded run. The id may be shortened to any unique prefix.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			run, err := app.ListRuns.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			render.NewRunsRenderer(cmd.OutOrStdout()).RenderRun(run)
			return nil
		},
	}
}

func newRunsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <run-id>",
		Short: "Check that the addresses of a run still hold code",
		Long: `Connect to the network of a recorded run and check that every address
it deployed still holds contract code. Dry runs cannot be verified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.VerifyRun.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			render.NewRunsRenderer(cmd.OutOrStdout()).RenderVerify(result)
			if missing := result.Missing(); len(missing) > 0 {
				return fmt.Errorf("%d unit(s) of run %s have no code on %s", len(missing), result.Run.ID, result.Network.Name)
			}
			return nil
		},
	}
}
