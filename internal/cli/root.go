package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/capybara-io/capydeploy/internal/app"
	"github.com/capybara-io/capydeploy/internal/config"
	"github.com/spf13/cobra"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// Execute runs the root command and releases the app once it returns
func Execute(ctx context.Context) error {
	var release func()
	rootCmd := newRootCmd(&release)
	defer func() {
		if release != nil {
			release()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var release func()
	return newRootCmd(&release)
}

func newRootCmd(release *func()) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "capydeploy",
		Short: "Dependency-ordered smart contract deployments",
		Long: `capydeploy deploys the contracts declared in a manifest to a configured
network. Units are ordered by their dependencies, deployed one at a time, and
each unit can take the addresses of the units deployed before it as
constructor arguments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			configFile, _ := cmd.Flags().GetString("config")
			projectRoot, err := resolveProjectRoot(cmd, configFile)
			if err != nil {
				return err
			}

			v, err := config.SetupViper(projectRoot, configFile, cmd.Flags())
			if err != nil {
				return err
			}

			// Initialize app with DI
			appInstance, cleanup, err := app.InitApp(v)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			*release = cleanup

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, appKey, appInstance))

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if *release != nil {
				(*release)()
				*release = nil
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Config file (default: capydeploy.yaml in the project root)")
	rootCmd.PersistentFlags().String("project-root", "", "Project root (default: nearest directory with a capydeploy config)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")

	// Add command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	// Main commands
	deployCmd := NewDeployCmd()
	deployCmd.GroupID = "main"
	rootCmd.AddCommand(deployCmd)

	planCmd := NewPlanCmd()
	planCmd.GroupID = "main"
	rootCmd.AddCommand(planCmd)

	// Management commands
	networksCmd := NewNetworksCmd()
	networksCmd.GroupID = "management"
	rootCmd.AddCommand(networksCmd)

	runsCmd := NewRunsCmd()
	runsCmd.GroupID = "management"
	rootCmd.AddCommand(runsCmd)

	// Version command
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// resolveProjectRoot prefers --project-root, then the directory of --config,
// then the nearest directory holding a capydeploy config file
func resolveProjectRoot(cmd *cobra.Command, configFile string) (string, error) {
	if root, _ := cmd.Flags().GetString("project-root"); root != "" {
		return root, nil
	}

	root, err := config.FindProjectRoot()
	if err == nil {
		return root, nil
	}
	if configFile != "" {
		return filepath.Dir(configFile), nil
	}
	return "", err
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
