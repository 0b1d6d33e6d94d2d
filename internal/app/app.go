package app

import (
	"github.com/capybara-io/capydeploy/internal/cli/render"
	"github.com/capybara-io/capydeploy/internal/domain/config"
	"github.com/capybara-io/capydeploy/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig

	// Shared dependencies
	Networks usecase.NetworkLoader
	Selector usecase.NetworkSelector

	// Use cases
	DeployManifest *usecase.DeployManifest
	ShowPlan       *usecase.ShowPlan
	ListNetworks   *usecase.ListNetworks
	ListRuns       *usecase.ListRuns
	VerifyRun      *usecase.VerifyRun

	// Renderers
	DeployRenderer *render.DeployRenderer
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	networks usecase.NetworkLoader,
	selector usecase.NetworkSelector,
	deployManifest *usecase.DeployManifest,
	showPlan *usecase.ShowPlan,
	listNetworks *usecase.ListNetworks,
	listRuns *usecase.ListRuns,
	verifyRun *usecase.VerifyRun,
	deployRenderer *render.DeployRenderer,
) (*App, error) {
	return &App{
		Config:         cfg,
		Networks:       networks,
		Selector:       selector,
		DeployManifest: deployManifest,
		ShowPlan:       showPlan,
		ListNetworks:   listNetworks,
		ListRuns:       listRuns,
		VerifyRun:      verifyRun,
		DeployRenderer: deployRenderer,
	}, nil
}
