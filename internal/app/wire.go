//go:build wireinject
// +build wireinject

package app

import (
	"github.com/capybara-io/capydeploy/internal/adapters"
	"github.com/capybara-io/capydeploy/internal/config"
	"github.com/capybara-io/capydeploy/internal/logging"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/google/wire"
	"github.com/spf13/viper"
)

// InitApp creates a fully wired App instance. The cleanup releases network
// sessions and the run store.
func InitApp(v *viper.Viper) (*App, func(), error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewDeployManifest,
		usecase.NewShowPlan,
		usecase.NewListNetworks,
		usecase.NewListRuns,
		usecase.NewVerifyRun,

		// App
		NewApp,
	)
	return nil, nil, nil
}
