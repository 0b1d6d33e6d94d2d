package adapters

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/capybara-io/capydeploy/internal/adapters/blockchain"
	"github.com/capybara-io/capydeploy/internal/adapters/evm"
	"github.com/capybara-io/capydeploy/internal/adapters/interactive"
	"github.com/capybara-io/capydeploy/internal/adapters/manifest"
	"github.com/capybara-io/capydeploy/internal/adapters/progress"
	"github.com/capybara-io/capydeploy/internal/adapters/repository/runs"
	"github.com/capybara-io/capydeploy/internal/cli/render"
	internalconfig "github.com/capybara-io/capydeploy/internal/config"
	"github.com/capybara-io/capydeploy/internal/domain/config"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/google/wire"
)

// ProvideArtifactStore searches the configured artifacts directory first,
// then the Foundry output directory
func ProvideArtifactStore(cfg *config.RuntimeConfig) *evm.ArtifactStore {
	return evm.NewArtifactStore(cfg.ArtifactsDir, filepath.Join(cfg.ProjectRoot, "out"))
}

// ProvideBackend provides an in-process chain for dry runs and a JSON-RPC
// backend otherwise. The cleanup closes every open session.
func ProvideBackend(cfg *config.RuntimeConfig, artifacts *evm.ArtifactStore, log *slog.Logger) (*evm.Backend, func(), error) {
	opts := evm.Options{
		DeployTimeout: cfg.DeployTimeout,
		PollInterval:  cfg.PollInterval,
	}

	if cfg.DryRun {
		backend := evm.NewSimulatedBackend(artifacts, opts, evm.DefaultSimBlockTime, log)
		return backend, backend.Close, nil
	}

	backend, err := evm.NewRPCBackend(artifacts, evm.RPCConfig{
		Options:     opts,
		DeployerKey: cfg.DeployerKey,
		Retries:     cfg.RPCRetries,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return backend, backend.Close, nil
}

// ProvideRunStore provides the run history store selected by registry.driver
func ProvideRunStore(cfg *config.RuntimeConfig) (usecase.RunStore, func(), error) {
	switch cfg.Registry.Driver {
	case config.RegistryDriverSQLite:
		repo, err := runs.NewSQLiteRepository(cfg.Registry.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	case config.RegistryDriverJSON, "":
		repo, err := runs.NewFileRepository(cfg.Registry.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported registry driver '%s'", cfg.Registry.Driver)
	}
}

// ProvideChainChecker provides a checker whose clients are closed on cleanup
func ProvideChainChecker() (*blockchain.CheckerAdapter, func()) {
	checker := blockchain.NewCheckerAdapter()
	return checker, checker.Close
}

// ProvideDeployRenderer provides a renderer on the process streams
func ProvideDeployRenderer() *render.DeployRenderer {
	return render.NewDeployRenderer(os.Stdout, os.Stderr)
}

// ConfigSet provides configuration-based implementations
var ConfigSet = wire.NewSet(
	internalconfig.NewNetworkLoader,
	wire.Bind(new(usecase.NetworkLoader), new(*internalconfig.NetworkLoader)),
)

// ManifestSet provides manifest readers
var ManifestSet = wire.NewSet(
	manifest.NewLoader,
	wire.Bind(new(usecase.ManifestLoader), new(*manifest.Loader)),
)

// EVMSet provides the deployment backend
var EVMSet = wire.NewSet(
	ProvideArtifactStore,
	ProvideBackend,
	wire.Bind(new(usecase.DeploymentBackend), new(*evm.Backend)),
)

// BlockchainSet provides blockchain-based implementations
var BlockchainSet = wire.NewSet(
	ProvideChainChecker,
	wire.Bind(new(usecase.ChainChecker), new(*blockchain.CheckerAdapter)),
)

// RepositorySet provides run history storage
var RepositorySet = wire.NewSet(
	ProvideRunStore,
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewPromptAdapter,
	wire.Bind(new(usecase.Confirmer), new(*interactive.PromptAdapter)),
	wire.Bind(new(usecase.NetworkSelector), new(*interactive.PromptAdapter)),
)

// ProgressSet provides terminal progress reporting
var ProgressSet = wire.NewSet(
	ProvideDeployRenderer,
	progress.NewDeployProgress,
	wire.Bind(new(usecase.ProgressSink), new(*progress.DeployProgress)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	ConfigSet,
	ManifestSet,
	EVMSet,
	BlockchainSet,
	RepositorySet,
	InteractiveSet,
	ProgressSet,
)
