package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/capybara-io/capydeploy/internal/domain/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigName is the base name of the project config file (capydeploy.yaml, .toml or .json)
	ConfigName = "capydeploy"
	// DataDirName holds run history and other local state
	DataDirName = ".capydeploy"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "CAPY"
)

var configExtensions = []string{"yaml", "yml", "toml", "json"}

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	retries := v.GetUint("rpc_retries")
	if retries == 0 {
		retries = 1
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    absRoot,
		DataDir:        filepath.Join(absRoot, DataDirName),
		ConfigFile:     v.ConfigFileUsed(),
		ManifestPath:   resolvePath(absRoot, v.GetString("manifest")),
		ArtifactsDir:   resolvePath(absRoot, v.GetString("artifacts_dir")),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		DryRun:         v.GetBool("dry_run"),
		DeployTimeout:  v.GetDuration("deploy_timeout"),
		RPCRetries:     retries,
		PollInterval:   v.GetDuration("poll_interval"),
		DeployerKey:    strings.TrimSpace(v.GetString("deployer_key")),
		Registry: config.RegistryConfig{
			Driver: strings.ToLower(v.GetString("registry.driver")),
			Path:   v.GetString("registry.path"),
		},
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = cfg.DataDir
	} else {
		cfg.Registry.Path = resolvePath(absRoot, cfg.Registry.Path)
	}

	switch cfg.Registry.Driver {
	case config.RegistryDriverJSON, config.RegistryDriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported registry driver '%s' (expected %s or %s)",
			cfg.Registry.Driver, config.RegistryDriverJSON, config.RegistryDriverSQLite)
	}

	return cfg, nil
}

// FindProjectRoot walks up from current directory to find a capydeploy config file
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range configExtensions {
			if _, err := os.Stat(filepath.Join(dir, ConfigName+"."+ext)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a capydeploy project (%s.yaml not found)", ConfigName)
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance. configFile overrides
// the lookup of capydeploy.* in projectRoot when set. Flags in flags are
// bound under their own names with dashes turned into underscores.
func SetupViper(projectRoot, configFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	loadDotEnv(projectRoot)

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(projectRoot)
	}

	// Set up environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("project_root", projectRoot)
	v.SetDefault("manifest", "deployments.yaml")
	v.SetDefault("artifacts_dir", "build/contracts")
	v.SetDefault("deploy_timeout", "5m")
	v.SetDefault("rpc_retries", 5)
	v.SetDefault("poll_interval", "1s")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("registry.driver", config.RegistryDriverJSON)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	return v, nil
}

// resolvePath makes path absolute relative to root
func resolvePath(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
