package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/capybara-io/capydeploy/internal/domain/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
}

func TestProvider_Defaults(t *testing.T) {
	root := t.TempDir()

	v, err := SetupViper(root, "", nil)
	require.NoError(t, err)

	cfg, err := Provider(v)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, DataDirName), cfg.DataDir)
	assert.Empty(t, cfg.ConfigFile)
	assert.Equal(t, filepath.Join(root, "deployments.yaml"), cfg.ManifestPath)
	assert.Equal(t, filepath.Join(root, "build", "contracts"), cfg.ArtifactsDir)
	assert.Equal(t, 5*time.Minute, cfg.DeployTimeout)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, uint(5), cfg.RPCRetries)
	assert.Equal(t, config.RegistryDriverJSON, cfg.Registry.Driver)
	assert.Equal(t, cfg.DataDir, cfg.Registry.Path)
	assert.False(t, cfg.DryRun)
}

func TestProvider_ConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "capydeploy.yaml",
			content: `manifest: deploy/capybara.yaml
deploy_timeout: 90s
registry:
  driver: sqlite
  path: var/history
`,
		},
		{
			name: "toml",
			file: "capydeploy.toml",
			content: `manifest = "deploy/capybara.yaml"
deploy_timeout = "90s"

[registry]
driver = "sqlite"
path = "var/history"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeConfig(t, root, tt.file, tt.content)

			v, err := SetupViper(root, "", nil)
			require.NoError(t, err)
			cfg, err := Provider(v)
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(root, tt.file), cfg.ConfigFile)
			assert.Equal(t, filepath.Join(root, "deploy", "capybara.yaml"), cfg.ManifestPath)
			assert.Equal(t, 90*time.Second, cfg.DeployTimeout)
			assert.Equal(t, config.RegistryDriverSQLite, cfg.Registry.Driver)
			assert.Equal(t, filepath.Join(root, "var", "history"), cfg.Registry.Path)
		})
	}
}

func TestProvider_Precedence(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "capydeploy.yaml", "manifest: from-file.yaml\ndeploy_timeout: 1m\n")
	t.Setenv("CAPY_DEPLOY_TIMEOUT", "2m")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("manifest", "f", "", "")
	flags.Bool("dry-run", false, "")
	require.NoError(t, flags.Parse([]string{"-f", "from-flag.yaml", "--dry-run"}))

	v, err := SetupViper(root, "", flags)
	require.NoError(t, err)
	cfg, err := Provider(v)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "from-flag.yaml"), cfg.ManifestPath)
	assert.Equal(t, 2*time.Minute, cfg.DeployTimeout)
	assert.True(t, cfg.DryRun)
}

func TestProvider_DotEnv(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, ".env", "CAPY_DEPLOYER_KEY=0x4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d\n")
	t.Cleanup(func() { os.Unsetenv("CAPY_DEPLOYER_KEY") })

	v, err := SetupViper(root, "", nil)
	require.NoError(t, err)
	cfg, err := Provider(v)
	require.NoError(t, err)

	assert.Equal(t, "0x4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d", cfg.DeployerKey)
}

func TestProvider_Errors(t *testing.T) {
	t.Run("unsupported registry driver", func(t *testing.T) {
		root := t.TempDir()
		writeConfig(t, root, "capydeploy.yaml", "registry:\n  driver: postgres\n")

		v, err := SetupViper(root, "", nil)
		require.NoError(t, err)
		_, err = Provider(v)
		assert.ErrorContains(t, err, "unsupported registry driver 'postgres'")
	})

	t.Run("explicit config file must exist", func(t *testing.T) {
		_, err := SetupViper(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"), nil)
		assert.Error(t, err)
	})

	t.Run("malformed config", func(t *testing.T) {
		root := t.TempDir()
		writeConfig(t, root, "capydeploy.yaml", "networks: [unterminated\n")

		_, err := SetupViper(root, "", nil)
		assert.Error(t, err)
	})
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "capydeploy.yml", "")
	nested := filepath.Join(root, "contracts", "tokens")
	require.NoError(t, os.MkdirAll(nested, 0755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	found, err := FindProjectRoot()
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
