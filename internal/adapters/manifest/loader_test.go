package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capybaraYAML = `group: Capybara
units:
  - id: CapybaraToken
    args:
      - deployer: true
  - id: CapybaraNFTGate
    args:
      - value: Capybara NFT Gate
      - value: CAPYBARA-GATE
  - id: CapybaraDispenser
    depends_on: [CapybaraToken, CapybaraNFTGate]
    args:
      - ref: CapybaraToken
      - ref: CapybaraNFTGate
      - value: https://capybara.io/proxy
`

const capybaraTOML = `group = "Capybara"

[[units]]
id = "CapybaraToken"
args = [{ deployer = true }]

[[units]]
id = "CapybaraNFTGate"
args = [{ value = "Capybara NFT Gate" }, { value = "CAPYBARA-GATE" }]

[[units]]
id = "CapybaraDispenser"
depends_on = ["CapybaraToken", "CapybaraNFTGate"]
args = [
  { ref = "CapybaraToken" },
  { ref = "CapybaraNFTGate" },
  { value = "https://capybara.io/proxy" },
]
`

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_Load(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "yaml", file: "deployments.yaml", content: capybaraYAML},
		{name: "yml", file: "deployments.yml", content: capybaraYAML},
		{name: "toml", file: "deployments.toml", content: capybaraTOML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.file, tt.content)

			m, err := NewLoader().Load(context.Background(), path)
			require.NoError(t, err)

			assert.Equal(t, "Capybara", m.Group)
			require.Len(t, m.Units, 3)

			assert.Equal(t, "CapybaraToken", m.Units[0].ID)
			assert.Equal(t, []domain.ArgValue{domain.DeployerRef()}, m.Units[0].Args)

			assert.Equal(t, "CapybaraNFTGate", m.Units[1].ID)
			assert.Equal(t, []domain.ArgValue{
				domain.Literal("Capybara NFT Gate"),
				domain.Literal("CAPYBARA-GATE"),
			}, m.Units[1].Args)

			dispenser := m.Units[2]
			assert.Equal(t, "CapybaraDispenser", dispenser.ID)
			assert.Equal(t, []string{"CapybaraToken", "CapybaraNFTGate"}, dispenser.DependsOn)
			assert.Equal(t, []domain.ArgValue{
				domain.AddressRef("CapybaraToken"),
				domain.AddressRef("CapybaraNFTGate"),
				domain.Literal("https://capybara.io/proxy"),
			}, dispenser.Args)
		})
	}
}

func TestLoader_GroupDefaultsToFileName(t *testing.T) {
	path := writeManifest(t, "tokens.yaml", "units:\n  - id: Token\n")

	m, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "tokens", m.Group)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		contains string
		is       error
	}{
		{
			name:     "two kinds in one argument",
			file:     "m.yaml",
			content:  "units:\n  - id: Gate\n    args:\n      - value: x\n        ref: Token\n",
			contains: "unit 'Gate' argument 0",
			is:       domain.ErrInvalidSpec,
		},
		{
			name:     "empty argument",
			file:     "m.yaml",
			content:  "units:\n  - id: Gate\n    args:\n      - value: x\n      - {}\n",
			contains: "unit 'Gate' argument 1",
			is:       domain.ErrInvalidSpec,
		},
		{
			name:     "deployer false",
			file:     "m.toml",
			content:  "[[units]]\nid = \"Gate\"\nargs = [{ deployer = false }]\n",
			contains: "'deployer' can only be true",
			is:       domain.ErrInvalidSpec,
		},
		{
			name:     "missing id",
			file:     "m.yaml",
			content:  "units:\n  - contract: Token\n",
			contains: "id is required",
			is:       domain.ErrInvalidSpec,
		},
		{
			name:     "unknown yaml key",
			file:     "m.yaml",
			content:  "units:\n  - id: Token\n    dependsOn: [Gate]\n",
			contains: "dependsOn",
		},
		{
			name:     "unknown toml key",
			file:     "m.toml",
			content:  "[[units]]\nid = \"Token\"\nafter = [\"Gate\"]\n",
			contains: "unknown key",
		},
		{
			name:     "unsupported extension",
			file:     "m.json",
			content:  "{}",
			contains: "unsupported manifest format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.file, tt.content)

			_, err := NewLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
