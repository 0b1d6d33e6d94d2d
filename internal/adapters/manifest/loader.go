package manifest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/capybara-io/capydeploy/internal/domain"
	"gopkg.in/yaml.v3"
)

// fileManifest is the on-disk shape shared by the YAML and TOML formats
type fileManifest struct {
	Group string     `yaml:"group" toml:"group"`
	Units []fileUnit `yaml:"units" toml:"units"`
}

type fileUnit struct {
	ID        string    `yaml:"id" toml:"id"`
	Contract  string    `yaml:"contract" toml:"contract"`
	DependsOn []string  `yaml:"depends_on" toml:"depends_on"`
	Args      []fileArg `yaml:"args" toml:"args"`
}

type fileArg struct {
	Value    any     `yaml:"value" toml:"value"`
	Ref      *string `yaml:"ref" toml:"ref"`
	Deployer *bool   `yaml:"deployer" toml:"deployer"`
}

// Loader reads manifests in YAML or TOML, chosen by file extension
type Loader struct{}

// NewLoader creates a new manifest loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and converts the manifest at path
func (l *Loader) Load(ctx context.Context, path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var raw fileManifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to parse %s: unknown key '%s'", filepath.Base(path), undecoded[0])
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format '%s' (expected .yaml, .yml or .toml)", ext)
	}

	group := raw.Group
	if group == "" {
		group = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return convert(group, raw.Units)
}

// convert turns file units into domain specs, validating each argument
func convert(group string, units []fileUnit) (*domain.Manifest, error) {
	m := &domain.Manifest{
		Group: group,
		Units: make([]domain.DeploymentSpec, 0, len(units)),
	}

	for i, u := range units {
		spec := domain.DeploymentSpec{
			ID:        strings.TrimSpace(u.ID),
			Contract:  strings.TrimSpace(u.Contract),
			DependsOn: u.DependsOn,
		}
		if spec.ID == "" {
			return nil, domain.InvalidSpecErr{Index: i, Reason: "id is required"}
		}

		for j, a := range u.Args {
			arg, err := a.toArgValue()
			if err != nil {
				return nil, domain.InvalidSpecErr{
					Index:  i,
					Reason: fmt.Sprintf("unit '%s' argument %d: %v", spec.ID, j, err),
				}
			}
			spec.Args = append(spec.Args, arg)
		}

		m.Units = append(m.Units, spec)
	}

	return m, nil
}

func (a fileArg) toArgValue() (domain.ArgValue, error) {
	set := 0
	if a.Value != nil {
		set++
	}
	if a.Ref != nil {
		set++
	}
	if a.Deployer != nil {
		set++
	}
	if set != 1 {
		return domain.ArgValue{}, fmt.Errorf("exactly one of 'value', 'ref' or 'deployer' must be set")
	}

	switch {
	case a.Ref != nil:
		ref := strings.TrimSpace(*a.Ref)
		if ref == "" {
			return domain.ArgValue{}, fmt.Errorf("'ref' must name a unit")
		}
		return domain.AddressRef(ref), nil
	case a.Deployer != nil:
		if !*a.Deployer {
			return domain.ArgValue{}, fmt.Errorf("'deployer' can only be true")
		}
		return domain.DeployerRef(), nil
	default:
		return domain.Literal(a.Value), nil
	}
}
