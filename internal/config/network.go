package config

import (
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Built-in network defaults, matching a stock Ganache node
const (
	DefaultNetworkID = domain.AnyNetworkID
	DefaultGas       = uint64(6721975)
	DefaultGasPrice  = uint64(20000000000)
)

// compilerVersionKey holds the solc version shared by every network
const compilerVersionKey = "compilers.solc.version"

// networkOptions lists every option accepted under networks.<name>. Keys are
// lowercased by viper, so the camelCase Truffle spellings arrive as
// networkid, gasprice and compilerversion.
var networkOptions = map[string]bool{
	"host":             true,
	"port":             true,
	"url":              true,
	"network_id":       true,
	"networkid":        true,
	"gas":              true,
	"gas_price":        true,
	"gasprice":         true,
	"compiler_version": true,
	"compilerversion":  true,
}

var (
	errNegative      = errors.New("value must not be negative")
	errUnknownOption = errors.New("unknown network option")
)

// NetworkLoader resolves network names against the `networks` section of the
// project config. Each field is taken from the first of: environment
// (CAPY_NETWORKS_<NAME>_<FIELD>), networks.<name>, defaults, built-in default.
type NetworkLoader struct {
	v *viper.Viper
}

// NewNetworkLoader creates a loader reading from v
func NewNetworkLoader(v *viper.Viper) *NetworkLoader {
	return &NetworkLoader{v: v}
}

// Networks returns the configured network names, sorted
func (l *NetworkLoader) Networks() []string {
	networks := l.v.GetStringMap("networks")
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load builds the NetworkConfig of name
func (l *NetworkLoader) Load(name string) (domain.NetworkConfig, error) {
	if !l.v.IsSet("networks." + name) {
		return domain.NetworkConfig{}, domain.UnknownNetworkErr{
			Name:        name,
			Suggestions: suggestNetworks(name, l.Networks()),
		}
	}

	if err := l.checkOptions(name); err != nil {
		return domain.NetworkConfig{}, err
	}

	r := fieldReader{v: l.v, network: name}
	cfg := domain.NetworkConfig{
		Name:            name,
		Host:            r.string("host", ""),
		Port:            r.int("port", 0),
		URL:             r.string("url", ""),
		NetworkID:       r.string("network_id", DefaultNetworkID, "networkid"),
		Gas:             r.uint64("gas", DefaultGas),
		GasPrice:        r.uint64("gas_price", DefaultGasPrice, "gasprice"),
		CompilerVersion: r.string("compiler_version", "", "compilerversion"),
	}
	if cfg.CompilerVersion == "" {
		cfg.CompilerVersion = strings.TrimSpace(os.ExpandEnv(l.v.GetString(compilerVersionKey)))
	}
	if r.err != nil {
		return domain.NetworkConfig{}, r.err
	}

	if cfg.URL == "" {
		if cfg.Host == "" {
			return domain.NetworkConfig{}, domain.MissingFieldErr{Network: name, Field: "host"}
		}
		if cfg.Port == 0 {
			return domain.NetworkConfig{}, domain.MissingFieldErr{Network: name, Field: "port"}
		}
	}

	if cfg.CompilerVersion == "" {
		return domain.NetworkConfig{}, domain.MissingFieldErr{Network: name, Field: compilerVersionKey}
	}
	if _, err := semver.NewConstraint(cfg.CompilerVersion); err != nil {
		return domain.NetworkConfig{}, domain.InvalidFieldErr{Network: name, Field: compilerVersionKey, Err: err}
	}

	return cfg, nil
}

// checkOptions rejects options of name that no field reads
func (l *NetworkLoader) checkOptions(name string) error {
	options := l.v.GetStringMap("networks." + name)
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !networkOptions[key] {
			return domain.InvalidFieldErr{Network: name, Field: key, Err: errUnknownOption}
		}
	}
	return nil
}

// fieldReader reads network fields, remembering the first conversion error
type fieldReader struct {
	v       *viper.Viper
	network string
	err     error
}

// raw looks field up under networks.<name> and then defaults. Within a
// section the snake_case spelling wins over its aliases.
func (r *fieldReader) raw(field string, aliases []string) (any, bool) {
	names := append([]string{field}, aliases...)
	for _, section := range []string{"networks." + r.network, "defaults"} {
		for _, name := range names {
			if key := section + "." + name; r.v.IsSet(key) {
				return r.v.Get(key), true
			}
		}
	}
	return nil, false
}

func (r *fieldReader) string(field, def string, aliases ...string) string {
	val, ok := r.raw(field, aliases)
	if !ok {
		return def
	}
	s, err := cast.ToStringE(val)
	if err != nil {
		r.fail(field, err)
		return def
	}
	return strings.TrimSpace(os.ExpandEnv(s))
}

func (r *fieldReader) int(field string, def int, aliases ...string) int {
	val, ok := r.raw(field, aliases)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(val)
	if err != nil || n < 0 {
		r.fail(field, err)
		return def
	}
	return n
}

func (r *fieldReader) uint64(field string, def uint64, aliases ...string) uint64 {
	val, ok := r.raw(field, aliases)
	if !ok {
		return def
	}
	n, err := cast.ToUint64E(val)
	if err != nil {
		r.fail(field, err)
		return def
	}
	return n
}

func (r *fieldReader) fail(field string, err error) {
	if r.err != nil {
		return
	}
	if err == nil {
		err = errNegative
	}
	r.err = domain.InvalidFieldErr{Network: r.network, Field: field, Err: err}
}

// suggestNetworks returns configured names close to name, best match first
func suggestNetworks(name string, names []string) []string {
	var out []string
	for _, m := range fuzzy.Find(strings.ToLower(name), names) {
		out = append(out, m.Str)
	}
	return out
}
