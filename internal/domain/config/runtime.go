package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string
	ConfigFile  string // empty when no capydeploy.* file was found

	// Manifest and artifacts
	ManifestPath string
	ArtifactsDir string

	// Execution settings
	Debug          bool
	NonInteractive bool
	DryRun         bool
	DeployTimeout  time.Duration
	RPCRetries     uint
	PollInterval   time.Duration

	// DeployerKey is a hex private key; empty means the node's first unlocked account sends
	DeployerKey string

	// Run history
	Registry RegistryConfig
}

// RegistryConfig selects where run history is stored
type RegistryConfig struct {
	Driver string // "json" or "sqlite"
	Path   string
}

const (
	RegistryDriverJSON   = "json"
	RegistryDriverSQLite = "sqlite"
)
