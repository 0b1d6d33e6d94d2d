package usecase

import (
	"context"

	"github.com/capybara-io/capydeploy/internal/domain"
)

// ListNetworksParams contains parameters for listing networks
type ListNetworksParams struct {
	// Probe connects to every network that loads and fetches its chain ID
	Probe bool
}

// ListNetworksResult contains the result of listing networks
type ListNetworksResult struct {
	Networks []NetworkStatus
	Probed   bool
}

// NetworkStatus represents a configured network and whether it loads
type NetworkStatus struct {
	Name   string
	Config domain.NetworkConfig
	Error  error

	// Set when probed
	ChainID  uint64
	ProbeErr error
}

// ListNetworks is a use case for listing available networks
type ListNetworks struct {
	loader  NetworkLoader
	checker ChainChecker
}

// NewListNetworks creates a new ListNetworks use case
func NewListNetworks(loader NetworkLoader, checker ChainChecker) *ListNetworks {
	return &ListNetworks{
		loader:  loader,
		checker: checker,
	}
}

// Run executes the use case
func (uc *ListNetworks) Run(ctx context.Context, params ListNetworksParams) (*ListNetworksResult, error) {
	networkNames := uc.loader.Networks()

	networks := make([]NetworkStatus, 0, len(networkNames))
	for _, name := range networkNames {
		status := NetworkStatus{
			Name: name,
		}

		cfg, err := uc.loader.Load(name)
		if err != nil {
			status.Error = err
		} else {
			status.Config = cfg
			if params.Probe {
				status.ChainID, status.ProbeErr = uc.checker.ChainID(ctx, cfg)
			}
		}

		networks = append(networks, status)
	}

	return &ListNetworksResult{
		Networks: networks,
		Probed:   params.Probe,
	}, nil
}
