package usecase

import (
	"context"
	"fmt"

	"github.com/capybara-io/capydeploy/internal/domain"
)

// VerifyRun checks that the addresses recorded by a run still hold code
type VerifyRun struct {
	store    RunStore
	networks NetworkLoader
	checker  ChainChecker
}

// NewVerifyRun creates a new VerifyRun use case
func NewVerifyRun(store RunStore, networks NetworkLoader, checker ChainChecker) *VerifyRun {
	return &VerifyRun{
		store:    store,
		networks: networks,
		checker:  checker,
	}
}

// UnitCheck is the on-chain state of one recorded unit
type UnitCheck struct {
	Unit     string
	Address  string
	Deployed bool
	Err      error
}

// VerifyRunResult contains the checks of every unit the run deployed
type VerifyRunResult struct {
	Run     *domain.RunRecord
	Network domain.NetworkConfig
	ChainID uint64
	Units   []UnitCheck
}

// Missing returns the units whose address holds no code
func (r *VerifyRunResult) Missing() []string {
	var missing []string
	for _, u := range r.Units {
		if u.Err == nil && !u.Deployed {
			missing = append(missing, u.Unit)
		}
	}
	return missing
}

// Run verifies the run with id (or unique id prefix)
func (uc *VerifyRun) Run(ctx context.Context, id string) (*VerifyRunResult, error) {
	run, err := uc.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.DryRun {
		return nil, fmt.Errorf("run %s was a dry run, nothing was deployed to %s", run.ID, run.Network)
	}

	network, err := uc.networks.Load(run.Network)
	if err != nil {
		return nil, err
	}

	chainID, err := uc.checker.ChainID(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("network %s: %w", network.Name, err)
	}

	result := &VerifyRunResult{
		Run:     run,
		Network: network,
		ChainID: chainID,
	}
	for _, unit := range run.Units {
		if unit.Address == "" {
			continue
		}
		check := UnitCheck{Unit: unit.ID, Address: unit.Address}
		check.Deployed, check.Err = uc.checker.CodeExists(ctx, network, unit.Address)
		result.Units = append(result.Units, check)
	}

	return result, nil
}
