package evm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
)

var (
	// simChainID is the chain id of every simulated chain
	simChainID = params.AllDevChainProtocolChanges.ChainID
	// simPrefund is the balance of the generated deployer, 1,000,000 ether
	simPrefund = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
)

const (
	simBlockGasLimit = 50_000_000
	// DefaultSimBlockTime is how often simulated chains mine a block
	DefaultSimBlockTime = 100 * time.Millisecond
)

// NewSimulatedBackend creates a backend that deploys to a throwaway in-memory
// chain per network. The network's chain id is not checked.
func NewSimulatedBackend(artifacts *ArtifactStore, opts Options, blockTime time.Duration, log *slog.Logger) *Backend {
	if blockTime <= 0 {
		blockTime = DefaultSimBlockTime
	}
	if opts.PollInterval <= 0 || opts.PollInterval > blockTime {
		opts.PollInterval = blockTime
	}
	return newBackend(artifacts, &simConnector{blockTime: blockTime}, opts, log)
}

type simConnector struct {
	blockTime time.Duration
}

func (c *simConnector) connect(_ context.Context, network domain.NetworkConfig) (*session, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate deployer key: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, simChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	backend := simulated.NewBackend(
		types.GenesisAlloc{opts.From: {Balance: simPrefund}},
		simulated.WithBlockGasLimit(simBlockGasLimit),
	)
	backend.Commit()

	stop := startAutoMine(backend, c.blockTime)

	return &session{
		client:  backend.Client(),
		chainID: simChainID,
		from:    opts.From,
		opts:    opts,
		close: func() {
			stop()
			_ = backend.Close()
		},
	}, nil
}

// startAutoMine commits a block every blockTime until the returned func is called
func startAutoMine(backend *simulated.Backend, blockTime time.Duration) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	ticker := time.NewTicker(blockTime)
	go func() {
		defer wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				backend.Commit()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
