package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// defaultTimeout bounds every call made by the checker
const defaultTimeout = 5 * time.Second

// Client is the subset of ethclient used to inspect a chain
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// DialFunc opens a client for rpcURL
type DialFunc func(ctx context.Context, rpcURL string) (Client, func(), error)

// CheckerAdapter implements the ChainChecker interface using ethclient
type CheckerAdapter struct {
	dial    DialFunc
	timeout time.Duration

	mu      sync.Mutex
	clients map[string]Client
	closers []func()
}

// NewCheckerAdapter creates a checker dialing JSON-RPC endpoints
func NewCheckerAdapter() *CheckerAdapter {
	return NewCheckerAdapterWithDialer(dialRPC)
}

// NewCheckerAdapterWithDialer creates a checker that opens clients with dial
func NewCheckerAdapterWithDialer(dial DialFunc) *CheckerAdapter {
	return &CheckerAdapter{
		dial:    dial,
		timeout: defaultTimeout,
		clients: make(map[string]Client),
	}
}

func dialRPC(ctx context.Context, rpcURL string) (Client, func(), error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// ChainID returns the chain id reported by network and checks it against
// the configured network id
func (c *CheckerAdapter) ChainID(ctx context.Context, network domain.NetworkConfig) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := c.client(ctx, network)
	if err != nil {
		return 0, err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain ID: %w", err)
	}

	if !network.MatchesChainID(chainID.Uint64()) {
		return chainID.Uint64(), fmt.Errorf("chain ID mismatch: expected %s, got %d", network.NetworkID, chainID.Uint64())
	}

	return chainID.Uint64(), nil
}

// CodeExists checks if a contract exists at the given address
func (c *CheckerAdapter) CodeExists(ctx context.Context, network domain.NetworkConfig, address string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, fmt.Errorf("invalid address '%s'", address)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := c.client(ctx, network)
	if err != nil {
		return false, err
	}

	code, err := client.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}

	// If no code at address, contract doesn't exist
	return len(code) > 0, nil
}

// Close closes every client opened by the checker
func (c *CheckerAdapter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, closeFn := range c.closers {
		closeFn()
	}
	c.closers = nil
	c.clients = make(map[string]Client)
}

func (c *CheckerAdapter) client(ctx context.Context, network domain.NetworkConfig) (Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	url := network.RPCURL()
	if client, ok := c.clients[url]; ok {
		return client, nil
	}

	client, closeFn, err := c.dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	c.clients[url] = client
	if closeFn != nil {
		c.closers = append(c.closers, closeFn)
	}
	return client, nil
}

// Ensure the adapter implements the interface
var _ usecase.ChainChecker = (*CheckerAdapter)(nil)

var _ Client = (*ethclient.Client)(nil)
