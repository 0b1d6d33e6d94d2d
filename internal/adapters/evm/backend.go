package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is the part of an EVM node the backend deploys through
type Client interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// session is an open connection to one network and the account it sends from
type session struct {
	client  Client
	chainID *big.Int
	from    common.Address
	// opts signs locally; nil when the node signs with an unlocked account
	opts *bind.TransactOpts
	// rpc is only set for node-signed sessions
	rpc   *rpc.Client
	close func()
}

// connector opens sessions for a network
type connector interface {
	connect(ctx context.Context, network domain.NetworkConfig) (*session, error)
}

// Options tunes how long a deployment may take
type Options struct {
	// DeployTimeout bounds the wait for a deployment receipt
	DeployTimeout time.Duration
	// PollInterval is the delay between receipt lookups
	PollInterval time.Duration
}

// Backend deploys contract artifacts to EVM networks
type Backend struct {
	artifacts *ArtifactStore
	connector connector
	opts      Options
	log       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func newBackend(artifacts *ArtifactStore, conn connector, opts Options, log *slog.Logger) *Backend {
	if opts.DeployTimeout <= 0 {
		opts.DeployTimeout = 5 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Backend{
		artifacts: artifacts,
		connector: conn,
		opts:      opts,
		log:       log,
		sessions:  make(map[string]*session),
	}
}

// Deploy deploys req.Contract and returns its checksummed address
func (b *Backend) Deploy(ctx context.Context, req usecase.DeployRequest, network domain.NetworkConfig) (string, error) {
	art, err := b.artifacts.Load(req.Contract)
	if err != nil {
		return "", err
	}
	if err := CheckCompiler(art.CompilerVersion, network.CompilerVersion); err != nil {
		return "", fmt.Errorf("%s: %w", req.Contract, err)
	}

	args, err := ConvertArgs(art.ABI.Constructor.Inputs, req.Args)
	if err != nil {
		return "", fmt.Errorf("%s: %w", req.Contract, err)
	}

	s, err := b.session(ctx, network)
	if err != nil {
		return "", err
	}

	var hash common.Hash
	if s.opts != nil {
		hash, err = b.sendSigned(ctx, s, art, args, network)
	} else {
		hash, err = b.sendUnlocked(ctx, s, art, args, network)
	}
	if err != nil {
		return "", fmt.Errorf("failed to send deployment of %s: %w", req.Contract, err)
	}

	b.log.Debug("deployment sent", "unit", req.Unit, "contract", req.Contract, "tx", hash.Hex())

	receipt, err := b.waitReceipt(ctx, s.client, hash)
	if err != nil {
		return "", err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return "", fmt.Errorf("deployment of %s reverted (tx %s)", req.Contract, hash.Hex())
	}
	if receipt.ContractAddress == (common.Address{}) {
		return "", fmt.Errorf("receipt of tx %s has no contract address", hash.Hex())
	}

	return receipt.ContractAddress.Hex(), nil
}

// Deployer returns the account deployments on network are sent from
func (b *Backend) Deployer(ctx context.Context, network domain.NetworkConfig) (string, error) {
	s, err := b.session(ctx, network)
	if err != nil {
		return "", err
	}
	return s.from.Hex(), nil
}

// Close releases every open connection
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, s := range b.sessions {
		if s.close != nil {
			s.close()
		}
		delete(b.sessions, name)
	}
}

func (b *Backend) session(ctx context.Context, network domain.NetworkConfig) (*session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[network.Name]; ok {
		return s, nil
	}

	s, err := b.connector.connect(ctx, network)
	if err != nil {
		return nil, err
	}
	b.log.Debug("connected", "network", network.Name, "chain_id", s.chainID, "from", s.from.Hex())

	b.sessions[network.Name] = s
	return s, nil
}

func (b *Backend) sendSigned(ctx context.Context, s *session, art *Artifact, args []any, network domain.NetworkConfig) (common.Hash, error) {
	opts := *s.opts
	opts.Context = ctx
	opts.GasLimit = network.Gas
	if network.GasPrice > 0 {
		opts.GasPrice = new(big.Int).SetUint64(network.GasPrice)
	}

	_, tx, _, err := bind.DeployContract(&opts, art.ABI, art.Bytecode, s.client, args...)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// sendUnlocked lets the node sign with one of its own accounts
func (b *Backend) sendUnlocked(ctx context.Context, s *session, art *Artifact, args []any, network domain.NetworkConfig) (common.Hash, error) {
	input, err := art.ABI.Pack("", args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode constructor arguments: %w", err)
	}
	data := append(append([]byte{}, art.Bytecode...), input...)

	tx := map[string]any{
		"from": s.from,
		"data": hexutil.Bytes(data),
	}
	if network.Gas > 0 {
		tx["gas"] = hexutil.Uint64(network.Gas)
	}
	if network.GasPrice > 0 {
		tx["gasPrice"] = (*hexutil.Big)(new(big.Int).SetUint64(network.GasPrice))
	}

	var hash common.Hash
	if err := s.rpc.CallContext(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// waitReceipt polls for the receipt of hash until it is mined or the deploy
// timeout elapses
func (b *Backend) waitReceipt(ctx context.Context, client Client, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opts.DeployTimeout)
	defer cancel()

	receipt, err := retry.DoWithData(
		func() (*types.Receipt, error) {
			return client.TransactionReceipt(ctx, hash)
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(b.opts.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ethereum.NotFound)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("tx %s not mined after %s: %w", hash.Hex(), b.opts.DeployTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("failed to get receipt of tx %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}
