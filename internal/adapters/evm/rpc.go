package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const dialRetryDelay = 500 * time.Millisecond

// RPCConfig configures deployments to live nodes
type RPCConfig struct {
	Options
	// DeployerKey is a hex private key; when empty the node's first unlocked
	// account sends deployments
	DeployerKey string
	// Retries is the number of dial attempts per network
	Retries uint
}

// NewRPCBackend creates a backend that deploys over JSON-RPC
func NewRPCBackend(artifacts *ArtifactStore, cfg RPCConfig, log *slog.Logger) (*Backend, error) {
	conn := &rpcConnector{retries: cfg.Retries, log: log}
	if cfg.DeployerKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.DeployerKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid deployer key: %w", err)
		}
		conn.key = key
	}
	if conn.retries == 0 {
		conn.retries = 1
	}
	return newBackend(artifacts, conn, cfg.Options, log), nil
}

type rpcConnector struct {
	key     *ecdsa.PrivateKey
	retries uint
	log     *slog.Logger
}

func (c *rpcConnector) connect(ctx context.Context, network domain.NetworkConfig) (*session, error) {
	url := network.RPCURL()

	var rc *rpc.Client
	chainID, err := retry.DoWithData(
		func() (*big.Int, error) {
			client, err := rpc.DialContext(ctx, url)
			if err != nil {
				return nil, err
			}
			id, err := ethclient.NewClient(client).ChainID(ctx)
			if err != nil {
				client.Close()
				return nil, err
			}
			rc = client
			return id, nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.Delay(dialRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug("rpc not reachable, retrying", "network", network.Name, "url", url, "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to network '%s' at %s: %w", network.Name, url, err)
	}

	if !network.MatchesChainID(chainID.Uint64()) {
		rc.Close()
		return nil, fmt.Errorf("chain id mismatch on network '%s': expected %s, node reports %s",
			network.Name, network.NetworkID, chainID)
	}

	client := ethclient.NewClient(rc)
	s := &session{
		client:  client,
		chainID: chainID,
		close:   client.Close,
	}

	if c.key != nil {
		opts, err := bind.NewKeyedTransactorWithChainID(c.key, chainID)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create transactor: %w", err)
		}
		s.opts = opts
		s.from = opts.From
		return s, nil
	}

	var accounts []common.Address
	if err := rc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to list node accounts: %w", err)
	}
	if len(accounts) == 0 {
		client.Close()
		return nil, fmt.Errorf("node for network '%s' has no unlocked accounts; set CAPY_DEPLOYER_KEY", network.Name)
	}
	s.rpc = rc
	s.from = accounts[0]
	return s, nil
}
