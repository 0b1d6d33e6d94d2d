package blockchain

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"testing"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenAddress = common.HexToAddress("0xe78A0F7E598Cc8b0Bb87894B0F60dD2a88d6a8Ab")

// newSimulatedChecker returns a checker backed by an in-memory chain that
// has code at tokenAddress, and a counter of dials
func newSimulatedChecker(t *testing.T) (*CheckerAdapter, *int) {
	t.Helper()

	backend := simulated.NewBackend(types.GenesisAlloc{
		tokenAddress: {Code: common.FromHex("0x6080604052"), Balance: big.NewInt(0)},
	})
	t.Cleanup(func() { _ = backend.Close() })

	dials := 0
	checker := NewCheckerAdapterWithDialer(func(ctx context.Context, rpcURL string) (Client, func(), error) {
		dials++
		return backend.Client(), nil, nil
	})
	t.Cleanup(checker.Close)
	return checker, &dials
}

func development() domain.NetworkConfig {
	return domain.NetworkConfig{Name: "development", Host: "127.0.0.1", Port: 8545, NetworkID: domain.AnyNetworkID}
}

func TestCheckerAdapter_ChainID(t *testing.T) {
	simChainID := params.AllDevChainProtocolChanges.ChainID.Uint64()

	tests := []struct {
		name      string
		networkID string
		wantErr   string
	}{
		{name: "any network id", networkID: domain.AnyNetworkID},
		{name: "empty network id", networkID: ""},
		{name: "matching network id", networkID: strconv.FormatUint(simChainID, 10)},
		{name: "mismatched network id", networkID: "11155111", wantErr: "chain ID mismatch: expected 11155111"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, _ := newSimulatedChecker(t)
			network := development()
			network.NetworkID = tt.networkID

			got, err := checker.ChainID(context.Background(), network)
			assert.Equal(t, simChainID, got)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCheckerAdapter_CodeExists(t *testing.T) {
	checker, dials := newSimulatedChecker(t)
	ctx := context.Background()

	exists, err := checker.CodeExists(ctx, development(), tokenAddress.Hex())
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = checker.CodeExists(ctx, development(), "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = checker.CodeExists(ctx, development(), "not-an-address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")

	assert.Equal(t, 1, *dials, "clients are reused per endpoint")
}

func TestCheckerAdapter_DialError(t *testing.T) {
	checker := NewCheckerAdapterWithDialer(func(ctx context.Context, rpcURL string) (Client, func(), error) {
		return nil, nil, errors.New("connection refused")
	})

	_, err := checker.ChainID(context.Background(), development())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to http://127.0.0.1:8545")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCheckerAdapter_CloseReleasesClients(t *testing.T) {
	closed := 0
	checker := NewCheckerAdapterWithDialer(func(ctx context.Context, rpcURL string) (Client, func(), error) {
		return stubClient{}, func() { closed++ }, nil
	})

	for _, port := range []int{8545, 9545} {
		network := development()
		network.Port = port
		_, err := checker.ChainID(context.Background(), network)
		require.NoError(t, err)
	}

	checker.Close()
	assert.Equal(t, 2, closed)
}

type stubClient struct{}

func (stubClient) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1337), nil }

func (stubClient) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}
