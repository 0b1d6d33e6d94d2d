package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	tokenAddr = "0xe78A0F7E598Cc8b0Bb87894B0F60dD2a88d6a8Ab"
	gateAddr  = "0x5b1869D9A4C187F2EAa108f3062412ecf0526b24"
)

func recordedRun() *domain.RunRecord {
	return &domain.RunRecord{
		ID:        "3f2a9c1e-run",
		Group:     "Capybara",
		Network:   "development",
		Status:    domain.RunStatusFailed,
		StartedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
		Units: []domain.UnitRecord{
			{ID: "CapybaraToken", Contract: "CapybaraToken", Address: tokenAddr},
			{ID: "CapybaraNFTGate", Contract: "CapybaraNFTGate", Address: gateAddr},
			{ID: "CapybaraDispenser", Contract: "CapybaraDispenser", Error: "reverted"},
		},
		FailedUnit: "CapybaraDispenser",
	}
}

func TestVerifyRun(t *testing.T) {
	ctx := context.Background()

	store := &MockRunStore{}
	store.On("GetRun", ctx, "3f2a").Return(recordedRun(), nil)
	networks := &MockNetworkLoader{}
	networks.On("Load", "development").Return(development(), nil)
	checker := &MockChainChecker{}
	checker.On("ChainID", mock.Anything, development()).Return(uint64(1337), nil)
	checker.On("CodeExists", mock.Anything, development(), tokenAddr).Return(true, nil)
	checker.On("CodeExists", mock.Anything, development(), gateAddr).Return(false, nil)

	result, err := usecase.NewVerifyRun(store, networks, checker).Run(ctx, "3f2a")
	require.NoError(t, err)

	assert.Equal(t, uint64(1337), result.ChainID)
	assert.Equal(t, []usecase.UnitCheck{
		{Unit: "CapybaraToken", Address: tokenAddr, Deployed: true},
		{Unit: "CapybaraNFTGate", Address: gateAddr},
	}, result.Units)
	assert.Equal(t, []string{"CapybaraNFTGate"}, result.Missing())
}

func TestVerifyRun_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("dry run", func(t *testing.T) {
		run := recordedRun()
		run.DryRun = true
		store := &MockRunStore{}
		store.On("GetRun", ctx, run.ID).Return(run, nil)

		_, err := usecase.NewVerifyRun(store, &MockNetworkLoader{}, &MockChainChecker{}).Run(ctx, run.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dry run")
	})

	t.Run("unknown run", func(t *testing.T) {
		store := &MockRunStore{}
		store.On("GetRun", ctx, "nope").Return(nil, domain.ErrNotFound)

		_, err := usecase.NewVerifyRun(store, &MockNetworkLoader{}, &MockChainChecker{}).Run(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("network no longer configured", func(t *testing.T) {
		store := &MockRunStore{}
		store.On("GetRun", ctx, "3f2a").Return(recordedRun(), nil)
		networks := &MockNetworkLoader{}
		networks.On("Load", "development").Return(domain.NetworkConfig{}, domain.UnknownNetworkErr{Name: "development"})

		_, err := usecase.NewVerifyRun(store, networks, &MockChainChecker{}).Run(ctx, "3f2a")
		assert.ErrorIs(t, err, domain.ErrUnknownNetwork)
	})

	t.Run("chain unreachable", func(t *testing.T) {
		store := &MockRunStore{}
		store.On("GetRun", ctx, "3f2a").Return(recordedRun(), nil)
		networks := &MockNetworkLoader{}
		networks.On("Load", "development").Return(development(), nil)
		checker := &MockChainChecker{}
		checker.On("ChainID", mock.Anything, development()).Return(uint64(0), errors.New("connection refused"))

		_, err := usecase.NewVerifyRun(store, networks, checker).Run(ctx, "3f2a")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "network development: connection refused")
		checker.AssertNotCalled(t, "CodeExists", mock.Anything, mock.Anything, mock.Anything)
	})
}
