package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/stretchr/testify/mock"
)

// MockRunStore is a mock implementation of RunStore
type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunStore) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunRecord), args.Error(1)
}

func (m *MockRunStore) ListRuns(ctx context.Context, network string) ([]*domain.RunRecord, error) {
	args := m.Called(ctx, network)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RunRecord), args.Error(1)
}

// MockNetworkLoader is a mock implementation of NetworkLoader
type MockNetworkLoader struct {
	mock.Mock
}

func (m *MockNetworkLoader) Load(name string) (domain.NetworkConfig, error) {
	args := m.Called(name)
	return args.Get(0).(domain.NetworkConfig), args.Error(1)
}

func (m *MockNetworkLoader) Networks() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

// MockManifestLoader is a mock implementation of ManifestLoader
type MockManifestLoader struct {
	mock.Mock
}

func (m *MockManifestLoader) Load(ctx context.Context, path string) (*domain.Manifest, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manifest), args.Error(1)
}

// MockChainChecker is a mock implementation of ChainChecker
type MockChainChecker struct {
	mock.Mock
}

func (m *MockChainChecker) ChainID(ctx context.Context, network domain.NetworkConfig) (uint64, error) {
	args := m.Called(ctx, network)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainChecker) CodeExists(ctx context.Context, network domain.NetworkConfig, address string) (bool, error) {
	args := m.Called(ctx, network, address)
	return args.Bool(0), args.Error(1)
}

// MockConfirmer is a mock implementation of Confirmer
type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}

// MockProgressSink records every event it receives
type MockProgressSink struct {
	events []usecase.ProgressEvent
}

func (m *MockProgressSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	m.events = append(m.events, event)
}

func (m *MockProgressSink) Info(string)  {}
func (m *MockProgressSink) Error(string) {}

func (m *MockProgressSink) stages() []usecase.RunStage {
	stages := make([]usecase.RunStage, len(m.events))
	for i, e := range m.events {
		stages[i] = e.Stage
	}
	return stages
}

// fakeBackend hands out sequential addresses and fails the units in failOn
type fakeBackend struct {
	mu       sync.Mutex
	deployer string
	failOn   map[string]error
	calls    []usecase.DeployRequest
	ctxErrs  []error
	// afterDeploy runs once a unit has been deployed
	afterDeploy func(unit string)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		deployer: "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1",
		failOn:   make(map[string]error),
	}
}

func (b *fakeBackend) Deploy(ctx context.Context, req usecase.DeployRequest, network domain.NetworkConfig) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, req)
	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	n := len(b.calls)
	b.mu.Unlock()

	if err, ok := b.failOn[req.Unit]; ok {
		return "", err
	}
	if b.afterDeploy != nil {
		b.afterDeploy(req.Unit)
	}
	return fmt.Sprintf("0x%040x", n), nil
}

func (b *fakeBackend) Deployer(ctx context.Context, network domain.NetworkConfig) (string, error) {
	return b.deployer, nil
}

func (b *fakeBackend) deployedUnits() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	units := make([]string, len(b.calls))
	for i, c := range b.calls {
		units[i] = c.Unit
	}
	return units
}
