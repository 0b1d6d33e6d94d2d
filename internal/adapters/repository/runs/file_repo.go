package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/capybara-io/capydeploy/internal/usecase"
)

const (
	RunsDir         = "runs"
	DeploymentsFile = "deployments.json"
)

// DeploymentEntry is the latest address of one unit on one network
type DeploymentEntry struct {
	Contract   string    `json:"contract"`
	Address    string    `json:"address"`
	RunID      string    `json:"runId"`
	DeployedAt time.Time `json:"deployedAt"`
}

// deploymentIndex maps network -> unit id -> latest deployment
type deploymentIndex map[string]map[string]DeploymentEntry

// FileRepository stores run records as JSON files under dir
type FileRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewFileRepository creates a repository rooted at dir
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Join(dir, RunsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

// SaveRun writes run and, for real runs, refreshes the deployment index
func (r *FileRepository) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	if err := validRunID(run.ID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.saveFile(filepath.Join(RunsDir, run.ID+".json"), run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	if run.DryRun {
		return nil
	}

	index := make(deploymentIndex)
	if err := r.loadFile(DeploymentsFile, &index); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load deployment index: %w", err)
	}

	changed := false
	for _, unit := range run.Units {
		if unit.Address == "" {
			continue
		}
		if index[run.Network] == nil {
			index[run.Network] = make(map[string]DeploymentEntry)
		}
		if existing, ok := index[run.Network][unit.ID]; ok && existing.Address == unit.Address {
			continue
		}
		index[run.Network][unit.ID] = DeploymentEntry{
			Contract:   unit.Contract,
			Address:    unit.Address,
			RunID:      run.ID,
			DeployedAt: time.Now().UTC(),
		}
		changed = true
	}

	if !changed {
		return nil
	}
	if err := r.saveFile(DeploymentsFile, index); err != nil {
		return fmt.Errorf("failed to save deployment index: %w", err)
	}
	return nil
}

// GetRun returns the run with id, or the only run whose id starts with id
func (r *FileRepository) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	if err := validRunID(id); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var run domain.RunRecord
	err := r.loadFile(filepath.Join(RunsDir, id+".json"), &run)
	if err == nil {
		return &run, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	matches, err := filepath.Glob(filepath.Join(r.dir, RunsDir, id+"*.json"))
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	case 1:
		rel, _ := filepath.Rel(r.dir, matches[0])
		if err := r.loadFile(rel, &run); err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", id, err)
		}
		return &run, nil
	default:
		return nil, fmt.Errorf("run id prefix '%s' is ambiguous (%d matches)", id, len(matches))
	}
}

// ListRuns returns every stored run on network (all networks when empty), newest first
func (r *FileRepository) ListRuns(ctx context.Context, network string) ([]*domain.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(r.dir, RunsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var runs []*domain.RunRecord
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var run domain.RunRecord
		if err := r.loadFile(filepath.Join(RunsDir, entry.Name()), &run); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", entry.Name(), err)
		}
		if network != "" && run.Network != network {
			continue
		}
		runs = append(runs, &run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

func (r *FileRepository) loadFile(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (r *FileRepository) saveFile(name string, v any) error {
	path := filepath.Join(r.dir, name)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

func validRunID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\*?[`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid run id '%s'", id)
	}
	return nil
}

var _ usecase.RunStore = (*FileRepository)(nil)
