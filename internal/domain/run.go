package domain

import "time"

// RunStatus is the state of a recorded run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunRecord is the persisted history of one run
type RunRecord struct {
	ID         string       `json:"id" db:"id"`
	Group      string       `json:"group" db:"group_name"`
	Network    string       `json:"network" db:"network"`
	DryRun     bool         `json:"dryRun" db:"dry_run"`
	Status     RunStatus    `json:"status" db:"status"`
	FailedUnit string       `json:"failedUnit,omitempty" db:"failed_unit"`
	Error      string       `json:"error,omitempty" db:"error"`
	StartedAt  time.Time    `json:"startedAt" db:"started_at"`
	FinishedAt *time.Time   `json:"finishedAt,omitempty" db:"finished_at"`
	Units      []UnitRecord `json:"units" db:"-"`
}

// UnitRecord is the outcome of one unit within a run
type UnitRecord struct {
	ID       string   `json:"id" db:"unit_id"`
	Contract string   `json:"contract" db:"contract"`
	Args     []string `json:"args,omitempty" db:"-"`
	Address  string   `json:"address,omitempty" db:"address"`
	Error    string   `json:"error,omitempty" db:"error"`
}

// Addresses returns the committed addresses of the run by unit id
func (r *RunRecord) Addresses() map[string]string {
	out := make(map[string]string)
	for _, u := range r.Units {
		if u.Address != "" {
			out[u.ID] = u.Address
		}
	}
	return out
}
