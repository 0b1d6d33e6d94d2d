package domain

import (
	"encoding/json"
	"fmt"
)

// DeploymentResult maps unit ids to deployed addresses in the order they were
// committed. Entries are never overwritten or removed.
type DeploymentResult struct {
	order     []string
	addresses map[string]string
}

// NewDeploymentResult creates an empty result
func NewDeploymentResult() *DeploymentResult {
	return &DeploymentResult{addresses: make(map[string]string)}
}

// Record stores the address deployed for id
func (r *DeploymentResult) Record(id, address string) error {
	if _, exists := r.addresses[id]; exists {
		return fmt.Errorf("unit '%s': %w", id, ErrAlreadyRecorded)
	}
	r.order = append(r.order, id)
	r.addresses[id] = address
	return nil
}

// Address returns the address recorded for id
func (r *DeploymentResult) Address(id string) (string, bool) {
	if r == nil {
		return "", false
	}
	addr, ok := r.addresses[id]
	return addr, ok
}

// IDs returns the recorded unit ids in commit order
func (r *DeploymentResult) IDs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Len returns the number of recorded units
func (r *DeploymentResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Addresses returns a copy of the id to address mapping
func (r *DeploymentResult) Addresses() map[string]string {
	out := make(map[string]string, r.Len())
	if r == nil {
		return out
	}
	for id, addr := range r.addresses {
		out[id] = addr
	}
	return out
}

// MarshalJSON writes the result as an object of id to address
func (r *DeploymentResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Addresses())
}
