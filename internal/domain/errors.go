package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain operations
var (
	// ErrCyclicDependency is returned when the units of a manifest cannot be ordered
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrUnknownReference is returned when a unit references an id that is not declared
	ErrUnknownReference = errors.New("unknown reference")

	// ErrDuplicateID is returned when two units share an id
	ErrDuplicateID = errors.New("duplicate unit id")

	// ErrInvalidSpec is returned when a unit is malformed
	ErrInvalidSpec = errors.New("invalid unit")

	// ErrUnknownNetwork is returned when a network name has no configuration
	ErrUnknownNetwork = errors.New("unknown network")

	// ErrMissingField is returned when a required network field is not configured
	ErrMissingField = errors.New("missing field")

	// ErrInvalidField is returned when a configured network field cannot be used
	ErrInvalidField = errors.New("invalid field")

	// ErrDeploymentFailed is returned when the backend could not deploy a unit
	ErrDeploymentFailed = errors.New("deployment failed")

	// ErrRunCancelled is returned when a run is stopped between two units
	ErrRunCancelled = errors.New("run cancelled")

	// ErrAlreadyRecorded is returned when an address is recorded twice for a unit
	ErrAlreadyRecorded = errors.New("already recorded")

	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")
)

// IsPlanError reports whether err was raised while building a plan.
// Plan errors are detected before any deployment happens, so a run failure
// is never one even when it wraps a plan sentinel.
func IsPlanError(err error) bool {
	if isRunError(err) {
		return false
	}
	return errors.Is(err, ErrCyclicDependency) ||
		errors.Is(err, ErrUnknownReference) ||
		errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrInvalidSpec)
}

// IsConfigError reports whether err was raised while loading a network
func IsConfigError(err error) bool {
	if isRunError(err) {
		return false
	}
	return errors.Is(err, ErrUnknownNetwork) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidField)
}

func isRunError(err error) bool {
	var failure *DeploymentFailure
	var cancelled *CancelledErr
	return errors.As(err, &failure) || errors.As(err, &cancelled)
}

type CyclicDependencyErr struct {
	// Cycle lists the unit ids along the cycle, first id repeated at the end
	Cycle []string
}

func (e CyclicDependencyErr) Error() string {
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Cycle, " -> "))
}

func (e CyclicDependencyErr) Unwrap() error { return ErrCyclicDependency }

type UnknownReferenceErr struct {
	Unit        string
	Ref         string
	Suggestions []string
}

func (e UnknownReferenceErr) Error() string {
	msg := fmt.Sprintf("unit '%s' references undeclared unit '%s'", e.Unit, e.Ref)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean '%s'?)", e.Suggestions[0])
	}
	return msg
}

func (e UnknownReferenceErr) Unwrap() error { return ErrUnknownReference }

type DuplicateIDErr struct {
	ID string
}

func (e DuplicateIDErr) Error() string {
	return fmt.Sprintf("unit id '%s' is declared more than once", e.ID)
}

func (e DuplicateIDErr) Unwrap() error { return ErrDuplicateID }

type InvalidSpecErr struct {
	Index  int
	Reason string
}

func (e InvalidSpecErr) Error() string {
	return fmt.Sprintf("unit #%d: %s", e.Index+1, e.Reason)
}

func (e InvalidSpecErr) Unwrap() error { return ErrInvalidSpec }

type UnknownNetworkErr struct {
	Name        string
	Suggestions []string
}

func (e UnknownNetworkErr) Error() string {
	msg := fmt.Sprintf("network '%s' is not configured", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean '%s'?)", e.Suggestions[0])
	}
	return msg
}

func (e UnknownNetworkErr) Unwrap() error { return ErrUnknownNetwork }

type MissingFieldErr struct {
	Network string
	Field   string
}

func (e MissingFieldErr) Error() string {
	return fmt.Sprintf("network '%s': missing required field '%s'", e.Network, e.Field)
}

func (e MissingFieldErr) Unwrap() error { return ErrMissingField }

type InvalidFieldErr struct {
	Network string
	Field   string
	Err     error
}

func (e InvalidFieldErr) Error() string {
	return fmt.Sprintf("network '%s': invalid value for '%s': %v", e.Network, e.Field, e.Err)
}

func (e InvalidFieldErr) Unwrap() []error { return []error{ErrInvalidField, e.Err} }

// DeploymentFailure is returned by a run that stopped at Unit. Partial holds
// every address committed before the failure.
type DeploymentFailure struct {
	Unit    string
	Partial *DeploymentResult
	Err     error
}

func (e *DeploymentFailure) Error() string {
	return fmt.Sprintf("deployment of '%s' failed: %v", e.Unit, e.Err)
}

func (e *DeploymentFailure) Unwrap() []error { return []error{ErrDeploymentFailed, e.Err} }

// CancelledErr is returned when the run context is done before NextUnit starts
type CancelledErr struct {
	NextUnit string
	Partial  *DeploymentResult
	Err      error
}

func (e *CancelledErr) Error() string {
	return fmt.Sprintf("run cancelled before '%s': %v", e.NextUnit, e.Err)
}

func (e *CancelledErr) Unwrap() []error { return []error{ErrRunCancelled, e.Err} }
