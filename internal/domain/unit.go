package domain

import "fmt"

// ArgKind tags the variant held by an ArgValue
type ArgKind string

const (
	ArgLiteral  ArgKind = "literal"
	ArgAddress  ArgKind = "ref"
	ArgDeployer ArgKind = "deployer"
)

// ArgValue is one constructor argument of a unit. A literal is passed to the
// backend unchanged; an address reference is replaced by the address
// recorded for another unit; a deployer reference is replaced by the
// account that sends the deployment.
type ArgValue struct {
	Kind  ArgKind `json:"kind" yaml:"kind"`
	Value any     `json:"value,omitempty" yaml:"value,omitempty"`
	Ref   string  `json:"ref,omitempty" yaml:"ref,omitempty"`
}

// Literal creates a literal argument
func Literal(v any) ArgValue {
	return ArgValue{Kind: ArgLiteral, Value: v}
}

// AddressRef creates an argument resolved to the deployed address of unit id
func AddressRef(id string) ArgValue {
	return ArgValue{Kind: ArgAddress, Ref: id}
}

// DeployerRef creates an argument resolved to the deploying account
func DeployerRef() ArgValue {
	return ArgValue{Kind: ArgDeployer}
}

func (a ArgValue) String() string {
	switch a.Kind {
	case ArgAddress:
		return "@" + a.Ref
	case ArgDeployer:
		return "<deployer>"
	default:
		return fmt.Sprintf("%v", a.Value)
	}
}

// DeploymentSpec declares one deployable unit
type DeploymentSpec struct {
	ID        string     `json:"id" yaml:"id"`
	Contract  string     `json:"contract,omitempty" yaml:"contract,omitempty"`
	Args      []ArgValue `json:"args,omitempty" yaml:"args,omitempty"`
	DependsOn []string   `json:"dependsOn,omitempty" yaml:"depends_on,omitempty"`
}

// ContractName returns the artifact deployed for this unit
func (s DeploymentSpec) ContractName() string {
	if s.Contract != "" {
		return s.Contract
	}
	return s.ID
}

// Dependencies returns explicit and implicit (address reference) dependencies
// in first-seen order without duplicates.
func (s DeploymentSpec) Dependencies() []string {
	seen := make(map[string]bool)
	var deps []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			deps = append(deps, id)
		}
	}
	for _, dep := range s.DependsOn {
		add(dep)
	}
	for _, arg := range s.Args {
		if arg.Kind == ArgAddress {
			add(arg.Ref)
		}
	}
	return deps
}

// Manifest is the unordered collection of units read from a manifest file
type Manifest struct {
	Group string
	Units []DeploymentSpec
}

// DeploymentPlan is a dependency-ordered sequence of units
type DeploymentPlan struct {
	Group string
	Units []DeploymentSpec
}

// IDs returns the unit ids in execution order
func (p *DeploymentPlan) IDs() []string {
	ids := make([]string, len(p.Units))
	for i, u := range p.Units {
		ids[i] = u.ID
	}
	return ids
}
