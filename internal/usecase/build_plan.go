package usecase

import (
	"fmt"
	"slices"
	"sort"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
)

// BuildPlan orders specs so that every unit comes after the units it depends
// on. Units with no ordering constraint between them keep their declaration
// order, so the same input always yields the same plan.
func BuildPlan(group string, specs []domain.DeploymentSpec) (*domain.DeploymentPlan, error) {
	graph, err := NewDependencyGraph(specs)
	if err != nil {
		return nil, err
	}

	units, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	return &domain.DeploymentPlan{
		Group: group,
		Units: units,
	}, nil
}

// DependencyGraph represents the dependencies between declared units
type DependencyGraph struct {
	specs []domain.DeploymentSpec
	index map[string]int
	deps  [][]int // unit -> units it depends on
	edges [][]int // unit -> units that depend on it, in declaration order
}

// NewDependencyGraph validates specs and builds the graph over explicit
// dependencies and address references.
func NewDependencyGraph(specs []domain.DeploymentSpec) (*DependencyGraph, error) {
	g := &DependencyGraph{
		specs: specs,
		index: make(map[string]int, len(specs)),
		deps:  make([][]int, len(specs)),
		edges: make([][]int, len(specs)),
	}

	for i, spec := range specs {
		if spec.ID == "" {
			return nil, domain.InvalidSpecErr{Index: i, Reason: "id is required"}
		}
		if _, exists := g.index[spec.ID]; exists {
			return nil, domain.DuplicateIDErr{ID: spec.ID}
		}
		g.index[spec.ID] = i
	}

	for i, spec := range specs {
		for _, dep := range spec.Dependencies() {
			j, exists := g.index[dep]
			if !exists {
				return nil, domain.UnknownReferenceErr{
					Unit:        spec.ID,
					Ref:         dep,
					Suggestions: g.suggest(dep),
				}
			}
			g.deps[i] = append(g.deps[i], j)
			g.edges[j] = append(g.edges[j], i)
		}
	}

	return g, nil
}

// TopologicalSort returns the units in execution order, or a
// CyclicDependencyErr naming one cycle when no order exists
func (g *DependencyGraph) TopologicalSort() ([]domain.DeploymentSpec, error) {
	inDegree := make([]int, len(g.specs))
	var ready []int
	for i := range g.specs {
		inDegree[i] = len(g.deps[i])
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	done := make([]bool, len(g.specs))
	result := make([]domain.DeploymentSpec, 0, len(g.specs))

	for len(ready) > 0 {
		// ready stays sorted by declaration index
		current := ready[0]
		ready = ready[1:]

		done[current] = true
		result = append(result, g.specs[current])

		for _, dependent := range g.edges[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				pos := sort.SearchInts(ready, dependent)
				ready = slices.Insert(ready, pos, dependent)
			}
		}
	}

	if len(result) != len(g.specs) {
		return nil, domain.CyclicDependencyErr{Cycle: g.findCycle(done)}
	}

	return result, nil
}

// findCycle walks dependencies among units that could not be ordered. Each of
// them has at least one unordered dependency, so the walk must revisit a unit.
func (g *DependencyGraph) findCycle(done []bool) []string {
	start := lo.IndexOf(done, false)
	if start < 0 {
		return nil
	}

	visitedAt := make(map[int]int)
	var path []int
	current := start
	for {
		if pos, seen := visitedAt[current]; seen {
			cycle := lo.Map(path[pos:], func(i int, _ int) string { return g.specs[i].ID })
			return append(cycle, g.specs[current].ID)
		}
		visitedAt[current] = len(path)
		path = append(path, current)

		next, found := lo.Find(g.deps[current], func(dep int) bool { return !done[dep] })
		if !found {
			// unreachable when done reflects a finished Kahn pass
			panic(fmt.Sprintf("unit '%s' is unordered but has no unordered dependency", g.specs[current].ID))
		}
		current = next
	}
}

// suggest returns declared ids close to ref, best match first
func (g *DependencyGraph) suggest(ref string) []string {
	ids := lo.Map(g.specs, func(s domain.DeploymentSpec, _ int) string { return s.ID })
	matches := fuzzy.Find(ref, ids)
	return lo.Map(matches, func(m fuzzy.Match, _ int) string { return m.Str })
}
