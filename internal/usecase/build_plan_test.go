package usecase_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capybaraSpecs() []domain.DeploymentSpec {
	return []domain.DeploymentSpec{
		{
			ID: "CapybaraDispenser",
			Args: []domain.ArgValue{
				domain.AddressRef("CapybaraToken"),
				domain.AddressRef("CapybaraNFTGate"),
				domain.Literal("https://capybara.io/proxy"),
			},
		},
		{ID: "CapybaraToken", Args: []domain.ArgValue{domain.DeployerRef()}},
		{ID: "CapybaraNFTGate", Args: []domain.ArgValue{domain.Literal("Capybara NFT Gate"), domain.Literal("CAPYBARA-GATE")}},
	}
}

func TestBuildPlan(t *testing.T) {
	tests := []struct {
		name  string
		specs []domain.DeploymentSpec
		want  []string
	}{
		{
			name:  "empty",
			specs: nil,
			want:  []string{},
		},
		{
			name: "independent units keep declaration order",
			specs: []domain.DeploymentSpec{
				{ID: "C"}, {ID: "A"}, {ID: "B"},
			},
			want: []string{"C", "A", "B"},
		},
		{
			name:  "references come first",
			specs: capybaraSpecs(),
			want:  []string{"CapybaraToken", "CapybaraNFTGate", "CapybaraDispenser"},
		},
		{
			name: "explicit depends_on",
			specs: []domain.DeploymentSpec{
				{ID: "Migrations", DependsOn: []string{"Registry"}},
				{ID: "Registry"},
			},
			want: []string{"Registry", "Migrations"},
		},
		{
			name: "unlocked unit is placed by declaration index",
			specs: []domain.DeploymentSpec{
				{ID: "A"},
				{ID: "B", Args: []domain.ArgValue{domain.AddressRef("D")}},
				{ID: "C"},
				{ID: "D"},
			},
			want: []string{"A", "C", "D", "B"},
		},
		{
			name: "diamond",
			specs: []domain.DeploymentSpec{
				{ID: "Top", DependsOn: []string{"Left", "Right"}},
				{ID: "Right", DependsOn: []string{"Base"}},
				{ID: "Left", DependsOn: []string{"Base"}},
				{ID: "Base"},
			},
			want: []string{"Base", "Right", "Left", "Top"},
		},
		{
			name: "same unit referenced twice",
			specs: []domain.DeploymentSpec{
				{ID: "Pair", Args: []domain.ArgValue{domain.AddressRef("Token"), domain.AddressRef("Token")}, DependsOn: []string{"Token"}},
				{ID: "Token"},
			},
			want: []string{"Token", "Pair"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := usecase.BuildPlan("Capybara", tt.specs)
			require.NoError(t, err)
			assert.Equal(t, "Capybara", plan.Group)
			assert.Equal(t, tt.want, plan.IDs())
		})
	}
}

func TestBuildPlan_Deterministic(t *testing.T) {
	first, err := usecase.BuildPlan("Capybara", capybaraSpecs())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		plan, err := usecase.BuildPlan("Capybara", capybaraSpecs())
		require.NoError(t, err)
		assert.Equal(t, first.IDs(), plan.IDs())
	}
}

func TestBuildPlan_Errors(t *testing.T) {
	tests := []struct {
		name    string
		specs   []domain.DeploymentSpec
		wantErr error
		check   func(t *testing.T, err error)
	}{
		{
			name: "self reference",
			specs: []domain.DeploymentSpec{
				{ID: "A", Args: []domain.ArgValue{domain.AddressRef("A")}},
			},
			wantErr: domain.ErrCyclicDependency,
		},
		{
			name: "two unit cycle",
			specs: []domain.DeploymentSpec{
				{ID: "Free"},
				{ID: "A", Args: []domain.ArgValue{domain.AddressRef("B")}},
				{ID: "B", DependsOn: []string{"A"}},
			},
			wantErr: domain.ErrCyclicDependency,
			check: func(t *testing.T, err error) {
				var cycle domain.CyclicDependencyErr
				require.True(t, errors.As(err, &cycle))
				assert.Equal(t, []string{"A", "B", "A"}, cycle.Cycle)
			},
		},
		{
			name: "unknown reference",
			specs: []domain.DeploymentSpec{
				{ID: "CapybaraToken"},
				{ID: "CapybaraDispenser", Args: []domain.ArgValue{domain.AddressRef("CapybaraTokn")}},
			},
			wantErr: domain.ErrUnknownReference,
			check: func(t *testing.T, err error) {
				var unknown domain.UnknownReferenceErr
				require.True(t, errors.As(err, &unknown))
				assert.Equal(t, "CapybaraDispenser", unknown.Unit)
				assert.Equal(t, "CapybaraTokn", unknown.Ref)
				assert.Contains(t, err.Error(), "did you mean 'CapybaraToken'")
			},
		},
		{
			name: "unknown depends_on",
			specs: []domain.DeploymentSpec{
				{ID: "A", DependsOn: []string{"Ghost"}},
			},
			wantErr: domain.ErrUnknownReference,
		},
		{
			name: "duplicate id",
			specs: []domain.DeploymentSpec{
				{ID: "CapybaraToken"},
				{ID: "CapybaraToken", Contract: "OtherToken"},
			},
			wantErr: domain.ErrDuplicateID,
		},
		{
			name: "empty id",
			specs: []domain.DeploymentSpec{
				{ID: ""},
			},
			wantErr: domain.ErrInvalidSpec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := usecase.BuildPlan("Capybara", tt.specs)
			require.Error(t, err)
			assert.Nil(t, plan)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, domain.IsPlanError(err))
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestBuildPlan_RandomDAGs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(20)
		specs := make([]domain.DeploymentSpec, n)
		for i := range specs {
			specs[i].ID = fmt.Sprintf("Unit%02d", i)
			// edges only point to lower indices, so the graph is acyclic
			for j := 0; j < i; j++ {
				switch rng.Intn(6) {
				case 0:
					specs[i].Args = append(specs[i].Args, domain.AddressRef(specs[j].ID))
				case 1:
					specs[i].DependsOn = append(specs[i].DependsOn, specs[j].ID)
				}
			}
		}
		rng.Shuffle(n, func(a, b int) { specs[a], specs[b] = specs[b], specs[a] })

		plan, err := usecase.BuildPlan("Random", specs)
		require.NoError(t, err, "round %d", round)
		require.Len(t, plan.Units, n)

		position := make(map[string]int, n)
		for i, unit := range plan.Units {
			position[unit.ID] = i
		}
		require.Len(t, position, n, "every unit appears exactly once")

		for _, unit := range plan.Units {
			for _, dep := range unit.Dependencies() {
				assert.Less(t, position[dep], position[unit.ID], "round %d: %s before %s", round, dep, unit.ID)
			}
		}

		again, err := usecase.BuildPlan("Random", specs)
		require.NoError(t, err)
		assert.Equal(t, plan.IDs(), again.IDs())
	}
}
