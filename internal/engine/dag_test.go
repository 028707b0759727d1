package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esxistate/esxistate/internal/config"
)

func step(id string, deps ...string) config.Step {
	return config.Step{
		ID:        id,
		Type:      "ntp",
		DependsOn: deps,
		Enabled:   true,
		NTP:       &config.NTPStep{Servers: []string{"0.pool.ntp.org"}},
	}
}

func TestBuildDAGLevels(t *testing.T) {
	t.Parallel()

	graph, err := BuildDAG([]config.Step{
		step("a"),
		step("b", "a"),
		step("c", "a"),
		step("d", "b", "c"),
	})
	require.NoError(t, err)

	require.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, graph.Levels)
}

func TestBuildDAGSkipsDisabledSteps(t *testing.T) {
	t.Parallel()

	disabled := step("b")
	disabled.Enabled = false

	graph, err := BuildDAG([]config.Step{step("a"), disabled})
	require.NoError(t, err)

	require.Len(t, graph.Nodes, 1)
	require.Equal(t, [][]string{{"a"}}, graph.Levels)
}

func TestBuildDAGRejectsCycle(t *testing.T) {
	t.Parallel()

	_, err := BuildDAG([]config.Step{
		step("a", "b"),
		step("b", "a"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestBuildDAGRejectsUnknownDependency(t *testing.T) {
	t.Parallel()

	_, err := BuildDAG([]config.Step{step("a", "ghost")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ghost")
}

func TestBuildDAGRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	_, err := BuildDAG([]config.Step{step("a"), step("a")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestGeneratePlanString(t *testing.T) {
	t.Parallel()

	graph, err := BuildDAG([]config.Step{step("a"), step("b", "a")})
	require.NoError(t, err)

	plan, err := GeneratePlan(graph)
	require.NoError(t, err)

	require.Len(t, plan.Levels, 2)
	require.Contains(t, plan.String(), "Level 0 (1 steps): a")
}
