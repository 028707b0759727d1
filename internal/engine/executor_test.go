package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
)

// stubPlugin drives the executor with scripted evaluation and apply
// behavior, keyed by step ID.
type stubPlugin struct {
	name    string
	evals   map[string]*model.EvaluationResult
	evalErr map[string]error
	applyFn func(step *config.Step) (*model.StepResult, error)
	applied []string
}

func (s *stubPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{Name: s.name, Version: "1.0.0", APIVersion: "1.x"}
}

func (s *stubPlugin) Schema() any { return nil }

func (s *stubPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	if err := s.evalErr[step.ID]; err != nil {
		return nil, err
	}
	if eval, ok := s.evals[step.ID]; ok {
		return eval, nil
	}
	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusSatisfied,
		RequiresAction: false,
		Message:        "in sync",
		Reconciliation: model.Succeeded(nil, "in sync"),
	}, nil
}

func (s *stubPlugin) Apply(ctx context.Context, eval *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	s.applied = append(s.applied, step.ID)
	if s.applyFn != nil {
		return s.applyFn(step)
	}
	rec := model.Succeeded(model.Changes{"esx01.lab": true}, "changed")
	return &model.StepResult{StepID: step.ID, Status: model.StatusSuccess, Reconciliation: rec}, nil
}

func newContext(t *testing.T, stub *stubPlugin, steps []config.Step, dryRun, continueOnError bool) *ExecutionContext {
	t.Helper()

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(stub.name, stub))

	return &ExecutionContext{
		Plan: &config.Plan{
			Version: "1.0.0",
			Name:    "test",
			Steps:   steps,
		},
		Registry:        registry,
		DryRun:          dryRun,
		ContinueOnError: continueOnError,
		WorkerPool:      make(chan struct{}, 4),
		Context:         context.Background(),
	}
}

func ntpSteps(ids ...string) []config.Step {
	steps := make([]config.Step, 0, len(ids))
	for _, id := range ids {
		steps = append(steps, step(id))
	}
	return steps
}

func driftedEval(stepID string) *model.EvaluationResult {
	return &model.EvaluationResult{
		StepID:         stepID,
		CurrentState:   model.StatusDrifted,
		RequiresAction: true,
		Message:        "drifted",
		Reconciliation: model.Preview(nil, "will change"),
	}
}

func mustPlan(t *testing.T, steps []config.Step) *ExecutionPlan {
	t.Helper()

	graph, err := BuildDAG(steps)
	require.NoError(t, err)
	plan, err := GeneratePlan(graph)
	require.NoError(t, err)
	return plan
}

func TestExecuteAppliesDriftedSteps(t *testing.T) {
	t.Parallel()

	steps := ntpSteps("a", "b")
	stub := &stubPlugin{name: "ntp", evals: map[string]*model.EvaluationResult{"a": driftedEval("a")}}
	execCtx := newContext(t, stub, steps, false, false)

	results, err := Execute(execCtx, mustPlan(t, steps))
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]model.StepResult{}
	for _, res := range results {
		byID[res.StepID] = res
	}
	require.Equal(t, model.StatusSuccess, byID["a"].Status)
	require.Equal(t, model.StatusSkipped, byID["b"].Status)
	require.Equal(t, []string{"a"}, stub.applied, "satisfied steps never reach Apply")
}

func TestExecuteDryRunNeverApplies(t *testing.T) {
	t.Parallel()

	steps := ntpSteps("missing", "drifted", "insync")
	stub := &stubPlugin{name: "ntp", evals: map[string]*model.EvaluationResult{
		"missing": {
			StepID:         "missing",
			CurrentState:   model.StatusMissing,
			RequiresAction: true,
			Reconciliation: model.Preview(nil, "will create"),
		},
		"drifted": driftedEval("drifted"),
	}}
	execCtx := newContext(t, stub, steps, true, false)

	results, err := Execute(execCtx, mustPlan(t, steps))
	require.NoError(t, err)

	byID := map[string]model.StepResult{}
	for _, res := range results {
		byID[res.StepID] = res
	}
	require.Equal(t, model.StatusWouldCreate, byID["missing"].Status)
	require.Equal(t, model.StatusWouldUpdate, byID["drifted"].Status)
	require.Equal(t, model.StatusSkipped, byID["insync"].Status)
	require.Empty(t, stub.applied)

	require.Equal(t, model.OutcomePreview, byID["drifted"].Reconciliation.Outcome)
}

func TestExecuteStopsOnFailureByDefault(t *testing.T) {
	t.Parallel()

	steps := []config.Step{step("a"), step("b", "a")}
	stub := &stubPlugin{
		name:  "ntp",
		evals: map[string]*model.EvaluationResult{"a": driftedEval("a"), "b": driftedEval("b")},
		applyFn: func(s *config.Step) (*model.StepResult, error) {
			err := errors.New("boom")
			return &model.StepResult{
				StepID:         s.ID,
				Status:         model.StatusFailed,
				Reconciliation: model.Failed(err.Error()),
				Error:          err,
			}, err
		},
	}
	execCtx := newContext(t, stub, steps, false, false)

	results, err := Execute(execCtx, mustPlan(t, steps))
	require.Error(t, err)
	require.Len(t, results, 1)
	require.Equal(t, model.StatusFailed, results[0].Status)
	require.Empty(t, results[0].Reconciliation.Changes)
	require.Equal(t, []string{"a"}, stub.applied, "dependent level never runs")
}

func TestExecuteContinueOnError(t *testing.T) {
	t.Parallel()

	steps := []config.Step{step("a"), step("b", "a")}
	stub := &stubPlugin{
		name:  "ntp",
		evals: map[string]*model.EvaluationResult{"a": driftedEval("a")},
		applyFn: func(s *config.Step) (*model.StepResult, error) {
			err := errors.New("boom")
			return &model.StepResult{StepID: s.ID, Status: model.StatusFailed, Error: err}, err
		},
	}
	execCtx := newContext(t, stub, steps, false, true)

	results, err := Execute(execCtx, mustPlan(t, steps))
	require.Error(t, err, "first error still reported")
	require.Len(t, results, 2, "later levels keep running")
}

func TestExecuteFailedEvaluationWithoutAction(t *testing.T) {
	t.Parallel()

	// Evaluations can settle a step as failed before any apply, e.g. a
	// plan that removes an adapter which does not exist.
	steps := ntpSteps("a")
	stub := &stubPlugin{name: "ntp", evals: map[string]*model.EvaluationResult{
		"a": {
			StepID:         "a",
			CurrentState:   model.StatusBlocked,
			RequiresAction: false,
			Reconciliation: model.Failed("VMkernel adapter vmk9 is not present."),
		},
	}}
	execCtx := newContext(t, stub, steps, false, false)

	results, err := Execute(execCtx, mustPlan(t, steps))
	require.Error(t, err)
	require.Len(t, results, 1)
	require.Equal(t, model.StatusFailed, results[0].Status)
	require.Empty(t, results[0].Reconciliation.Changes)
	require.Contains(t, results[0].Reconciliation.Comment, "vmk9 is not present")
	require.Empty(t, stub.applied)
}

func TestExecuteEvaluationErrorFailsStep(t *testing.T) {
	t.Parallel()

	steps := ntpSteps("a")
	stub := &stubPlugin{name: "ntp", evalErr: map[string]error{
		"a": plugin.NewStateError("a", errors.New("connection refused")),
	}}
	execCtx := newContext(t, stub, steps, false, false)

	results, err := Execute(execCtx, mustPlan(t, steps))
	require.Error(t, err)
	require.Len(t, results, 1)
	require.Equal(t, model.StatusFailed, results[0].Status)
	require.Contains(t, results[0].Message, "connection refused")
}

func TestVerifyStepsSummarizesStates(t *testing.T) {
	t.Parallel()

	steps := ntpSteps("sat", "missing", "drifted")
	stub := &stubPlugin{name: "ntp", evals: map[string]*model.EvaluationResult{
		"missing": {
			StepID:         "missing",
			CurrentState:   model.StatusMissing,
			RequiresAction: true,
		},
		"drifted": driftedEval("drifted"),
	}}
	execCtx := newContext(t, stub, steps, false, false)

	summary, err := VerifySteps(execCtx, steps, 10*time.Second)
	require.NoError(t, err)

	require.Equal(t, 3, summary.TotalSteps)
	require.Equal(t, 1, summary.Satisfied)
	require.Equal(t, 1, summary.Missing)
	require.Equal(t, 1, summary.Drifted)
	require.False(t, summary.AllSatisfied())
	require.Empty(t, stub.applied, "verify never mutates")
}

func TestVerifyStepsBlocksDependentsOfDriftedSteps(t *testing.T) {
	t.Parallel()

	steps := []config.Step{step("a"), step("b", "a")}
	stub := &stubPlugin{name: "ntp", evals: map[string]*model.EvaluationResult{
		"a": driftedEval("a"),
	}}
	execCtx := newContext(t, stub, steps, false, false)

	summary, err := VerifySteps(execCtx, steps, 10*time.Second)
	require.NoError(t, err)

	require.Equal(t, 1, summary.Drifted)
	require.Equal(t, 1, summary.Blocked)
}

func TestVerifyStepsStateErrorIsUnknown(t *testing.T) {
	t.Parallel()

	steps := ntpSteps("a")
	stub := &stubPlugin{name: "ntp", evalErr: map[string]error{
		"a": plugin.NewStateError("a", errors.New("connection refused")),
	}}
	execCtx := newContext(t, stub, steps, false, false)

	summary, err := VerifySteps(execCtx, steps, 10*time.Second)
	require.NoError(t, err)

	require.Equal(t, 1, summary.Unknown)
}
