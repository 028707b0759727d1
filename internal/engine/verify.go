package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
)

// VerifySteps assesses every enabled step without mutating anything and
// returns a summary grouped by verification status.
//
// Steps whose dependencies are not satisfied are reported as blocked
// rather than evaluated; a state detection error downgrades the step to
// unknown instead of aborting the whole run.
func VerifySteps(execCtx *ExecutionContext, steps []config.Step, defaultTimeout time.Duration) (*model.VerificationSummary, error) {
	start := time.Now()

	stepIndex := make(map[string]*config.Step, len(steps))
	enabledSteps := 0
	for i := range steps {
		if !steps[i].Enabled {
			continue
		}
		step := &steps[i]
		stepIndex[step.ID] = step
		enabledSteps++
	}

	graph, err := BuildDAG(steps)
	if err != nil {
		return nil, err
	}

	summary := &model.VerificationSummary{
		TotalSteps: enabledSteps,
		Results:    make([]*model.VerificationResult, 0, enabledSteps),
	}

	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}

	baseCtx := execCtx.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	resultsByID := make(map[string]*model.VerificationResult, enabledSteps)

	record := func(result *model.VerificationResult) {
		summary.Results = append(summary.Results, result)
		resultsByID[result.StepID] = result
		switch result.Status {
		case model.StatusSatisfied:
			summary.Satisfied++
		case model.StatusMissing:
			summary.Missing++
		case model.StatusDrifted:
			summary.Drifted++
		case model.StatusBlocked:
			summary.Blocked++
		case model.StatusUnknown:
			summary.Unknown++
		}
	}

	for _, level := range graph.Levels {
		for _, stepID := range level {
			step, ok := stepIndex[stepID]
			if !ok {
				continue
			}

			if baseCtx.Err() != nil {
				summary.Duration = time.Since(start)
				return summary, baseCtx.Err()
			}

			if blocked := blockedByDependencies(step, resultsByID); blocked != "" {
				record(&model.VerificationResult{
					StepID:    step.ID,
					Status:    model.StatusBlocked,
					Message:   fmt.Sprintf("blocked: dependencies not satisfied: %s", blocked),
					Error:     fmt.Errorf("dependencies not satisfied: %s", blocked),
					Timestamp: time.Now(),
				})
				continue
			}

			impl, err := execCtx.Registry.Get(step.Type)
			if err != nil {
				record(&model.VerificationResult{
					StepID:    step.ID,
					Status:    model.StatusBlocked,
					Message:   fmt.Sprintf("plugin not found for type %s", step.Type),
					Error:     err,
					Timestamp: time.Now(),
				})
				continue
			}

			stepStart := time.Now()
			stepCtx, cancel := context.WithTimeout(baseCtx, defaultTimeout)
			evalResult, evalErr := impl.Evaluate(stepCtx, step)
			cancel()

			if evalErr != nil {
				var stateErr *plugin.StateError
				if errors.As(evalErr, &stateErr) {
					record(&model.VerificationResult{
						StepID:    step.ID,
						Status:    model.StatusUnknown,
						Message:   stateErr.Error(),
						Error:     stateErr.Unwrap(),
						Duration:  time.Since(stepStart),
						Timestamp: time.Now(),
					})
					continue
				}
				// Validation and execution errors point at the plan
				// itself; stop the run.
				summary.Duration = time.Since(start)
				return summary, evalErr
			}

			record(&model.VerificationResult{
				StepID:    evalResult.StepID,
				Status:    evalResult.CurrentState,
				Message:   evalResult.Message,
				Details:   evalResult.Diff,
				Duration:  time.Since(stepStart),
				Timestamp: time.Now(),
			})
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

func blockedByDependencies(step *config.Step, resultsByID map[string]*model.VerificationResult) string {
	var unsatisfied []string
	for _, depID := range step.DependsOn {
		depResult, exists := resultsByID[depID]
		if !exists {
			continue
		}
		if depResult.Status != model.StatusSatisfied {
			unsatisfied = append(unsatisfied, fmt.Sprintf("%s (%s)", depID, depResult.Status))
		}
	}
	return strings.Join(unsatisfied, ", ")
}
