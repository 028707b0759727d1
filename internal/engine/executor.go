package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
)

// Execute runs the execution plan and returns step results in plan order.
//
// Steps on the same level run concurrently, bounded by the worker pool.
// A failing step cancels subsequent levels unless ContinueOnError is set;
// the failing step's own result is always reported.
func Execute(execCtx *ExecutionContext, plan *ExecutionPlan) ([]model.StepResult, error) {
	if execCtx == nil {
		return nil, fmt.Errorf("execution context is nil")
	}
	if execCtx.Plan == nil {
		return nil, fmt.Errorf("execution context plan is nil")
	}
	if plan == nil {
		return nil, fmt.Errorf("execution plan is nil")
	}

	baseCtx := execCtx.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	timeout := time.Duration(execCtx.Plan.Settings.Timeout) * time.Second

	stepLookup := make(map[string]*config.Step, len(execCtx.Plan.Steps))
	for i := range execCtx.Plan.Steps {
		step := &execCtx.Plan.Steps[i]
		stepLookup[step.ID] = step
	}

	if execCtx.Results == nil {
		execCtx.Results = make(map[string]*model.StepResult)
	}

	var resultsMu sync.Mutex
	var allResults []model.StepResult
	var firstErr error

	for _, level := range plan.Levels {
		levelResults := make([]model.StepResult, len(level.StepIDs))
		var levelErr error
		var once sync.Once
		var wg sync.WaitGroup

		for idx, stepID := range level.StepIDs {
			step, ok := stepLookup[stepID]
			if !ok {
				return allResults, fmt.Errorf("step %s not found in plan", stepID)
			}

			wg.Add(1)
			go func(idx int, step *config.Step) {
				defer wg.Done()

				res, err := executeStep(ctx, execCtx, step, timeout)
				if res != nil {
					levelResults[idx] = *res
					resultsMu.Lock()
					execCtx.Results[step.ID] = res
					resultsMu.Unlock()
				}

				if err != nil {
					once.Do(func() {
						levelErr = err
						if !execCtx.ContinueOnError {
							cancel()
						}
					})
				}
			}(idx, step)
		}

		wg.Wait()

		if levelErr != nil {
			for _, res := range levelResults {
				if res.StepID != "" {
					allResults = append(allResults, res)
				}
			}
			if firstErr == nil {
				firstErr = levelErr
			}
			if !execCtx.ContinueOnError {
				return allResults, levelErr
			}
			levelErr = nil
			continue
		}

		allResults = append(allResults, levelResults...)
	}

	return allResults, firstErr
}

func executeStep(ctx context.Context, execCtx *ExecutionContext, step *config.Step, timeout time.Duration) (*model.StepResult, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("step %s cancelled: %w", step.ID, ctx.Err())
	}

	stepCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if execCtx.WorkerPool != nil {
		select {
		case execCtx.WorkerPool <- struct{}{}:
			defer func() { <-execCtx.WorkerPool }()
		case <-stepCtx.Done():
			return timeoutResult(step.ID, stepCtx.Err())
		}
	}

	impl, err := execCtx.Registry.Get(step.Type)
	if err != nil {
		return nil, err
	}

	log := execCtx.Logger.WithStep(step.ID)
	start := time.Now()

	evalResult, err := impl.Evaluate(stepCtx, step)
	if err != nil {
		log.Error(err, "evaluation failed")
		res := &model.StepResult{
			StepID:    step.ID,
			Status:    model.StatusFailed,
			Message:   fmt.Sprintf("Evaluation failed: %v", err),
			Duration:  time.Since(start),
			Timestamp: time.Now(),
			Error:     err,
		}
		return res, fmt.Errorf("evaluation failed for step %s: %w", step.ID, err)
	}

	var result *model.StepResult
	switch {
	case !evalResult.RequiresAction:
		// Some evaluations settle the step without an apply: either the
		// state already matches, or the plan references something that
		// cannot be reconciled and the step fails outright.
		if evalResult.Reconciliation != nil && evalResult.Reconciliation.Outcome == model.OutcomeFailed {
			err := errors.New(evalResult.Reconciliation.Comment)
			result = &model.StepResult{
				StepID:         step.ID,
				Status:         model.StatusFailed,
				Message:        evalResult.Message,
				Reconciliation: evalResult.Reconciliation,
				Error:          err,
			}
			return finalize(result, start), fmt.Errorf("step %s failed: %w", step.ID, err)
		}
		result = &model.StepResult{
			StepID:         step.ID,
			Status:         model.StatusSkipped,
			Message:        evalResult.Message,
			Reconciliation: evalResult.Reconciliation,
		}

	case execCtx.DryRun:
		status := model.StatusWouldUpdate
		if evalResult.CurrentState == model.StatusMissing {
			status = model.StatusWouldCreate
		}
		result = &model.StepResult{
			StepID:         step.ID,
			Status:         status,
			Message:        evalResult.Message,
			Reconciliation: evalResult.Reconciliation,
		}

	default:
		result, err = impl.Apply(stepCtx, evalResult, step)
		if result == nil {
			result = &model.StepResult{StepID: step.ID}
		}
		if err != nil {
			log.Error(err, "apply failed")
			if result.Status == "" {
				result.Status = model.StatusFailed
			}
			if result.Error == nil {
				result.Error = err
			}
			if result.Message == "" {
				result.Message = err.Error()
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
				result.Message = "timeout exceeded"
			}
			return finalize(result, start), fmt.Errorf("step %s failed: %w", step.ID, err)
		}
	}

	if result.Status == "" {
		result.Status = model.StatusSuccess
	}
	log.WithFields(map[string]any{"status": result.Status}).Debug("step finished")
	return finalize(result, start), nil
}

func finalize(result *model.StepResult, start time.Time) *model.StepResult {
	result.Duration = time.Since(start)
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	return result
}

func timeoutResult(stepID string, err error) (*model.StepResult, error) {
	if err == nil {
		err = context.DeadlineExceeded
	}
	res := &model.StepResult{
		StepID:    stepID,
		Status:    model.StatusFailed,
		Message:   "timeout exceeded",
		Error:     err,
		Timestamp: time.Now(),
	}
	return res, fmt.Errorf("step %s timed out: %w", stepID, err)
}
