package engine

import (
	"context"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/logger"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
)

// ExecutionContext contains runtime state shared across executor workers.
type ExecutionContext struct {
	Plan            *config.Plan
	Registry        *plugin.Registry
	DryRun          bool
	Verbose         bool
	ContinueOnError bool
	WorkerPool      chan struct{}
	Results         map[string]*model.StepResult
	Logger          *logger.Logger
	Context         context.Context
}
