package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/engine"
	"github.com/esxistate/esxistate/internal/logger"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins"
	"github.com/esxistate/esxistate/internal/tui"
)

type applyOptions struct {
	PlanPath       string
	DryRun         bool
	Verbose        bool
	NonInteractive bool
}

var applyCmdRunner = runApply

func newApplyCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile hosts against a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DryRun = root.dryRun
			opts.Verbose = root.verbose
			opts.NonInteractive = !term.IsTerminal(int(os.Stdout.Fd()))

			if err := validatePlanPath(opts.PlanPath); err != nil {
				return err
			}

			return applyCmdRunner(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.PlanPath, "plan", "p", "", "Path to plan file")
	cmd.MarkFlagRequired("plan") //nolint:errcheck

	return cmd
}

func runApply(opts applyOptions) error {
	plan, err := config.ParsePlan(opts.PlanPath)
	if err != nil {
		return err
	}
	if err := config.ValidatePlan(plan); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	graph, err := engine.BuildDAG(plan.Steps)
	if err != nil {
		return err
	}
	execution, err := engine.GeneratePlan(graph)
	if err != nil {
		return err
	}

	effectiveDryRun := opts.DryRun || plan.Settings.DryRun
	effectiveVerbose := opts.Verbose || plan.Settings.Verbose

	level := "info"
	if effectiveVerbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true})
	if err != nil {
		return err
	}

	client, err := connect(ctx, plan.Connection)
	if err != nil {
		return err
	}

	registry := plugin.NewRegistry()
	if err := plugins.RegisterDefaults(registry, client); err != nil {
		return err
	}

	parallel := plan.Settings.Parallel
	if parallel <= 0 {
		parallel = 4
	}

	execCtx := &engine.ExecutionContext{
		Plan:            plan,
		Registry:        registry,
		DryRun:          effectiveDryRun,
		Verbose:         effectiveVerbose,
		ContinueOnError: plan.Settings.ContinueOnError,
		WorkerPool:      make(chan struct{}, parallel),
		Results:         make(map[string]*model.StepResult),
		Logger:          log,
		Context:         ctx,
	}

	modelState := tui.NewModel(plan, execution, effectiveDryRun, opts.NonInteractive)
	interactive := !opts.NonInteractive

	var program *tea.Program
	var programErr error
	done := make(chan struct{})

	if interactive {
		program = tea.NewProgram(modelState)
		go func() {
			_, programErr = program.Run()
			close(done)
		}()
	}

	results, execErr := engine.Execute(execCtx, execution)
	for _, res := range results {
		dispatchTuiMessage(interactive, program, &modelState, tui.StepCompleteMsg{Result: res})
	}

	if interactive {
		if program != nil {
			program.Send(tea.QuitMsg{})
		}
		<-done
		if programErr != nil {
			return programErr
		}
	} else {
		fmt.Fprintln(os.Stdout, modelState.View())
	}

	return execErr
}

func dispatchTuiMessage(interactive bool, program *tea.Program, state *tui.Model, msg tea.Msg) {
	if interactive {
		if program != nil {
			program.Send(msg)
		}
		return
	}

	updated, _ := state.Update(msg)
	if m, ok := updated.(tui.Model); ok {
		*state = m
	}
}
