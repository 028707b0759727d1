package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/engine"
)

type showOptions struct {
	jsonOutput bool
}

func newShowCmd() *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show <plan-file>",
		Short: "Show a plan's steps and execution order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output plan details as JSON")

	return cmd
}

func runShow(cmd *cobra.Command, planPath string, opts *showOptions) error {
	if err := validatePlanPath(planPath); err != nil {
		return err
	}

	plan, err := config.ParsePlan(planPath)
	if err != nil {
		return err
	}
	if err := config.ValidatePlan(plan); err != nil {
		return err
	}

	graph, err := engine.BuildDAG(plan.Steps)
	if err != nil {
		return err
	}
	execution, err := engine.GeneratePlan(graph)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return renderShowJSON(cmd, plan, execution)
	}
	return renderShowTable(cmd, plan, execution)
}

func renderShowTable(cmd *cobra.Command, plan *config.Plan, execution *engine.ExecutionPlan) error {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Plan:        %s\n", plan.Name)
	if strings.TrimSpace(plan.Description) != "" {
		fmt.Fprintf(out, "Description: %s\n", plan.Description)
	}
	fmt.Fprintf(out, "Endpoint:    %s\n", plan.Connection.Endpoint)
	fmt.Fprintf(out, "Username:    %s\n", plan.Connection.Username)
	fmt.Fprintf(out, "Steps:       %d\n\n", len(plan.Steps))

	fmt.Fprintf(out, "%-30s %-20s %-8s %s\n", "Step ID", "Type", "Enabled", "Depends On")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, step := range plan.Steps {
		deps := strings.Join(step.DependsOn, ", ")
		if deps == "" {
			deps = "-"
		}
		fmt.Fprintf(out, "%-30s %-20s %-8t %s\n", step.ID, step.Type, step.Enabled, deps)
	}

	fmt.Fprintf(out, "\nExecution order:\n%s", execution.String())
	return nil
}

type showJSONStep struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Enabled   bool     `json:"enabled"`
	DependsOn []string `json:"depends_on,omitempty"`
	Hosts     []string `json:"hosts,omitempty"`
}

type showJSONPayload struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Endpoint    string         `json:"endpoint"`
	Steps       []showJSONStep `json:"steps"`
	Levels      [][]string     `json:"levels"`
}

func renderShowJSON(cmd *cobra.Command, plan *config.Plan, execution *engine.ExecutionPlan) error {
	payload := showJSONPayload{
		Name:        plan.Name,
		Description: plan.Description,
		Endpoint:    plan.Connection.Endpoint,
		Steps:       make([]showJSONStep, 0, len(plan.Steps)),
		Levels:      make([][]string, 0, len(execution.Levels)),
	}

	for _, step := range plan.Steps {
		payload.Steps = append(payload.Steps, showJSONStep{
			ID:        step.ID,
			Type:      step.Type,
			Enabled:   step.Enabled,
			DependsOn: step.DependsOn,
			Hosts:     step.Hosts,
		})
	}
	for _, level := range execution.Levels {
		payload.Levels = append(payload.Levels, level.StepIDs)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
