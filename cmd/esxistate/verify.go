package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/engine"
	"github.com/esxistate/esxistate/internal/logger"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins"
	esxierrors "github.com/esxistate/esxistate/pkg/errors"
)

type verifyOptions struct {
	PlanPath string
	Verbose  bool
	JSON     bool
	Timeout  time.Duration
}

var verifyCmdRunner = runVerify

func newVerifyCmd(root *rootFlags) *cobra.Command {
	opts := verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify <plan-file>",
		Short: "Verify host state matches a plan without making changes",
		Long: `Verify performs read-only checks to determine whether the hosts match
the declared plan. Returns exit code 0 when every step is satisfied and
exit code 1 when changes are needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.PlanPath = args[0]
			opts.Verbose = root.verbose

			return verifyCmdRunner(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results in JSON format")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Default timeout per step; accepts Go duration strings (e.g. 60s)")

	return cmd
}

func runVerify(opts verifyOptions) error {
	plan, err := config.ParsePlan(opts.PlanPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing plan: %v\n", err)
		os.Exit(2)
	}
	if err := config.ValidatePlan(plan); err != nil {
		fmt.Fprintf(os.Stderr, "Plan error: %v\n", err)
		os.Exit(2)
	}

	level := "info"
	if opts.Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: !opts.JSON})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(3)
	}

	ctx := context.Background()
	perStepTimeout := opts.Timeout
	if perStepTimeout > 0 {
		var cancel context.CancelFunc
		totalTimeout := perStepTimeout * time.Duration(len(plan.Steps))
		if len(plan.Steps) == 0 {
			totalTimeout = perStepTimeout
		}
		ctx, cancel = context.WithTimeout(ctx, totalTimeout)
		defer cancel()
	}

	client, err := connect(ctx, plan.Connection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(3)
	}

	registry := plugin.NewRegistry()
	if err := plugins.RegisterDefaults(registry, client); err != nil {
		fmt.Fprintf(os.Stderr, "Plugin error: %v\n", err)
		os.Exit(3)
	}

	log.WithFields(map[string]any{
		"plan":  opts.PlanPath,
		"steps": len(plan.Steps),
	}).Info("Starting verification")

	execCtx := &engine.ExecutionContext{
		Plan:     plan,
		Registry: registry,
		Logger:   log,
		Context:  ctx,
	}

	summary, err := engine.VerifySteps(execCtx, plan.Steps, perStepTimeout)
	if err != nil {
		var validationErr *esxierrors.ValidationError
		if errors.As(err, &validationErr) {
			fmt.Fprintf(os.Stderr, "Plan error: %v\n", err)
			os.Exit(2)
		}

		fmt.Fprintf(os.Stderr, "Verification error: %v\n", err)
		os.Exit(3)
	}

	log.WithFields(map[string]any{
		"total":     summary.TotalSteps,
		"satisfied": summary.Satisfied,
		"missing":   summary.Missing,
		"drifted":   summary.Drifted,
		"blocked":   summary.Blocked,
		"unknown":   summary.Unknown,
		"duration":  summary.Duration.String(),
	}).Info("Verification complete")

	if opts.JSON {
		printJSONOutput(summary, opts.PlanPath)
	} else if opts.Verbose {
		printVerboseOutput(summary)
	} else {
		printTableOutput(summary)
	}

	os.Exit(summary.ExitCode())
	return nil
}

func printTableOutput(summary *model.VerificationSummary) {
	fmt.Println("\nVerification Results:")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%-40s %-12s %-8s %s\n", "Step ID", "Status", "Duration", "Message")
	fmt.Println(strings.Repeat("-", 80))

	for _, result := range summary.Results {
		symbol := getStatusSymbol(result.Status)
		duration := fmt.Sprintf("%.2fs", result.Duration.Seconds())
		message := truncateString(result.Message, 40)

		fmt.Printf("%-40s %-12s %-8s %s\n",
			truncateString(result.StepID, 40),
			fmt.Sprintf("%s %s", symbol, result.Status),
			duration,
			message,
		)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total:     %d\n", summary.TotalSteps)
	fmt.Printf("  Satisfied: %d\n", summary.Satisfied)
	fmt.Printf("  Missing:   %d\n", summary.Missing)
	fmt.Printf("  Drifted:   %d\n", summary.Drifted)
	fmt.Printf("  Blocked:   %d\n", summary.Blocked)
	fmt.Printf("  Unknown:   %d\n", summary.Unknown)
	fmt.Printf("  Duration:  %s\n", summary.Duration.String())

	if summary.AllSatisfied() {
		fmt.Println("\nAll steps satisfied - no changes needed")
	} else {
		fmt.Println("\nChanges needed - run 'esxistate apply' to reconcile")
	}
}

func printVerboseOutput(summary *model.VerificationSummary) {
	printTableOutput(summary)

	hasDetails := false
	for _, result := range summary.Results {
		if result.Status == model.StatusDrifted && result.Details != "" {
			if !hasDetails {
				fmt.Println("\nDetailed Diff Output:")
				fmt.Println(strings.Repeat("=", 80))
				hasDetails = true
			}
			fmt.Printf("\n--- Step: %s ---\n", result.StepID)
			fmt.Println(result.Details)
		}
		if result.Status == model.StatusBlocked && result.Error != nil {
			if !hasDetails {
				fmt.Println("\nError Details:")
				fmt.Println(strings.Repeat("=", 80))
				hasDetails = true
			}
			fmt.Printf("\n--- Step: %s ---\n", result.StepID)
			fmt.Printf("Error: %v\n", result.Error)
		}
	}
}

func printJSONOutput(summary *model.VerificationSummary, planPath string) {
	type jsonResult struct {
		StepID    string  `json:"step_id"`
		Status    string  `json:"status"`
		Message   string  `json:"message"`
		Details   string  `json:"details,omitempty"`
		Error     string  `json:"error,omitempty"`
		Duration  float64 `json:"duration_seconds"`
		Timestamp string  `json:"timestamp"`
	}

	type jsonSummary struct {
		TotalSteps int     `json:"total_steps"`
		Satisfied  int     `json:"satisfied"`
		Missing    int     `json:"missing"`
		Drifted    int     `json:"drifted"`
		Blocked    int     `json:"blocked"`
		Unknown    int     `json:"unknown"`
		Duration   float64 `json:"duration_seconds"`
	}

	type jsonOutput struct {
		PlanFile string       `json:"plan_file"`
		Summary  jsonSummary  `json:"summary"`
		Results  []jsonResult `json:"results"`
	}

	out := jsonOutput{
		PlanFile: planPath,
		Summary: jsonSummary{
			TotalSteps: summary.TotalSteps,
			Satisfied:  summary.Satisfied,
			Missing:    summary.Missing,
			Drifted:    summary.Drifted,
			Blocked:    summary.Blocked,
			Unknown:    summary.Unknown,
			Duration:   summary.Duration.Seconds(),
		},
		Results: make([]jsonResult, len(summary.Results)),
	}

	for i, result := range summary.Results {
		jr := jsonResult{
			StepID:    result.StepID,
			Status:    string(result.Status),
			Message:   result.Message,
			Details:   result.Details,
			Duration:  result.Duration.Seconds(),
			Timestamp: result.Timestamp.Format(time.RFC3339),
		}
		if result.Error != nil {
			jr.Error = result.Error.Error()
		}
		out.Results[i] = jr
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(out) //nolint:errcheck
}

func getStatusSymbol(status model.VerificationStatus) string {
	switch status {
	case model.StatusSatisfied:
		return "✔"
	case model.StatusMissing:
		return "✖"
	case model.StatusDrifted:
		return "⚠"
	case model.StatusBlocked:
		return "🚫"
	default:
		return "?"
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
