package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perales/rite/internal/config"
	"github.com/perales/rite/internal/harness"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Update bool   // rewrite golden files instead of comparing
	Filter string // glob over scenario base names
}

// ScenarioResult is the per-scenario verdict reported by simulate.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// SimulationResult aggregates one simulate invocation.
type SimulationResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <path>",
		Short: "Replay ceremony scenarios",
		Long: `Replay scripted ceremony scenarios against an in-memory assembly.

Each scenario seeds an epoch, scripts phase switches, countdown ticks and
answer input, then asserts on the resulting event trace and final state.
Accepts a single scenario file or a directory, which is walked for .yaml
and .yml files. Supports golden trace comparison. Engine logging goes to
stderr at RITE_LOG_LEVEL; --verbose forces debug.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  rite simulate ./scenarios
  rite simulate ./scenarios --filter "epoch-*"
  rite simulate ./scenarios/rollover.yaml --update
  rite simulate ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	// Scenario runs drive the live store and trigger, which log through the
	// default slog logger. Route that to stderr at the configured level.
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	logLevel, _ := cfg.Level()
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", path))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("access %s", path), err)
	}

	scenarioFiles := []string{path}
	if info.IsDir() {
		scenarioFiles, err = findScenarioFiles(path, opts.Filter)
		if err != nil {
			return fmt.Errorf("failed to find scenarios: %w", err)
		}
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputSimulationJSON(cmd, SimulationResult{
				Scenarios: []ScenarioResult{},
				Total:     0,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := SimulationResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenarioFile(scenarioFile, opts, cmd)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputSimulationJSON(cmd, result)
	}
	return outputSimulationText(cmd, result)
}

// findScenarioFiles walks dir for .yaml/.yml scenario files, optionally
// narrowed by a glob over the base name without extension.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("bad filter pattern %q: %w", filter, err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenarioFile loads and replays one scenario, printing its verdict line
// in text mode.
func runScenarioFile(scenarioFile string, opts *SimulateOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	jsonMode := opts.Format == "json"

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return failScenario(w, jsonMode, filepath.Base(scenarioFile),
			fmt.Sprintf("Load error: %v", err),
			fmt.Sprintf("load scenario: %v", err))
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return failScenario(w, jsonMode, scenario.Name,
			fmt.Sprintf("Execution error: %v", err),
			fmt.Sprintf("run scenario: %v", err))
	}

	if opts.Update {
		if err := updateGoldenFile(scenario, result, scenarioFile); err != nil {
			return failScenario(w, jsonMode, scenario.Name,
				fmt.Sprintf("Golden update error: %v", err),
				fmt.Sprintf("update golden file: %v", err))
		}
		if !jsonMode {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", scenario.Name)
		}
		return ScenarioResult{Name: scenario.Name, Pass: true}
	}

	// A recorded golden trace, when present, is part of the verdict.
	goldenPath := goldenFilePath(scenarioFile)
	if _, err := os.Stat(goldenPath); err == nil {
		match, err := compareWithGolden(scenario, result, goldenPath)
		if err != nil {
			return failScenario(w, jsonMode, scenario.Name,
				fmt.Sprintf("Golden comparison error: %v", err),
				fmt.Sprintf("compare with golden: %v", err))
		}
		if !match {
			return failScenario(w, jsonMode, scenario.Name,
				"Golden file mismatch (run with --update to regenerate)",
				"trace does not match golden file")
		}
	}

	if result.Pass {
		if !jsonMode {
			fmt.Fprintf(w, "✓ %s\n", scenario.Name)
		}
		return ScenarioResult{Name: scenario.Name, Pass: true}
	}

	if !jsonMode {
		fmt.Fprintf(w, "✗ %s\n", scenario.Name)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return ScenarioResult{Name: scenario.Name, Pass: false, Errors: result.Errors}
}

// failScenario prints the text-mode failure block and shapes the result.
func failScenario(w io.Writer, jsonMode bool, name, line string, errs ...string) ScenarioResult {
	if !jsonMode {
		fmt.Fprintf(w, "✗ %s\n", name)
		fmt.Fprintf(w, "  %s\n", line)
	}
	return ScenarioResult{Name: name, Pass: false, Errors: errs}
}

// goldenFilePath maps dir/foo.yaml to dir/golden/foo.golden.
func goldenFilePath(scenarioFile string) string {
	name := strings.TrimSuffix(filepath.Base(scenarioFile), filepath.Ext(scenarioFile))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// marshalTrace serializes a result's trace in the golden file form. The same
// snapshot shape and indentation the test suite's golden assertions use, so
// the two golden surfaces stay byte-compatible.
func marshalTrace(scenario *harness.Scenario, result *harness.Result) ([]byte, error) {
	snapshot := harness.TraceSnapshot{
		Scenario: scenario.Name,
		Trace:    result.Trace,
	}
	return json.MarshalIndent(snapshot, "", "  ")
}

// updateGoldenFile records the current trace as the expectation.
func updateGoldenFile(scenario *harness.Scenario, result *harness.Result, scenarioFile string) error {
	goldenPath := goldenFilePath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("create golden dir: %w", err)
	}
	data, err := marshalTrace(scenario, result)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", goldenPath, err)
	}
	return nil
}

// compareWithGolden reports whether the trace still matches the recorded
// expectation, byte for byte.
func compareWithGolden(scenario *harness.Scenario, result *harness.Result, goldenPath string) (bool, error) {
	want, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", goldenPath, err)
	}
	got, err := marshalTrace(scenario, result)
	if err != nil {
		return false, fmt.Errorf("marshal trace: %w", err)
	}
	return bytes.Equal(want, got), nil
}

// outputSimulationJSON emits the whole run as one response envelope.
func outputSimulationJSON(cmd *cobra.Command, result SimulationResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}
	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_SCENARIO_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputSimulationText prints the per-run summary under the verdict lines.
func outputSimulationText(cmd *cobra.Command, result SimulationResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Simulation Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
