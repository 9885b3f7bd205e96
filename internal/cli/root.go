// internal/cli/root.go
//
// Command surface: generate, dry-run, config show, tui. All batch commands
// share one flag set and one resolution path; the only difference between
// generate and dry-run is the DryRun override.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flowscribe/internal/config"
)

// Process exit codes. They reflect whether the run executed, not whether
// every item succeeded.
const (
	ExitSuccess = 0
	ExitUsage   = 1
	ExitConfig  = 2
	ExitLLM     = 3
	ExitRuntime = 4
)

// codedError carries the process exit code alongside the cause.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &codedError{code: code, err: err}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		var coded *codedError
		if errors.As(err, &coded) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", coded.err)
			return coded.code
		}
		// Anything cobra surfaces itself (unknown command, bad flag
		// value, wrong arg count) is a usage error.
		return ExitUsage
	}
	return ExitSuccess
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "flowscribe",
		Short:         "Generate Markdown documentation for workflow definitions with an LLM backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	generate := &cobra.Command{
		Use:   "generate <input-path>",
		Short: "Generate documentation for every workflow under the input path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, false)
		},
	}
	addBatchFlags(generate)

	dryRun := &cobra.Command{
		Use:   "dry-run <input-path>",
		Short: "Discover and report workflows without calling the backend or writing files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, true)
		},
	}
	addBatchFlags(dryRun)

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the fully resolved configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	addBatchFlags(show)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(show)

	tui := &cobra.Command{
		Use:   "tui [input-path]",
		Short: "Run the interactive front-end",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTUI,
	}
	addBatchFlags(tui)

	root.AddCommand(generate, dryRun, configCmd, tui)
	return root
}

func addBatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output-dir", "o", "", "output directory root")
	f.String("config", "", "path to a flowscribe config file")
	f.StringP("model", "m", "", "LLM model name")
	f.String("host", "", "LLM host URL")
	f.String("backend", "", "LLM backend (ollama or openai)")
	f.String("api-key", "", "API key for OpenAI-compatible backends")
	f.Int("num-predict", 0, "maximum tokens to generate")
	f.Float64("temperature", 0, "sampling temperature")
	f.Float64("top-p", 0, "nucleus sampling cutoff")
	f.Int("num-ctx", 0, "context window size")
	f.Float64("repeat-penalty", 0, "repetition penalty")
	f.String("system-prompt", "", "system prompt template text")
	f.String("user-prompt", "", "user prompt template text")
	f.String("prompt-profile", "", "prompt profile name")
	f.Int("workers", 0, "concurrent backend calls (1 = sequential)")
	f.Int("protocol-error-limit", 0, "abort after this many consecutive protocol errors (0 = never)")
	f.BoolP("verbose", "v", false, "enable debug logging")
}

// collectOverrides turns explicitly set flags into the top override layer.
// Unchanged flags stay nil so they never mask a config-file or env value.
func collectOverrides(cmd *cobra.Command, args []string) config.Overrides {
	var ovr config.Overrides
	if len(args) > 0 {
		ovr.InputPath = &args[0]
	}

	f := cmd.Flags()
	if f.Changed("output-dir") {
		v, _ := f.GetString("output-dir")
		ovr.OutputRoot = &v
	}
	if f.Changed("model") {
		v, _ := f.GetString("model")
		ovr.Model = &v
	}
	if f.Changed("host") {
		v, _ := f.GetString("host")
		ovr.Host = &v
	}
	if f.Changed("backend") {
		v, _ := f.GetString("backend")
		ovr.Backend = &v
	}
	if f.Changed("api-key") {
		v, _ := f.GetString("api-key")
		ovr.APIKey = &v
	}
	if f.Changed("num-predict") {
		v, _ := f.GetInt("num-predict")
		ovr.NumPredict = &v
	}
	if f.Changed("temperature") {
		v, _ := f.GetFloat64("temperature")
		ovr.Temperature = &v
	}
	if f.Changed("top-p") {
		v, _ := f.GetFloat64("top-p")
		ovr.TopP = &v
	}
	if f.Changed("num-ctx") {
		v, _ := f.GetInt("num-ctx")
		ovr.NumCtx = &v
	}
	if f.Changed("repeat-penalty") {
		v, _ := f.GetFloat64("repeat-penalty")
		ovr.RepeatPenalty = &v
	}
	if f.Changed("system-prompt") {
		v, _ := f.GetString("system-prompt")
		ovr.SystemTemplate = &v
	}
	if f.Changed("user-prompt") {
		v, _ := f.GetString("user-prompt")
		ovr.UserTemplate = &v
	}
	if f.Changed("prompt-profile") {
		v, _ := f.GetString("prompt-profile")
		ovr.Profile = &v
	}
	if f.Changed("workers") {
		v, _ := f.GetInt("workers")
		ovr.Workers = &v
	}
	if f.Changed("protocol-error-limit") {
		v, _ := f.GetInt("protocol-error-limit")
		ovr.ProtocolLimit = &v
	}
	if f.Changed("verbose") {
		v, _ := f.GetBool("verbose")
		ovr.Verbose = &v
	}
	return ovr
}

func resolveConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	ovr := collectOverrides(cmd, args)
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Resolve(configPath, os.LookupEnv, ovr)
	if err != nil {
		return config.Config{}, exitWith(ExitConfig, err)
	}
	return cfg, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	rendered, err := cfg.Render(cfg.Run.Verbose)
	if err != nil {
		return exitWith(ExitConfig, err)
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
