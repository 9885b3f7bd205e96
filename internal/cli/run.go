// internal/cli/run.go
//
// Batch execution for the generate and dry-run commands, plus the tui
// launcher. Both commands drive the same engine; a non-zero item failure
// count does not change the exit code as long as the run executed.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"flowscribe/internal/config"
	"flowscribe/internal/discovery"
	"flowscribe/internal/engine"
	"flowscribe/internal/llm"
	"flowscribe/internal/logging"
	"flowscribe/internal/tui"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	summaryStyle = lipgloss.NewStyle().Bold(true)
)

func runBatch(cmd *cobra.Command, args []string, dryRun bool) error {
	ovr := collectOverrides(cmd, args)
	if dryRun {
		t := true
		ovr.DryRun = &t
	}
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Resolve(configPath, os.LookupEnv, ovr)
	if err != nil {
		return exitWith(ExitConfig, err)
	}

	// A dry run must not touch the output tree, so it logs to console only.
	log := logging.New(cfg.Run.Verbose)
	if !cfg.Run.DryRun {
		var closer interface{ Close() error }
		log, closer = logging.NewWithFile(cfg.Run.Verbose, cfg.OutputRoot)
		if closer != nil {
			defer closer.Close()
		}
	}

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return exitWith(ExitConfig, err)
	}
	eng, err := engine.New(cfg, client, log)
	if err != nil {
		return exitWith(ExitConfig, err)
	}

	items, err := discovery.Discover(cfg.InputPath, cfg.OutputRoot)
	if err != nil {
		return exitWith(ExitRuntime, err)
	}
	if len(items) == 0 {
		if cfg.Run.DryRun {
			fmt.Fprintln(cmd.OutOrStdout(), "No workflow documents found.")
			return nil
		}
		return exitWith(ExitRuntime, fmt.Errorf("no workflow documents found under %s", cfg.InputPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	sink := engine.SinkFunc(func(ev engine.Event) {
		fmt.Fprintln(out, renderEvent(ev))
	})

	result := eng.Run(ctx, items, sink)
	fmt.Fprintln(out, renderSummary(result))

	if allCommunicationFailures(result) {
		return exitWith(ExitLLM, fmt.Errorf("backend unreachable: all %d items failed with communication errors", result.Failed))
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := tui.Run(cfg); err != nil {
		return exitWith(ExitRuntime, err)
	}
	return nil
}

func renderEvent(ev engine.Event) string {
	prefix := fmt.Sprintf("[%d/%d]", ev.Index+1, ev.Total)
	out := ev.Outcome
	switch out.Status {
	case engine.StatusSucceeded:
		return fmt.Sprintf("%s %s %s (%s)", prefix, okStyle.Render("ok"), out.Item.OutputPath, out.Duration.Round(time.Millisecond))
	case engine.StatusSkippedDryRun:
		return fmt.Sprintf("%s %s %s -> %s", prefix, skipStyle.Render("dry-run"), out.Item.SourcePath, out.Item.OutputPath)
	default:
		return fmt.Sprintf("%s %s %s: %s", prefix, failStyle.Render("failed"), out.Item.SourcePath, out.Err)
	}
}

func renderSummary(res engine.BatchResult) string {
	line := fmt.Sprintf("Total %d, succeeded %d, failed %d", res.Total, res.Succeeded, res.Failed)
	if res.Cancelled {
		line += " (cancelled)"
	}
	return summaryStyle.Render(line)
}

// allCommunicationFailures reports a run where every single item failed at
// the transport layer: the backend was never reachable, which maps to the
// dedicated LLM exit code rather than a partial-failure success.
func allCommunicationFailures(res engine.BatchResult) bool {
	if res.Cancelled || res.Total == 0 || res.Failed != res.Total {
		return false
	}
	for _, out := range res.Outcomes {
		if out.Kind != engine.KindCommunication {
			return false
		}
	}
	return true
}
