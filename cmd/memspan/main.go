// Package main provides the CLI entrypoint for memspan.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/memspan/internal/config"
	"github.com/verte-zerg/memspan/internal/engine"
	"github.com/verte-zerg/memspan/internal/model"
	"github.com/verte-zerg/memspan/internal/sequence"
	"github.com/verte-zerg/memspan/internal/stats"
	"github.com/verte-zerg/memspan/internal/store"
	"github.com/verte-zerg/memspan/internal/tui"
)

const (
	defaultExposureMs     = 3000
	defaultAdvanceMs      = 1200
	defaultFinalAdvanceMs = 900
	defaultErrorThreshold = 3
	defaultMinLength      = 5
	defaultMaxLength      = 12
	defaultGroupSize      = 3
	defaultDelimiter      = "-"
)

const historyLimit = 5

var (
	trialExposureMs     int
	trialAdvanceMs      int
	trialFinalAdvanceMs int
	trialErrorThreshold int
	trialMinLength      int
	trialMaxLength      int
	trialGroupSize      int
	trialDelimiter      string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "memspan",
		Short:         "TUI digit-span recall trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTrialCmd,
	}

	rootCmd.Flags().IntVar(&trialExposureMs, "exposure-ms", defaultExposureMs, "sequence exposure window in milliseconds")
	rootCmd.Flags().IntVar(&trialAdvanceMs, "advance-ms", defaultAdvanceMs, "feedback pause before the next round in milliseconds")
	rootCmd.Flags().IntVar(&trialFinalAdvanceMs, "final-advance-ms", defaultFinalAdvanceMs, "feedback pause before the session summary in milliseconds")
	rootCmd.Flags().IntVar(&trialErrorThreshold, "error-threshold", defaultErrorThreshold, "cumulative digit misses that end a phase")
	rootCmd.Flags().IntVar(&trialMinLength, "min-length", defaultMinLength, "sequence length at the start of each phase")
	rootCmd.Flags().IntVar(&trialMaxLength, "max-length", defaultMaxLength, "sequence length cap")
	rootCmd.Flags().IntVar(&trialGroupSize, "group-size", defaultGroupSize, "digits per group in the chunked phase")
	rootCmd.Flags().StringVar(&trialDelimiter, "delimiter", defaultDelimiter, "group separator in the chunked phase")

	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runTrialCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "exposure-ms", &trialExposureMs, fileCfg.Trial.ExposureMs)
	applyIntConfig(cmd, "advance-ms", &trialAdvanceMs, fileCfg.Trial.AdvanceMs)
	applyIntConfig(cmd, "final-advance-ms", &trialFinalAdvanceMs, fileCfg.Trial.FinalAdvanceMs)
	applyIntConfig(cmd, "error-threshold", &trialErrorThreshold, fileCfg.Trial.ErrorThreshold)
	applyIntConfig(cmd, "min-length", &trialMinLength, fileCfg.Trial.MinLength)
	applyIntConfig(cmd, "max-length", &trialMaxLength, fileCfg.Trial.MaxLength)
	applyIntConfig(cmd, "group-size", &trialGroupSize, fileCfg.Trial.GroupSize)
	applyStringConfig(cmd, "delimiter", &trialDelimiter, fileCfg.Trial.Delimiter)

	cfg := model.TrialConfig{
		ExposureMs:     trialExposureMs,
		AdvanceMs:      trialAdvanceMs,
		FinalAdvanceMs: trialFinalAdvanceMs,
		ErrorThreshold: trialErrorThreshold,
		MinLength:      trialMinLength,
		MaxLength:      trialMaxLength,
		GroupSize:      trialGroupSize,
		Delimiter:      trialDelimiter,
	}

	if err := validateConfig(cfg); err != nil {
		return err
	}

	st, err := store.Open()
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close history store: %v\n", cerr)
		}
	}()

	eng := engine.New(cfg, sequence.New(), engine.NewScheduler())
	model := tui.NewModel(eng, st)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		entries, err := st.RecentSummaries(context.Background(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if err := stats.RenderHistory(os.Stdout, entries); err != nil {
			return fmt.Errorf("failed to render history: %w", err)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# memspan configuration
# Uncomment a value to enable it. CLI flags override config values.

[trial]
# exposure-ms = %d       # Sequence exposure window in milliseconds
# advance-ms = %d        # Feedback pause before the next round
# final-advance-ms = %d   # Feedback pause before the session summary
# error-threshold = %d      # Cumulative digit misses that end a phase
# min-length = %d           # Sequence length at the start of each phase
# max-length = %d          # Sequence length cap
# group-size = %d           # Digits per group in the chunked phase
# delimiter = %q          # Group separator in the chunked phase
`,
		defaultExposureMs,
		defaultAdvanceMs,
		defaultFinalAdvanceMs,
		defaultErrorThreshold,
		defaultMinLength,
		defaultMaxLength,
		defaultGroupSize,
		defaultDelimiter,
	)
}

func validateConfig(cfg model.TrialConfig) error {
	if cfg.ExposureMs <= 0 {
		return fmt.Errorf("--exposure-ms must be > 0")
	}
	if cfg.AdvanceMs <= 0 {
		return fmt.Errorf("--advance-ms must be > 0")
	}
	if cfg.FinalAdvanceMs <= 0 {
		return fmt.Errorf("--final-advance-ms must be > 0")
	}
	if cfg.ErrorThreshold <= 0 {
		return fmt.Errorf("--error-threshold must be > 0")
	}
	if cfg.MinLength <= 0 {
		return fmt.Errorf("--min-length must be > 0")
	}
	if cfg.MaxLength < cfg.MinLength {
		return fmt.Errorf("--max-length must be >= --min-length")
	}
	if cfg.GroupSize <= 0 {
		return fmt.Errorf("--group-size must be > 0")
	}
	if cfg.Delimiter == "" {
		return fmt.Errorf("--delimiter must not be empty")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
