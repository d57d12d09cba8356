// cmd/ask runs the research pipeline once from the command line and prints
// the answer as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"research-workers/internal/app"
	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
	processquery "research-workers/internal/workers/research/process-query"

	"github.com/spf13/cobra"
)

var (
	configPath string
	timeout    time.Duration
	compact    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer a question from live web research",
	Long: `Decomposes the question into sub-queries, searches the web, crawls the
top results and synthesizes a structured answer.

The answer is printed to stdout as {"answer": {...}}. Failures print
{"detail": ..., "code": ...} to stderr and exit non-zero.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAsk,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config YAML (default: configs/config.yaml)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall deadline (default: pipeline.timeout)")
	rootCmd.Flags().BoolVar(&compact, "compact", false, "Print compact JSON")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	rootCmd.AddCommand(registryCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := "error"
	if verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, "console", "stderr")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deadline := timeout
	if deadline <= 0 {
		deadline = config.GetDuration(cfg.Pipeline.Timeout)
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	application, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	answer, err := application.Pipeline.ProcessQuery(ctx, query)
	if err != nil {
		stdErr := processquery.ToStandardError(err)
		_ = writeJSON(cmd.ErrOrStderr(), map[string]string{
			"detail": stdErr.Message,
			"code":   string(stdErr.Code),
		})
		return fmt.Errorf("%s: %w", stdErr.Code, err)
	}

	return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"answer": answer})
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
