package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feichai0017/paper-extractor/config"
	"github.com/feichai0017/paper-extractor/pkg/logger"
)

var (
	configPath string
	logLevel   string
	logFile    string

	pipelineCfg *config.PipelineConfig
	log         logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "extractor",
	Short: "Extract research-paper metadata from PDFs",
	Long: "Reads local PDFs page by page, asks a language model for an 8-field " +
		"record per informative page and writes one aggregated TSV line per paper.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		outputs := []string{"stderr"}
		if logFile != "" {
			outputs = append(outputs, logFile)
		}
		l, err := logger.NewLogger(
			logger.WithLevel(logLevel),
			logger.WithEncoding("console"),
			logger.WithOutputPaths(outputs),
		)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		log = l

		c, err := config.LoadPipelineConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		pipelineCfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "pipeline YAML config (default: $PIPELINE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file (rotated)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
