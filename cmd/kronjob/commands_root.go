package main

import (
	"github.com/sourceplane/kronjob/internal/config"
	"github.com/sourceplane/kronjob/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logPretty bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kronjob",
	Short: "Abstract jobs → Kubernetes Jobs and CronJobs",
	Long: "kronjob expands a compact, hierarchical abstract job document into fully resolved " +
		"Kubernetes Job and CronJob manifests. Settings are read from KRONJOB_* environment " +
		"variables; explicit flags take precedence.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "log-pretty", false, "Human readable log output on stderr")

	registerBuildCommand(rootCmd)
	registerValidateCommand(rootCmd)
	registerDebugCommand(rootCmd)
	registerVersionCommand(rootCmd)
}

// loadConfig reads the environment, applies explicitly set flags on top and
// initializes the global logger.
func loadConfig(cmd *cobra.Command) error {
	parsed, err := config.ParseConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		parsed.LogLevel = logLevel
	}
	if flags.Changed("log-pretty") {
		parsed.LogPrettyPrint = logPretty
	}
	parsed = applyCompileFlags(cmd, parsed)

	level, err := parsed.Level()
	if err != nil {
		return err
	}
	logger.InitializeLogger(level, parsed.LogPrettyPrint)

	cfg = parsed
	return nil
}
