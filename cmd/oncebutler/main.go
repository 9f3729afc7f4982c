package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"oncebutler/internal/config"
)

var (
	configPath string
	verbose    bool
	logger     = zap.NewNop()
)

func main() {
	root := &cobra.Command{
		Use:          "oncebutler",
		Short:        "Stat-driven Discord role engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(os.Getenv("ONCEBUTLER_LOG_LEVEL"), verbose)
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", "oncebutler.yaml", "Path to the project config")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(initCmd())
	root.AddCommand(versionCmd())
	root.AddCommand(runCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(evaluateCmd())
	root.AddCommand(reapCmd())
	root.AddCommand(previewCmd())
	root.AddCommand(rulesCmd())
	root.AddCommand(ledgerCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(serveCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the production logger. level comes from the environment
// since the config file is not loaded yet; verbose wins over it.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// applyConfigLevel raises or lowers the logger to the configured level unless
// --verbose or the environment already chose one.
func applyConfigLevel(cfg *config.ProjectConfig) {
	if verbose || os.Getenv("ONCEBUTLER_LOG_LEVEL") != "" || cfg.LogLevel == "" {
		return
	}
	l, err := newLogger(cfg.LogLevel, false)
	if err != nil {
		logger.Warn("ignoring log level", zap.String("level", cfg.LogLevel), zap.Error(err))
		return
	}
	logger = l
}

func loadConfig() (*config.ProjectConfig, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}
	applyConfigLevel(cfg)
	return cfg, nil
}
