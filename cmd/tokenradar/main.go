// Package main is the token-radar command: a periodic discovery pipeline that
// enriches new token listings, gates them on safety rules, ranks them by
// momentum and serves the ranked list over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"token-radar/internal/config"
	"token-radar/internal/logging"
)

var (
	configPath string
	v          = config.NewViper()
)

var rootCmd = &cobra.Command{
	Use:   "tokenradar",
	Short: "Discover, vet and rank newly listed tokens",
	Long: `tokenradar polls new-listing feeds, looks up on-chain risk attributes for
every unseen token, applies the safety gate and momentum score, and keeps the
most recent results in a bounded cache served over HTTP.

Examples:
  tokenradar serve --config configs/tokenradar.yaml
  tokenradar scan --log-level debug`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "json", "Log format (json, console)")

	bindFlag("logging.level", pf.Lookup("log-level"))
	bindFlag("logging.format", pf.Lookup("log-format"))
}

func bindFlag(key string, f *pflag.Flag) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", f.Name, err))
	}
}

// loadConfig reads configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
