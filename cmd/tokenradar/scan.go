package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"token-radar/internal/domain"
)

var scanPassedOnly bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery cycle and print the ranked tokens as JSON",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanPassedOnly, "passed-only", false, "Print only tokens that passed the safety gate")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orch.RunCycle(ctx)
	if err != nil {
		return err
	}
	logger.Info("scan complete",
		zap.Int("discovered", res.Discovered),
		zap.Int("analyzed", res.Analyzed),
		zap.Int("passed", res.Passed),
		zap.Duration("elapsed", res.Duration))

	tokens := a.orch.ListAll()
	if scanPassedOnly {
		passed := make([]domain.AnalyzedToken, 0, len(tokens))
		for _, t := range tokens {
			if t.SafetyStatus == domain.SafetyPass {
				passed = append(passed, t)
			}
		}
		tokens = passed
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(tokens)
}
