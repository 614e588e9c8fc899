package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/prism-engine/internal/backfill"
	"github.com/danielpatrickdp/prism-engine/internal/engine"
)

// #region backfill
func newBackfillCommand(a *app) *cobra.Command {
	var (
		dryRun, staleOnly bool
		workers           int
		rps               float64
	)
	cmd := &cobra.Command{
		Use:   "backfill [SESSION_ID...]",
		Short: "Re-score stored sessions in bulk (all sessions when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.BackfillConfig()
			cfg.DryRun = dryRun
			cfg.StaleOnly = staleOnly
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("rate") {
				cfg.RatePerSecond = rps
			}
			r := backfill.New(a.engine("backfill"), a.store, engine.Version, cfg, a.logger)
			sum, err := r.Run(cmd.Context(), args...)
			data, merr := json.MarshalIndent(sum, "", "  ")
			if merr != nil {
				return fmt.Errorf("marshal summary: %w", merr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%d session(s) failed", sum.Failed)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&staleOnly, "stale-only", false, "only re-score profiles from older engine versions")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent workers (overrides config)")
	cmd.Flags().Float64Var(&rps, "rate", 0, "max sessions per second, 0 for unlimited (overrides config)")
	return cmd
}

// #endregion backfill
