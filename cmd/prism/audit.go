package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/reliability"
)

// #region audit
func newAuditCommand(a *app) *cobra.Command {
	var jsonOut, list bool
	var limit int
	cmd := &cobra.Command{
		Use:   "audit [COHORT]",
		Short: "Compute scale reliability over stored responses (COHORT is a session id prefix)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				reps, err := reliability.ListReports(a.store.DB(), engine.Version, limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(out, reps)
				}
				for _, r := range reps {
					printReport(out, r)
				}
				return nil
			}
			cohort := ""
			if len(args) == 1 {
				cohort = args[0]
			}
			rep, err := a.auditor().Run(cmd.Context(), cohort)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(out, rep)
			}
			printReport(out, rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&list, "list", false, "list stored reports for the current engine version")
	cmd.Flags().IntVar(&limit, "limit", 10, "reports to list")
	return cmd
}

func printReport(w io.Writer, r reliability.Report) {
	fmt.Fprintf(w, "cohort=%s respondents=%d skipped=%d sufficient=%v results=%s catalog=%s at=%s\n",
		r.Cohort, r.Respondents, r.Skipped, r.Sufficient, r.ResultsVersion, r.CatalogVersion,
		r.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(w, "%-12s  %5s  %7s  %7s  %7s  %6s\n", "Scale", "Items", "Alpha", "Split", "SEM", "Mean")
	for _, s := range r.Scales {
		fmt.Fprintf(w, "%-12s  %5d  %7.3f  %7.3f  %7.3f  %6.2f\n", s.Scale, s.Items, s.Alpha, s.SplitHalf, s.SEM, s.Mean)
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// #endregion audit
