package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/prism-engine/internal/profile"
)

// #region score
func newScoreCommand(a *app) *cobra.Command {
	var dryRun, jsonOut bool
	cmd := &cobra.Command{
		Use:   "score SESSION_ID...",
		Short: "Score stored sessions and persist their profiles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := a.engine("score")
			out := cmd.OutOrStdout()
			failed := 0
			for _, id := range args {
				if dryRun {
					p, _, err := eng.Preview(cmd.Context(), id)
					if err != nil {
						fmt.Fprintf(out, "%s  refused  %v\n", id, err)
						failed++
						continue
					}
					if err := printProfile(out, p, "preview", jsonOut); err != nil {
						return err
					}
					continue
				}
				res, err := eng.Score(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(out, "%s  refused  %v\n", id, err)
					failed++
					continue
				}
				if err := printProfile(out, res.Profile, string(res.Decision), jsonOut); err != nil {
					return err
				}
				for _, w := range res.Warnings {
					fmt.Fprintf(out, "  warning: %v\n", w)
				}
			}
			if failed > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%d of %d session(s) not scored", failed, len(args))}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute without persisting")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output profiles as JSON")
	return cmd
}

func printProfile(w io.Writer, p profile.Profile, decision string, jsonOut bool) error {
	if jsonOut {
		return writeJSON(w, p)
	}
	fmt.Fprintf(w, "%s  %-9s  %s %s  %-12s  conf=%.2f %-8s  validity=%s  gap=%.2f\n",
		p.SessionID, decision, p.TypeCode, p.Overlay, p.FitBand,
		p.Confidence.Calibrated, p.Confidence.Band, p.Validity.Status, p.TopGap)
	return nil
}

// #endregion score
