package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/logging"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
)

// #region inspect
func newInspectCommand(a *app) *cobra.Command {
	var last int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "inspect [SESSION_ID]",
		Short: "List recent profiles, or show one profile with its provenance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runDetail(cmd, a, args[0], jsonOut)
			}
			return runList(cmd, a, last, jsonOut)
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "show N most recently updated profiles")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion inspect

// #region list-mode
type listRow struct {
	SessionID  string  `json:"session_id"`
	TypeCode   string  `json:"type_code"`
	Overlay    string  `json:"overlay"`
	Band       string  `json:"band"`
	Confidence float64 `json:"confidence"`
	Validity   string  `json:"validity"`
	TopGap     float64 `json:"top_gap"`
	Stale      bool    `json:"stale"`
	UpdatedAt  string  `json:"updated_at"`
}

func runList(cmd *cobra.Command, a *app, last int, jsonOut bool) error {
	ps, err := a.store.List(cmd.Context(), last)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(ps) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no profiles found")
		return nil
	}
	rows := make([]listRow, len(ps))
	for i, p := range ps {
		rows[i] = listRow{
			SessionID:  p.SessionID,
			TypeCode:   p.TypeCode,
			Overlay:    string(p.Overlay),
			Band:       string(p.Confidence.Band),
			Confidence: p.Confidence.Calibrated,
			Validity:   string(p.Validity.Status),
			TopGap:     p.TopGap,
			Stale:      p.IsStale(engine.Version),
			UpdatedAt:  p.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if jsonOut {
		return writeJSON(out, rows)
	}

	fmt.Fprintf(out, "%-20s  %-4s  %-4s  %-8s  %5s  %-8s  %6s  %-5s  %s\n",
		"Session", "Type", "Ovl", "Band", "Conf", "Validity", "Gap", "Stale", "Updated")
	fmt.Fprintf(out, "%-20s+-%-4s+-%-4s+-%-8s+-%5s+-%-8s+-%6s+-%-5s+-%s\n",
		"--------------------", "----", "----", "--------", "-----", "--------", "------", "-----", "--------------------")
	for _, r := range rows {
		fmt.Fprintf(out, "%-20s  %-4s  %-4s  %-8s  %5.2f  %-8s  %6.2f  %-5v  %s\n",
			shortID(r.SessionID, 20), r.TypeCode, r.Overlay, r.Band, r.Confidence, r.Validity, r.TopGap, r.Stale, r.UpdatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode
type detailOutput struct {
	Profile    profile.Profile           `json:"profile"`
	Stale      bool                      `json:"stale"`
	Provenance []logging.ProvenanceEntry `json:"provenance"`
}

func runDetail(cmd *cobra.Command, a *app, sessionID string, jsonOut bool) error {
	p, err := a.store.Get(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	hist, err := logging.History(a.store.DB(), sessionID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOut {
		return writeJSON(out, detailOutput{Profile: p, Stale: p.IsStale(engine.Version), Provenance: hist})
	}

	fmt.Fprintf(out, "Session:    %s\n", p.SessionID)
	fmt.Fprintf(out, "Profile:    %s\n", p.ProfileID)
	fmt.Fprintf(out, "Type:       %s (%s/%s)  %s  %s\n", p.TypeCode, p.BaseFunction, p.CreativeFunction, p.Overlay, p.FitBand)
	fmt.Fprintf(out, "Confidence: %.3f raw, %.3f calibrated, %s", p.Confidence.Raw, p.Confidence.Calibrated, p.Confidence.Band)
	if p.Confidence.CloseCall {
		fmt.Fprint(out, " (close call)")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Validity:   %s  inconsistency=%.2f sd=%.2f attention_failures=%d\n",
		p.Validity.Status, p.Validity.InconsistencyIndex, p.Validity.SocialDesirabilityIndex, p.Validity.AttentionFailures)
	fmt.Fprintf(out, "Versions:   results=%s fc=%s catalog=%s stale=%v\n",
		p.ResultsVersion, p.FCVersion, p.CatalogVersion, p.IsStale(engine.Version))
	fmt.Fprintf(out, "Coverage:   fc=%d (%s) seat_coherence=%.2f\n", p.FCAnswered, p.FCCoverage, p.SeatCoherence)
	fmt.Fprintf(out, "Updated:    %s\n", p.UpdatedAt.Format("2006-01-02T15:04:05Z"))

	fmt.Fprintf(out, "\nFunctions:\n")
	printFunctions(out, p)
	fmt.Fprintf(out, "  coherent=%v unique=%v\n", p.DimsHighlights.Coherent, p.DimsHighlights.Unique)

	fmt.Fprintf(out, "\nBlocks:\n")
	names := make([]string, 0, len(p.Blocks))
	for name := range p.Blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-8s %.2f  %5.1f%%  likert=%5.1f%% fc=%5.1f%% blended=%5.1f%%\n", name, p.Blocks[name], p.BlocksPercent[name],
			p.BlocksNorm.Likert[name], p.BlocksNorm.FC[name], p.BlocksNorm.Blended[name])
	}

	fmt.Fprintf(out, "\nTop fits:\n")
	for _, e := range p.Top3 {
		fmt.Fprintf(out, "  %-4s fit=%6.2f share=%5.1f%%\n", e.TypeCode, e.FitAbs, e.SharePct)
	}
	if len(p.QualityFlags) > 0 {
		fmt.Fprintf(out, "\nQuality flags: %v\n", p.QualityFlags)
	}

	fmt.Fprintf(out, "\nProvenance:\n")
	for _, h := range hist {
		fmt.Fprintf(out, "  %s  %-8s  %-9s  %s  %s\n",
			h.CreatedAt.Format("2006-01-02T15:04:05Z"), h.TriggerType, h.Decision, shortID(h.ResponsesHash, 12), h.Reason)
	}
	return nil
}

func printFunctions(w io.Writer, p profile.Profile) {
	for _, f := range catalog.Functions() {
		s := p.Functions[f]
		low := ""
		if s.LowCoverage {
			low = "  low coverage"
		}
		fmt.Fprintf(w, "  %-3s strength=%.2f dim=%d%s\n", f, s.Strength, s.Dimensionality, low)
	}
}

func shortID(id string, n int) string {
	if len(id) > n {
		return id[:n]
	}
	return id
}

// #endregion detail-mode
