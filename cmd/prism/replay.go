package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/prism-engine/internal/replay"
)

// #region replay
func newReplayCommand(a *app) *cobra.Command {
	var exportPath, description string
	cmd := &cobra.Command{
		Use:   "replay FIXTURE | replay --export OUT [SESSION_ID...]",
		Short: "Replay a scoring fixture in memory, or export stored sessions as one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportPath != "" {
				return runExport(cmd, a, exportPath, description, args)
			}
			if len(args) != 1 {
				return &exitError{code: 2, msg: "usage: prism replay FIXTURE"}
			}
			return runFixture(cmd, a, args[0])
		},
	}
	cmd.Flags().StringVar(&exportPath, "export", "", "write stored sessions and their profiles to this fixture path")
	cmd.Flags().StringVar(&description, "description", "exported sessions", "fixture description for --export")
	return cmd
}

func runFixture(cmd *cobra.Command, a *app, path string) error {
	fx, err := replay.LoadFixture(path)
	if err != nil {
		return &exitError{code: 2, msg: err.Error()}
	}
	cat, err := replay.CatalogFor(fx, a.reg)
	if err != nil {
		return &exitError{code: 2, msg: err.Error()}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "catalog %s\n", cat.Version())

	results := replay.Replay(fx, cat, a.cfg.Engine("replay"))
	fmt.Fprintf(out, "%-24s  %-16s  %s\n", "Session", "Action", "Reason")
	fmt.Fprintf(out, "%-24s+-%-16s+-%s\n", "------------------------", "----------------", "------")
	for _, r := range results {
		fmt.Fprintf(out, "%-24s  %-16s  %s\n", shortID(r.SessionID, 24), r.Action, r.Reason)
		for _, m := range r.Mismatches {
			fmt.Fprintf(out, "%-24s    %s\n", "", m)
		}
	}
	sum := replay.Summarize(results)
	fmt.Fprintf(out, "\ntotal=%d matched=%d refused=%d mismatched=%d nondeterministic=%d\n",
		sum.Total, sum.Matched, sum.Refused, sum.Mismatched, sum.Nondeterministic)
	if !sum.OK() {
		return &exitError{code: 1, msg: "replay found differences"}
	}
	return nil
}

func runExport(cmd *cobra.Command, a *app, path, description string, sessions []string) error {
	if len(sessions) == 0 {
		all, err := a.store.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		sessions = all
	}
	fx, err := replay.Export(cmd.Context(), a.store, description, a.cat.Version().String(), sessions)
	if err != nil {
		return err
	}
	if err := replay.WriteFixture(path, fx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d session(s) to %s\n", len(fx.Sessions), path)
	return nil
}

// #endregion replay
