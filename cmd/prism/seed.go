package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/prism-engine/internal/fixtures"
	"github.com/danielpatrickdp/prism-engine/internal/rank"
)

// #region seed
func newSeedCommand(a *app) *cobra.Command {
	var (
		n      int
		prefix string
		noise  float64
		seed   uint64
		score  bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store synthetic respondents cycling through all 16 types",
		RunE: func(cmd *cobra.Command, args []string) error {
			types := rank.Types()
			out := cmd.OutOrStdout()
			eng := a.engine("seed")
			for i := range n {
				ty := types[i%len(types)]
				r := fixtures.FromSeats(ty.Seats)
				r.Noise = noise
				r.Seed = seed + uint64(i)
				id := fmt.Sprintf("%s%04d-%s", prefix, i, ty.Code)
				if err := a.store.SaveResponses(cmd.Context(), id, a.cat.Version(), r.Raws(a.cat)); err != nil {
					return err
				}
				if !score {
					continue
				}
				res, err := eng.Score(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(out, "%s  refused  %v\n", id, err)
					continue
				}
				if err := printProfile(out, res.Profile, string(res.Decision), false); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "seeded %d session(s) with prefix %q\n", n, prefix)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 16, "number of sessions")
	cmd.Flags().StringVar(&prefix, "prefix", "seed-", "session id prefix")
	cmd.Flags().Float64Var(&noise, "noise", 0.1, "probability an answer deviates from the type pattern")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().BoolVar(&score, "score", false, "score each session after storing it")
	return cmd
}

// #endregion seed
