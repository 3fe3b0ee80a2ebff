package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"reedfrost/app"
	"reedfrost/domain/epidemic"
	"reedfrost/internal/config"
	"reedfrost/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	c, err := container.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd(c.EpidemicService).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(svc *app.EpidemicService) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "reedfrost-cli",
		Short:         "Reed-Frost final-size probabilities and seeded trajectories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newPMFCmd(svc),
		newDistributionCmd(svc),
		newTrajectoryCmd(svc),
		newEnsembleCmd(svc),
	)

	return rootCmd
}

// startFlags holds the start condition. --p is always required.
type startFlags struct {
	s0 uint
	i0 uint
	p  float64
}

func (f *startFlags) register(cmd *cobra.Command, sName, iName string) {
	cmd.Flags().UintVar(&f.s0, sName, 10, "Initial susceptibles")
	cmd.Flags().UintVar(&f.i0, iName, 1, "Initial infected")
	cmd.Flags().Float64Var(&f.p, "p", 0, "Per-contact transmission probability in [0, 1] (required)")
	_ = cmd.MarkFlagRequired("p")
}

func (f *startFlags) params() epidemic.Params {
	return epidemic.Params{S0: f.s0, I0: f.i0, P: f.p}
}

func newPMFCmd(svc *app.EpidemicService) *cobra.Command {
	var start startFlags
	var sInf uint

	cmd := &cobra.Command{
		Use:   "pmf",
		Short: "Probability that the epidemic ends with s-inf susceptibles",
		Long: `Compute P(s_inf | s, i, p) under the Reed-Frost chain binomial.

Example: reedfrost-cli pmf --s-inf 5 --s 10 --i 1 --p 0.05`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prob, err := svc.PMF(cmd.Context(), sInf, start.s0, start.i0, start.p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.10g\n", prob)
			return nil
		},
	}

	start.register(cmd, "s", "i")
	cmd.Flags().UintVar(&sInf, "s-inf", 0, "Susceptibles remaining when the epidemic ends")
	_ = cmd.MarkFlagRequired("s-inf")

	return cmd
}

func newDistributionCmd(svc *app.EpidemicService) *cobra.Command {
	var start startFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Full final-size distribution, ordered by total infected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dist, err := svc.Distribution(cmd.Context(), start.s0, start.i0, start.p)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), dist)
			}
			return writeDistribution(cmd.OutOrStdout(), dist)
		},
	}

	start.register(cmd, "s", "i")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func newTrajectoryCmd(svc *app.EpidemicService) *cobra.Command {
	var start startFlags
	var seed uint64

	cmd := &cobra.Command{
		Use:   "trajectory",
		Short: "Simulate one seeded epidemic",
		Long: `Simulate new infections per generation. The same seed always yields
the same trajectory.

Example: reedfrost-cli trajectory --s0 30 --i0 2 --p 0.08 --seed 45`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := svc.Trajectory(cmd.Context(), start.params(), seed)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	start.register(cmd, "s0", "i0")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for the trajectory")

	return cmd
}

func newEnsembleCmd(svc *app.EpidemicService) *cobra.Command {
	var start startFlags
	var runs int
	var seed uint64
	var compare bool

	cmd := &cobra.Command{
		Use:   "ensemble",
		Short: "Simulate many trajectories and summarise their final sizes",
		Long: `Simulate --runs trajectories; run k uses seed --seed + k + 1.

Example: reedfrost-cli ensemble --s0 10 --i0 1 --p 0.1 --runs 100 --seed 44 --compare`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := svc.RunEnsemble(cmd.Context(), app.EnsembleRequest{
				Params:   start.params(),
				Runs:     runs,
				BaseSeed: seed,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s := run.Summary
			fmt.Fprintf(out, "ensemble %s: %d runs, generator %s\n", run.ID, run.Runs, run.Algorithm)
			fmt.Fprintf(out, "final size: mean %.3f, median %.1f, sd %.3f, 5%%-95%% [%.0f, %.0f], range [%.0f, %.0f]\n",
				s.Mean, s.Median, s.StdDev, s.Percentile5, s.Percentile95, s.Min, s.Max)

			if compare {
				cmp, err := svc.Compare(cmd.Context(), run)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "exact mean %.3f, total variation distance %.4f\n", cmp.ExactMeanFinalSize, cmp.TotalVariationDistance)
			}
			return nil
		},
	}

	start.register(cmd, "s0", "i0")
	cmd.Flags().IntVar(&runs, "runs", 100, "Number of trajectories")
	cmd.Flags().Uint64Var(&seed, "seed", 44, "Base seed")
	cmd.Flags().BoolVar(&compare, "compare", false, "Compare against the exact distribution")

	return cmd
}

func writeDistribution(w io.Writer, dist epidemic.Distribution) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "total_infected\tfinal_size\ts_inf\tprobability\t")
	for _, o := range dist.Outcomes {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.8f\t\n", o.TotalInfected, o.FinalSize, o.SInf, o.Probability)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "mean final size %.4f\n", dist.MeanFinalSize())
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
