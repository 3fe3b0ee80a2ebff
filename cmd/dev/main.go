package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"reedfrost/domain/epidemic"
	"reedfrost/internal/config"
	"reedfrost/internal/container"
	"reedfrost/internal/reedfrost"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "reedfrost-dev",
		Short: "reedfrost development tools",
	}

	rootCmd.AddCommand(
		newDeterminismTestCmd(),
		newCrosscheckCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newDeterminismTestCmd() *cobra.Command {
	var s0, i0 uint
	var p float64
	var seed uint64
	var repeats int

	cmd := &cobra.Command{
		Use:   "determinism",
		Short: "Re-simulate a trajectory and verify identical fingerprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return testDeterminism(cmd.Context(), cmd.OutOrStdout(), epidemic.Params{S0: s0, I0: i0, P: p}, seed, repeats)
		},
	}

	cmd.Flags().UintVar(&s0, "s0", 50, "Initial susceptibles")
	cmd.Flags().UintVar(&i0, "i0", 1, "Initial infected")
	cmd.Flags().Float64Var(&p, "p", 0, "Transmission probability (required)")
	cmd.Flags().Uint64Var(&seed, "seed", 45, "Random seed")
	cmd.Flags().IntVar(&repeats, "repeats", 10, "Number of re-simulations")
	_ = cmd.MarkFlagRequired("p")
	return cmd
}

func newCrosscheckCmd() *cobra.Command {
	var maxS uint
	var p float64
	var tolerance float64

	cmd := &cobra.Command{
		Use:   "crosscheck",
		Short: "Compare memoized and naive final-size recursion on small populations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrosscheck(cmd.Context(), cmd.OutOrStdout(), maxS, p, tolerance)
		},
	}

	cmd.Flags().UintVar(&maxS, "max-s", 8, "Largest population to check (naive recursion is exponential)")
	cmd.Flags().Float64Var(&p, "p", 0, "Transmission probability (required)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-12, "Maximum allowed absolute difference")
	_ = cmd.MarkFlagRequired("p")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the ensemble_runs schema to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := container.ConnectDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Migrations applied")
			return nil
		},
	}
	return cmd
}

func testDeterminism(ctx context.Context, out io.Writer, params epidemic.Params, seed uint64, repeats int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := container.New(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "🔄 Simulating (s0=%d, i0=%d, p=%g) with seed %d, %d times...\n", params.S0, params.I0, params.P, seed, repeats)
	hash, err := c.EpidemicService.VerifyDeterminism(ctx, params, seed, repeats)
	if err != nil {
		return fmt.Errorf("determinism check failed: %w", err)
	}
	fmt.Fprintf(out, "✅ Deterministic: %s\n", hash)
	return nil
}

func runCrosscheck(ctx context.Context, out io.Writer, maxS uint, p, tolerance float64) error {
	memo := reedfrost.NewEngine()
	naive := reedfrost.NewEngine(reedfrost.WithoutMemoization())

	worst := 0.0
	checked := 0
	for s := uint(0); s <= maxS; s++ {
		for i := uint(0); i <= 3; i++ {
			dist, err := reedfrost.NewEngine().Distribution(ctx, s, i, p)
			if err != nil {
				return err
			}
			for sInf := uint(0); sInf <= s; sInf++ {
				a, err := memo.PMF(ctx, sInf, s, i, p)
				if err != nil {
					return err
				}
				b, err := naive.PMF(ctx, sInf, s, i, p)
				if err != nil {
					return err
				}
				c := dist.ProbabilityOfFinalSize(s - sInf)
				diff := math.Max(math.Abs(a-b), math.Abs(a-c))
				worst = math.Max(worst, diff)
				checked++
				if diff > tolerance {
					return fmt.Errorf("pmf(%d, %d, %d, %g): memoized %.17g, naive %.17g, forward %.17g", sInf, s, i, p, a, b, c)
				}
			}
		}
	}

	stats := memo.Cache().Stats()
	fmt.Fprintf(out, "✅ %d values agree (max difference %.3g); cache holds %d pmf and %d transition entries\n",
		checked, worst, stats.PMFEntries, stats.TransitionEntries)
	return nil
}
