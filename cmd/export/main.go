package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"reedfrost/app"
	"reedfrost/domain/epidemic"
	"reedfrost/internal/config"
	"reedfrost/internal/container"
	"reedfrost/internal/export"

	"github.com/joho/godotenv"
)

func main() {
	out := flag.String("out", "reedfrost.xlsx", "output file path")
	format := flag.String("format", "", "output format: xlsx or csv (default inferred from -out)")
	s0 := flag.Uint("s0", 10, "initial susceptibles")
	i0 := flag.Uint("i0", 1, "initial infected")
	p := flag.Float64("p", -1, "transmission probability in [0, 1] (required)")
	runs := flag.Int("runs", 100, "number of simulated trajectories; 0 exports the distribution only")
	seed := flag.Uint64("seed", 44, "base seed; run k uses seed+k+1")
	flag.Parse()

	if *p < 0 {
		fmt.Fprintln(os.Stderr, "-p is required")
		os.Exit(2)
	}
	if *runs < 0 {
		fmt.Fprintln(os.Stderr, "runs must be >= 0")
		os.Exit(2)
	}

	fmtName, err := export.ParseFormat(*format, *out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error loading configuration:", err)
		os.Exit(1)
	}
	c, err := container.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error creating container:", err)
		os.Exit(1)
	}

	params := epidemic.Params{S0: *s0, I0: *i0, P: *p}
	tables, err := buildTables(context.Background(), c.EpidemicService, params, *runs, *seed)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error computing tables:", err)
		os.Exit(1)
	}

	if err := export.Write(*out, fmtName, tables...); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", fmtName, err)
		os.Exit(1)
	}

	fmt.Printf("Export written: %s\n", *out)
	for _, t := range tables {
		fmt.Printf("%s: %d columns | %d rows\n", t.Name, len(t.Headers), len(t.Rows))
	}
}

func buildTables(ctx context.Context, svc *app.EpidemicService, params epidemic.Params, runs int, seed uint64) ([]export.Table, error) {
	dist, err := svc.Distribution(ctx, params.S0, params.I0, params.P)
	if err != nil {
		return nil, err
	}
	tables := []export.Table{export.DistributionTable(dist)}
	if runs == 0 {
		return tables, nil
	}

	run, err := svc.RunEnsemble(ctx, app.EnsembleRequest{Params: params, Runs: runs, BaseSeed: seed})
	if err != nil {
		return nil, err
	}
	return append(tables, export.TrajectoryTable(run), export.SummaryTable(run)), nil
}
