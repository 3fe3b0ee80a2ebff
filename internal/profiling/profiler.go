package profiling

import (
	"math"

	"reedfrost/domain/epidemic"

	"gonum.org/v1/gonum/stat/distuv"
)

// minExpected is the smallest expected bin count the chi-square test accepts
const minExpected = 5.0

// GoodnessOfFit is a Pearson chi-square test of simulated final sizes against
// the exact distribution.
type GoodnessOfFit struct {
	ChiSquare        float64 `json:"chi_square"`
	DegreesOfFreedom int     `json:"degrees_of_freedom"`
	PValue           float64 `json:"p_value"`
	Bins             int     `json:"bins"`
}

// Consistent reports whether the ensemble is compatible with the exact
// distribution at significance level alpha.
func (g GoodnessOfFit) Consistent(alpha float64) bool {
	return g.PValue > alpha
}

// EnsembleProfile combines the exact and simulated views of one start condition
type EnsembleProfile struct {
	Exact                  Shape         `json:"exact"`
	Simulated              Shape         `json:"simulated"`
	SimulatedMajorFraction float64       `json:"simulated_major_fraction"`
	Fit                    GoodnessOfFit `json:"fit"`
}

// OutbreakProfiler profiles ensembles against their exact distribution
type OutbreakProfiler struct {
	analyzer *DistributionAnalyzer
}

// NewOutbreakProfiler creates a new outbreak profiler
func NewOutbreakProfiler() *OutbreakProfiler {
	return &OutbreakProfiler{analyzer: NewDistributionAnalyzer()}
}

// Profile analyses an ensemble against the exact distribution for its parameters
func (op *OutbreakProfiler) Profile(run *epidemic.EnsembleRun, dist epidemic.Distribution) (EnsembleProfile, error) {
	exact := op.analyzer.AnalyzeDistribution(dist)
	simulated, err := op.analyzer.AnalyzeSample(run.FinalSizes)
	if err != nil {
		return EnsembleProfile{}, err
	}

	return EnsembleProfile{
		Exact:                  exact,
		Simulated:              simulated,
		SimulatedMajorFraction: MajorFraction(run.FinalSizes, exact.Threshold),
		Fit:                    ChiSquareTest(run.Histogram, dist),
	}, nil
}

// ChiSquareTest bins final sizes in increasing order, merging neighbours until
// every bin expects at least five runs, and compares observed with expected counts.
func ChiSquareTest(histogram []uint, dist epidemic.Distribution) GoodnessOfFit {
	f := byFinalSize(dist)
	n := 0.0
	for _, c := range histogram {
		n += float64(c)
	}
	if n == 0 {
		return GoodnessOfFit{PValue: 1}
	}

	var observed, expected []float64
	var o, e float64
	for k, p := range f {
		if k < len(histogram) {
			o += float64(histogram[k])
		}
		e += p * n
		if e >= minExpected {
			observed = append(observed, o)
			expected = append(expected, e)
			o, e = 0, 0
		}
	}
	if o > 0 || e > 0 {
		if len(expected) == 0 {
			observed = append(observed, o)
			expected = append(expected, e)
		} else {
			observed[len(observed)-1] += o
			expected[len(expected)-1] += e
		}
	}

	fit := GoodnessOfFit{Bins: len(expected), DegreesOfFreedom: len(expected) - 1}
	if fit.DegreesOfFreedom < 1 {
		fit.PValue = 1
		return fit
	}

	for k := range expected {
		if expected[k] <= 0 {
			if observed[k] > 0 {
				fit.ChiSquare = math.Inf(1)
			}
			continue
		}
		d := observed[k] - expected[k]
		fit.ChiSquare += d * d / expected[k]
	}

	if math.IsInf(fit.ChiSquare, 1) {
		return fit
	}
	chi := distuv.ChiSquared{K: float64(fit.DegreesOfFreedom)}
	fit.PValue = chi.Survival(fit.ChiSquare)
	return fit
}
