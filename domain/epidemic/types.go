package epidemic

import (
	"fmt"
	"math"
	"sort"
	"time"

	"reedfrost/domain/core"
)

// ValidateProbability reports whether p is a usable per-contact transmission
// probability. NaN and values outside [0, 1] are rejected.
func ValidateProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return core.NewProbabilityError(p)
	}
	return nil
}

// State is a point in the chain-binomial process: S susceptibles remaining and
// I infected individuals about to transmit.
type State struct {
	S uint `json:"s"`
	I uint `json:"i"`
}

// Terminal reports whether the epidemic has ended
func (st State) Terminal() bool {
	return st.I == 0
}

// Params describes an epidemic start condition
type Params struct {
	S0 uint    `json:"s0"`
	I0 uint    `json:"i0"`
	P  float64 `json:"p"`
}

// Validate checks the transmission probability; counts are unsigned and need no check
func (p Params) Validate() error {
	return ValidateProbability(p.P)
}

// Trajectory holds the number of newly infected individuals per generation.
// Element 0 is the initial infected count; the length is always s0+1 and the
// sequence is zero-absorbing.
type Trajectory []uint

// NewInfections is the number of susceptibles infected after generation 0
func (t Trajectory) NewInfections() uint {
	var total uint
	for _, c := range t[min(1, len(t)):] {
		total += c
	}
	return total
}

// FinalSusceptibles returns the susceptible count left when the sequence ends
func (t Trajectory) FinalSusceptibles(s0 uint) uint {
	n := t.NewInfections()
	if n > s0 {
		return 0
	}
	return s0 - n
}

// Cumulative returns running totals of infections, including the initial cases
func (t Trajectory) Cumulative() []uint {
	out := make([]uint, len(t))
	var running uint
	for k, c := range t {
		running += c
		out[k] = running
	}
	return out
}

// Generations is the index of the last generation with a non-zero count
func (t Trajectory) Generations() int {
	last := 0
	for k, c := range t {
		if c == 0 {
			break
		}
		last = k
	}
	return last
}

// Validate checks the structural invariants of a simulated sequence
func (t Trajectory) Validate(s0 uint) error {
	if uint(len(t)) != s0+1 {
		return fmt.Errorf("%w: length %d, want %d", core.ErrMalformedTrajectory, len(t), s0+1)
	}
	seenZero := false
	var s = s0
	for k, c := range t {
		if seenZero && c != 0 {
			return fmt.Errorf("%w: non-zero count %d at generation %d after extinction", core.ErrMalformedTrajectory, c, k)
		}
		if c == 0 {
			seenZero = true
		}
		if k == 0 {
			continue
		}
		if c > s {
			return fmt.Errorf("%w: generation %d infects %d of %d susceptibles", core.ErrMalformedTrajectory, k, c, s)
		}
		s -= c
	}
	return nil
}

// Outcome is one terminal state of the final-size distribution
type Outcome struct {
	SInf          uint    `json:"s_inf"`
	FinalSize     uint    `json:"final_size"`
	TotalInfected uint    `json:"total_infected"`
	Probability   float64 `json:"probability"`
}

// Distribution is the full final-size distribution for one start condition,
// ordered by increasing TotalInfected.
type Distribution struct {
	Params   Params    `json:"params"`
	Outcomes []Outcome `json:"outcomes"`
}

// NewDistribution builds a distribution from probabilities indexed by s_inf
func NewDistribution(params Params, bySInf []float64) Distribution {
	outcomes := make([]Outcome, len(bySInf))
	for sInf, prob := range bySInf {
		finalSize := params.S0 - uint(sInf)
		outcomes[sInf] = Outcome{
			SInf:          uint(sInf),
			FinalSize:     finalSize,
			TotalInfected: finalSize + params.I0,
			Probability:   prob,
		}
	}
	sort.Slice(outcomes, func(a, b int) bool {
		return outcomes[a].TotalInfected < outcomes[b].TotalInfected
	})
	return Distribution{Params: params, Outcomes: outcomes}
}

// Total sums the probability mass; it should be 1 up to rounding
func (d Distribution) Total() float64 {
	total := 0.0
	for _, o := range d.Outcomes {
		total += o.Probability
	}
	return total
}

// MeanFinalSize is the expected number of susceptibles infected
func (d Distribution) MeanFinalSize() float64 {
	mean := 0.0
	for _, o := range d.Outcomes {
		mean += float64(o.FinalSize) * o.Probability
	}
	return mean
}

// Mode returns the most likely outcome. Ties resolve to the smaller epidemic.
func (d Distribution) Mode() Outcome {
	var best Outcome
	for k, o := range d.Outcomes {
		if k == 0 || o.Probability > best.Probability {
			best = o
		}
	}
	return best
}

// ProbabilityOfFinalSize looks up the mass for a given number of new infections
func (d Distribution) ProbabilityOfFinalSize(finalSize uint) float64 {
	for _, o := range d.Outcomes {
		if o.FinalSize == finalSize {
			return o.Probability
		}
	}
	return 0
}

// Summary holds descriptive statistics of simulated final sizes
type Summary struct {
	Mean         float64 `json:"mean" db:"mean_final_size"`
	Median       float64 `json:"median" db:"median_final_size"`
	StdDev       float64 `json:"std_dev" db:"std_dev_final_size"`
	Percentile5  float64 `json:"p05" db:"p05_final_size"`
	Percentile95 float64 `json:"p95" db:"p95_final_size"`
	Min          float64 `json:"min" db:"min_final_size"`
	Max          float64 `json:"max" db:"max_final_size"`
}

// EnsembleRun is a batch of seeded trajectories for one start condition
type EnsembleRun struct {
	ID           core.RunID   `json:"id"`
	Params       Params       `json:"params"`
	Runs         int          `json:"runs"`
	BaseSeed     uint64       `json:"base_seed"`
	Algorithm    string       `json:"algorithm"`
	Trajectories []Trajectory `json:"trajectories"`
	Seeds        []uint64     `json:"seeds"`
	FinalSizes   []uint       `json:"final_sizes"`
	Histogram    []uint       `json:"histogram"`
	Summary      Summary      `json:"summary"`
	CreatedAt    time.Time    `json:"created_at"`
}

// SeedFor returns the seed of the k-th run (zero-based) of a batch
func SeedFor(baseSeed uint64, k int) uint64 {
	return baseSeed + uint64(k) + 1
}

// Recount derives seeds, final sizes and the histogram from the trajectories
func (r *EnsembleRun) Recount() {
	r.Runs = len(r.Trajectories)
	r.Seeds = make([]uint64, r.Runs)
	r.FinalSizes = make([]uint, r.Runs)
	r.Histogram = make([]uint, r.Params.S0+1)
	for k, traj := range r.Trajectories {
		size := traj.NewInfections()
		r.Seeds[k] = SeedFor(r.BaseSeed, k)
		r.FinalSizes[k] = size
		if size <= r.Params.S0 {
			r.Histogram[size]++
		}
	}
}

// Frequencies converts the histogram into empirical probabilities indexed by final size
func (r *EnsembleRun) Frequencies() []float64 {
	freq := make([]float64, len(r.Histogram))
	if r.Runs == 0 {
		return freq
	}
	for k, n := range r.Histogram {
		freq[k] = float64(n) / float64(r.Runs)
	}
	return freq
}
