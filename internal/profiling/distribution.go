package profiling

import (
	"math"

	"reedfrost/domain/epidemic"

	"github.com/montanaflynn/stats"
)

// Shape describes the form of a final-size distribution. Reed-Frost
// distributions are usually bimodal: a minor outbreak that dies out early and
// a major outbreak around the deterministic final size.
type Shape struct {
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`

	Bimodal bool `json:"bimodal"`
	// Threshold is the largest final size counted as a minor outbreak
	Threshold        uint    `json:"threshold"`
	MinorMode        uint    `json:"minor_mode"`
	MajorMode        uint    `json:"major_mode"`
	MinorProbability float64 `json:"minor_probability"`
	MajorProbability float64 `json:"major_probability"`
}

// minRise is the probability gain a second peak needs over the trough to count
const minRise = 1e-9

// DistributionAnalyzer handles distribution shape analysis
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// AnalyzeDistribution computes exact moments and the minor/major split of a
// final-size distribution.
func (da *DistributionAnalyzer) AnalyzeDistribution(dist epidemic.Distribution) Shape {
	f := byFinalSize(dist)
	shape := Shape{}

	for k, p := range f {
		shape.Mean += float64(k) * p
	}
	var m2, m3, m4 float64
	for k, p := range f {
		d := float64(k) - shape.Mean
		m2 += p * d * d
		m3 += p * d * d * d
		m4 += p * d * d * d * d
	}
	shape.StdDev = math.Sqrt(m2)
	if m2 > 0 {
		shape.Skewness = m3 / math.Pow(m2, 1.5)
		shape.Kurtosis = m4 / (m2 * m2)
	}

	splitOutbreaks(f, &shape)
	return shape
}

// AnalyzeSample computes moments of simulated final sizes with small-sample corrections
func (da *DistributionAnalyzer) AnalyzeSample(finalSizes []uint) (Shape, error) {
	data := make([]float64, len(finalSizes))
	for k, v := range finalSizes {
		data[k] = float64(v)
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return Shape{}, err
	}
	stdDev, err := stats.StandardDeviation(data)
	if err != nil {
		return Shape{}, err
	}

	shape := Shape{Mean: mean, StdDev: stdDev}
	if stdDev > 0 {
		shape.Skewness = calculateSkewness(data, mean, stdDev)
		shape.Kurtosis = calculateKurtosis(data, mean, stdDev)
	}
	return shape, nil
}

// MajorFraction is the share of simulated runs whose final size exceeds threshold
func MajorFraction(finalSizes []uint, threshold uint) float64 {
	if len(finalSizes) == 0 {
		return 0
	}
	major := 0
	for _, v := range finalSizes {
		if v > threshold {
			major++
		}
	}
	return float64(major) / float64(len(finalSizes))
}

// splitOutbreaks finds the first peak, the trough after it and the highest
// peak beyond the trough.
func splitOutbreaks(f []float64, shape *Shape) {
	last := len(f) - 1
	if last < 0 {
		return
	}

	k := 0
	for k < last && f[k+1] >= f[k] {
		k++
	}
	shape.MinorMode = uint(k)

	for k < last && f[k+1] <= f[k] {
		k++
	}
	trough := k

	major := trough
	for j := trough + 1; j <= last; j++ {
		if f[j] > f[major] {
			major = j
		}
	}

	if major == trough || f[major]-f[trough] < minRise {
		shape.Threshold = uint(last)
		shape.MajorMode = shape.MinorMode
		shape.MinorProbability = sum(f)
		return
	}

	shape.Bimodal = true
	shape.Threshold = uint(trough)
	shape.MajorMode = uint(major)
	shape.MinorProbability = sum(f[:trough+1])
	shape.MajorProbability = sum(f[trough+1:])
}

// byFinalSize reindexes outcome probabilities by number of new infections
func byFinalSize(dist epidemic.Distribution) []float64 {
	f := make([]float64, dist.Params.S0+1)
	for _, o := range dist.Outcomes {
		if int(o.FinalSize) < len(f) {
			f[o.FinalSize] = o.Probability
		}
	}
	return f
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0

	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n

	// Bias correction for sample skewness
	correction := math.Sqrt(n*(n-1)) / (n - 2)
	return skewness * correction
}

// calculateKurtosis computes sample kurtosis (not excess)
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 {
		return 0
	}

	n := float64(len(data))
	sumFourthDeviations := 0.0

	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumFourthDeviations += deviation * deviation * deviation * deviation
	}

	excessKurtosis := sumFourthDeviations/n - 3

	// Bias correction for sample excess kurtosis
	correction := (n - 1) / ((n - 2) * (n - 3))
	excessKurtosis = excessKurtosis*correction + 6/(n+1)

	return excessKurtosis + 3
}
