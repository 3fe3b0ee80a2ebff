package reedfrost

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// infectionProbability returns 1-(1-p)^i, the chance that one susceptible is
// infected by at least one of i infectious contacts.
func infectionProbability(i uint, p float64) float64 {
	switch {
	case i == 0 || p == 0:
		return 0
	case p == 1:
		return 1
	}
	return -math.Expm1(float64(i) * math.Log1p(-p))
}

// TransitionProbability is the probability that exactly x of s susceptibles
// are infected in the next generation when i individuals are infectious and
// each contact transmits with probability p. x > s has probability 0.
//
// p must lie in [0, 1]; callers validate it.
func TransitionProbability(x, s, i uint, p float64) float64 {
	if x > s {
		return 0
	}
	q := infectionProbability(i, p)
	switch {
	case q == 0:
		if x == 0 {
			return 1
		}
		return 0
	case q == 1:
		if x == s {
			return 1
		}
		return 0
	}
	return distuv.Binomial{N: float64(s), P: q}.Prob(float64(x))
}

// transitionRow returns TransitionProbability(x, s, i, p) for x = 0..s
func transitionRow(s, i uint, p float64) []float64 {
	row := make([]float64, s+1)
	for x := range row {
		row[x] = TransitionProbability(uint(x), s, i, p)
	}
	return row
}
