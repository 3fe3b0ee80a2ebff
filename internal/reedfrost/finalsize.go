package reedfrost

import (
	"context"
	"math"

	"reedfrost/domain/epidemic"
)

// checkEvery is how many visited states pass between context checks
const checkEvery = 256

// Engine computes exact Reed-Frost final-size probabilities. PMF is a
// memoized recursion over (s_inf, s, i, p); Distribution walks the states
// forward once. It is safe for concurrent use. Calls compute against private
// scratch space and publish to the cache only when they finish.
type Engine struct {
	cache   *Cache
	memoize bool
}

// Option configures an Engine
type Option func(*Engine)

// WithCache makes the engine use an existing cache, so results computed by
// one engine are reused by another.
func WithCache(c *Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithoutMemoization disables lookups and stores. The recursion then revisits
// overlapping subproblems and grows exponentially; use only for small
// populations and cross-checks.
func WithoutMemoization() Option {
	return func(e *Engine) {
		e.memoize = false
	}
}

// NewEngine creates an engine with its own cache unless WithCache is given
func NewEngine(opts ...Option) *Engine {
	e := &Engine{memoize: true}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewCache()
	}
	return e
}

// Cache exposes the engine's cache
func (e *Engine) Cache() *Cache {
	return e.cache
}

// PMF returns the probability that an epidemic starting with s susceptibles
// and i infected ends with exactly sInf susceptibles. States that cannot reach
// sInf, including sInf > s, have probability 0. An invalid p or a done ctx is
// an error.
func (e *Engine) PMF(ctx context.Context, sInf, s, i uint, p float64) (float64, error) {
	if err := epidemic.ValidateProbability(p); err != nil {
		return 0, err
	}

	w := e.newWorker(ctx, p)
	v := w.pmf(sInf, s, i)
	if w.err != nil {
		return 0, w.err
	}
	w.publish()
	return clampProbability(v), nil
}

// Distribution returns the probabilities of every terminal state of an
// epidemic started from (s, i). Probability mass is pushed from (s, i) through
// the states in decreasing s, so each state is expanded once.
func (e *Engine) Distribution(ctx context.Context, s, i uint, p float64) (epidemic.Distribution, error) {
	params := epidemic.Params{S0: s, I0: i, P: p}
	if err := params.Validate(); err != nil {
		return epidemic.Distribution{}, err
	}

	w := e.newWorker(ctx, p)
	bySInf, ok := w.cachedDistribution(s, i)
	if !ok {
		bySInf = w.forward(s, i)
		if w.err != nil {
			return epidemic.Distribution{}, w.err
		}
		if w.memoize {
			for sInf, v := range bySInf {
				w.scratch.pmf[stateKey{sInf: uint(sInf), s: s, i: i}] = v
				w.scratch.size++
			}
		}
	}
	w.publish()

	for k, v := range bySInf {
		bySInf[k] = clampProbability(v)
	}
	return epidemic.NewDistribution(params, bySInf), nil
}

// worker carries one call's scratch space. It is not shared between goroutines.
type worker struct {
	ctx     context.Context
	cache   *Cache
	memoize bool
	p       float64
	scratch *table
	visited int
	hits    uint64
	misses  uint64
	err     error
}

func (e *Engine) newWorker(ctx context.Context, p float64) *worker {
	return &worker{
		ctx:     ctx,
		cache:   e.cache,
		memoize: e.memoize,
		p:       p,
		scratch: newTable(probabilityKey(p)),
	}
}

// check records ctx.Err() every checkEvery calls and reports whether the
// computation should stop.
func (w *worker) check() bool {
	if w.err != nil {
		return true
	}
	if w.visited%checkEvery == 0 {
		w.err = w.ctx.Err()
	}
	w.visited++
	return w.err != nil
}

func (w *worker) publish() {
	if w.memoize {
		w.cache.merge(w.scratch, w.hits, w.misses)
	}
}

// pmf recurses over new-case counts. Depth is at most s-sInf+1.
func (w *worker) pmf(sInf, s, i uint) float64 {
	if i == 0 && sInf == s {
		return 1
	}
	if i == 0 || s < sInf {
		return 0
	}
	if w.check() {
		return 0
	}

	k := stateKey{sInf: sInf, s: s, i: i}
	if w.memoize {
		if v, ok := w.lookupPMF(k); ok {
			w.hits++
			return v
		}
		w.misses++
	}

	// More than s-sInf new cases would overshoot sInf, and s never grows back.
	row := w.row(s, i, true)
	total := 0.0
	for j := uint(0); j <= s-sInf; j++ {
		if row[j] == 0 {
			continue
		}
		total += row[j] * w.pmf(sInf, s-j, j)
		if w.err != nil {
			return 0
		}
	}

	if w.memoize {
		w.scratch.pmf[k] = total
		w.scratch.size++
	}
	return total
}

// forward returns final-size probabilities indexed by s_inf. Every state is
// expanded once, so rows are read from the cache but not kept.
func (w *worker) forward(s0, i0 uint) []float64 {
	bySInf := make([]float64, s0+1)

	// mass[s][i] is the probability of reaching (s, i). Below s0 at most
	// s0-s cases can be active.
	mass := make([][]float64, s0+1)
	for s := uint(0); s < s0; s++ {
		mass[s] = make([]float64, s0-s+1)
	}
	mass[s0] = make([]float64, i0+1)
	mass[s0][i0] = 1

	for s := int(s0); s >= 0; s-- {
		level := mass[s]
		bySInf[s] += level[0]
		for i := 1; i < len(level); i++ {
			m := level[i]
			if m == 0 {
				continue
			}
			if w.check() {
				return nil
			}
			row := w.row(uint(s), uint(i), false)
			bySInf[s] += m * row[0]
			for j := 1; j < len(row); j++ {
				if row[j] != 0 {
					mass[s-j][j] += m * row[j]
				}
			}
		}
		mass[s] = nil
	}
	return bySInf
}

func (w *worker) lookupPMF(k stateKey) (float64, bool) {
	if v, ok := w.scratch.pmf[k]; ok {
		return v, true
	}
	return w.cache.lookupPMF(w.scratch.key, k)
}

// cachedDistribution reassembles a distribution stored by an earlier call
func (w *worker) cachedDistribution(s, i uint) ([]float64, bool) {
	if !w.memoize {
		return nil, false
	}
	bySInf := make([]float64, s+1)
	for sInf := range bySInf {
		v, ok := w.cache.lookupPMF(w.scratch.key, stateKey{sInf: uint(sInf), s: s, i: i})
		if !ok {
			w.misses++
			return nil, false
		}
		bySInf[sInf] = v
	}
	w.hits++
	return bySInf, true
}

// row returns the transition row for (s, i). With keep set, a computed row
// is added to the scratch table while it stays within the cache bound.
func (w *worker) row(s, i uint, keep bool) []float64 {
	if !w.memoize {
		return transitionRow(s, i, w.p)
	}
	k := rowKey{s: s, i: i}
	if row, ok := w.scratch.rows[k]; ok {
		return row
	}
	if row, ok := w.cache.lookupRow(w.scratch.key, k); ok {
		return row
	}
	row := transitionRow(s, i, w.p)
	if keep && w.scratch.size+len(row) <= w.cache.maxEntries {
		w.scratch.rows[k] = row
		w.scratch.size += len(row)
	}
	return row
}

func clampProbability(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
