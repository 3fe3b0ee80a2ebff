package ports

import (
	"math/rand/v2"
)

// RNGPort provides seeded random streams for trajectory simulation
type RNGPort interface {
	// Stream returns a freshly seeded source owned by a single simulation.
	// Identical seeds must yield identical streams.
	Stream(seed uint64) (rand.Source, error)

	// Algorithm names the generator so recorded runs can state what produced them
	Algorithm() string
}
