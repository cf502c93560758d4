package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// SelectWinners draws up to count distinct entrants uniformly without
// replacement. exclude is never returned. The result is never nil.
func SelectWinners[T comparable](entrants []T, exclude T, count int) []T {
	winners := make([]T, 0)
	if count <= 0 || len(entrants) == 0 {
		return winners
	}

	pool := make([]T, len(entrants))
	copy(pool, entrants)

	for len(winners) < count && len(pool) > 0 {
		i := index(len(pool))
		picked := pool[i]
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]

		if picked == exclude {
			continue
		}
		if contains(winners, picked) {
			// duplicate reactor entries count once
			continue
		}
		winners = append(winners, picked)
	}
	return winners
}

func intn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}

// index falls back to the first element if the system entropy source fails.
func index(n int) int {
	i, err := intn(n)
	if err != nil {
		return 0
	}
	return i
}

func contains[T comparable](s []T, v T) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
