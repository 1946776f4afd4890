package utils

import "math/rand"

// SystemRand adapts the package-level math/rand source (which is safe for
// concurrent use) to the injectable randomness interface. Tests inject
// rand.New(rand.NewSource(seed)) instead for reproducible eliminations.
type SystemRand struct{}

// Perm returns a pseudo-random permutation of [0, n)
func (SystemRand) Perm(n int) []int {
	return rand.Perm(n)
}
