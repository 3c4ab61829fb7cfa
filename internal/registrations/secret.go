package registrations

import (
	"crypto/subtle"
	"fmt"
	"math/rand/v2"
	"sync"
)

// SecretLength is the number of digits in a registration secret.
const SecretLength = 4

// SecretGenerator produces short numeric shared secrets for registrants.
// It is not a security-grade credential source.
type SecretGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSecretGenerator creates a generator over src.
func NewSecretGenerator(src rand.Source) *SecretGenerator {
	return &SecretGenerator{rnd: rand.New(src)}
}

// NewSeededSecretGenerator creates a generator over a PCG source seeded with seed.
func NewSeededSecretGenerator(seed uint64) *SecretGenerator {
	return NewSecretGenerator(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Next returns a zero-padded 4-digit string.
func (g *SecretGenerator) Next() string {
	g.mu.Lock()
	n := g.rnd.IntN(10000)
	g.mu.Unlock()
	return fmt.Sprintf("%0*d", SecretLength, n)
}

// secretMatches compares the presented secret with the stored one byte for
// byte in constant time.
func secretMatches(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
