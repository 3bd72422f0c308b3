package codegen

import (
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultAlphabet is used for temp-absent codes
const DefaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator produces random alphanumeric codes. Safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	alphabet string
}

// New creates a generator seeded from the clock
func New() *Generator {
	seed := uint64(time.Now().UnixNano())
	return NewWithSource(rand.NewPCG(seed, seed>>1|1), DefaultAlphabet)
}

// NewWithSource creates a generator over an explicit source and alphabet.
// Tests use a small alphabet to force collisions.
func NewWithSource(src rand.Source, alphabet string) *Generator {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	return &Generator{
		rnd:      rand.New(src),
		alphabet: alphabet,
	}
}

// Generate returns a code of the requested length
func (g *Generator) Generate(length int) string {
	if length <= 0 {
		return ""
	}

	buf := make([]byte, length)

	g.mu.Lock()
	for i := range buf {
		buf[i] = g.alphabet[g.rnd.IntN(len(g.alphabet))]
	}
	g.mu.Unlock()

	return string(buf)
}
