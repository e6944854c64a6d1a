// Package obfuscate wires the SE and CFF transformations together into
// the per-module Driver spec.md §4.7 describes.
package obfuscate

import (
	"crypto/rand"
	"math/rand/v2"
)

// Entropy is the injected randomness capability spec.md §9 calls for:
// "the design treats entropy as an injected capability... tests
// require the ability to substitute a deterministic source." SE's key
// byte and CFF's block-id shuffle both go through this interface so a
// fixed seed reproduces byte-identical output (spec.md §5, §8).
type Entropy interface {
	// KeyByte returns a byte in [1, 255] for SE's per-module XOR key.
	// Zero is excluded: a zero key would make encryption a no-op.
	KeyByte() byte

	// Perm returns a pseudo-random permutation of [0, n), used by the
	// Flattener to assign dense state ids to FlattenTargets in a
	// deliberately non-source-order shuffle.
	Perm(n int) []int
}

// NondeterministicEntropy draws from crypto/rand, the default when no
// seed is supplied on the CLI.
type NondeterministicEntropy struct{}

// KeyByte returns a cryptographically random byte in [1, 255].
func (NondeterministicEntropy) KeyByte() byte {
	var buf [1]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand failing indicates a broken host environment;
			// there is no safe fallback for a security-adjacent value.
			panic("obfuscate: crypto/rand unavailable: " + err.Error())
		}
		if buf[0] != 0 {
			return buf[0]
		}
	}
}

// Perm returns a cryptographically seeded pseudo-random permutation.
func (NondeterministicEntropy) Perm(n int) []int {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		panic("obfuscate: crypto/rand unavailable: " + err.Error())
	}
	r := rand.New(rand.NewChaCha8(seed))
	return r.Perm(n)
}

// SeededEntropy is the reproducible path spec.md §5 requires: "the
// core must expose an optional fixed seed so tests can reproduce
// output byte-for-byte." Two SeededEntropy values built from the same
// seed produce byte-identical KeyByte/Perm sequences.
type SeededEntropy struct {
	r *rand.Rand
}

// NewSeededEntropy builds a deterministic entropy source from seed.
func NewSeededEntropy(seed uint64) *SeededEntropy {
	return &SeededEntropy{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// KeyByte returns a seeded-deterministic byte in [1, 255].
func (s *SeededEntropy) KeyByte() byte {
	for {
		b := byte(s.r.IntN(256))
		if b != 0 {
			return b
		}
	}
}

// Perm returns a seeded-deterministic permutation of [0, n).
func (s *SeededEntropy) Perm(n int) []int { return s.r.Perm(n) }
