// Package roomcode generates short join codes for rooms. Codes use a
// 32-symbol alphabet with the visually ambiguous characters (0, O, I, 1)
// removed so they survive being read aloud or retyped.
package roomcode

import (
	"crypto/rand"
	"errors"
)

// Alphabet is the 32-symbol code alphabet.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length of a generated code.
const Length = 6

// maxAttempts bounds the collision retry loop; with 32^6 possible codes it
// only trips if the taken-set is pathologically full.
const maxAttempts = 100

// ErrExhausted is returned when no free code was found within the attempt
// bound.
var ErrExhausted = errors.New("roomcode: could not generate an unused code")

// RandSource abstracts randomness for deterministic tests.
type RandSource interface {
	IntN(n int) int
}

type cryptoSource struct{}

func (cryptoSource) IntN(n int) int {
	// Alphabet length divides 256, so a single byte mod n is unbiased for
	// the n=32 case used here; rejection-sample anyway for other n.
	max := 256 - 256%n
	var b [1]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic("roomcode: crypto/rand failed: " + err.Error())
		}
		if int(b[0]) < max {
			return int(b[0]) % n
		}
	}
}

// Generator produces room codes with configurable randomness.
type Generator struct {
	src RandSource
}

// NewGenerator creates a generator; nil src means crypto/rand.
func NewGenerator(src RandSource) *Generator {
	if src == nil {
		src = cryptoSource{}
	}
	return &Generator{src: src}
}

// Generate returns one code without collision checking.
func (g *Generator) Generate() string {
	buf := make([]byte, Length)
	for i := range buf {
		buf[i] = Alphabet[g.src.IntN(len(Alphabet))]
	}
	return string(buf)
}

// GenerateUnused returns a code for which taken reports false, retrying up
// to the sanity bound.
func (g *Generator) GenerateUnused(taken func(string) bool) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		code := g.Generate()
		if !taken(code) {
			return code, nil
		}
	}
	return "", ErrExhausted
}

// Valid reports whether s is a well-formed room code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for _, c := range s {
		found := false
		for _, a := range Alphabet {
			if c == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
