package deck

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
)

// RandSource provides the randomness for shuffling. The default is backed by
// crypto/rand; a seeded source exists for reproducing hands in tests and the
// local mode.
type RandSource interface {
	IntN(n int) int
}

type cryptoSource struct{}

// CryptoSource returns a RandSource backed by crypto/rand.
func CryptoSource() RandSource {
	return cryptoSource{}
}

func (cryptoSource) IntN(n int) int {
	// Rejection sampling to avoid modulo bias.
	max := ^uint64(0) - ^uint64(0)%uint64(n)
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic("deck: crypto/rand failed: " + err.Error())
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < max {
			return int(v % uint64(n))
		}
	}
}

const goldenRatio64 = 0x9e3779b97f4a7c15

// SeededSource returns a deterministic RandSource derived from seed. The two
// PCG seeds are mixed so that nearby seeds give unrelated sequences.
func SeededSource(seed int64) RandSource {
	u := uint64(seed)
	return mathrand.New(mathrand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
