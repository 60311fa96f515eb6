package timing

import (
	"fmt"
	"io"
	"math"

	"lukechampine.com/uint128"
)

// FlipStats summarizes how many ciphertext bits changed per flipped input bit.
type FlipStats struct {
	Flips int     `json:"flips"`
	Mean  float64 `json:"mean"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	// AboveHalf is the fraction of flips changing more than 64 bits.
	AboveHalf float64 `json:"above_half"`
}

type AvalancheReport struct {
	Trials    int       `json:"trials"`
	Key       FlipStats `json:"key"`
	Plaintext FlipStats `json:"plaintext"`
}

// Avalanche draws trials random (key, plaintext) pairs from rng and, for
// each, flips every single bit of the key and of the plaintext in turn,
// counting the ciphertext bits that change.
func Avalanche(encrypt EncryptFunc, rng io.Reader, trials int) (AvalancheReport, error) {
	if trials < 1 {
		return AvalancheReport{}, fmt.Errorf("trials must be at least 1, got %d", trials)
	}

	keyAcc := newFlipAccumulator()
	ptAcc := newFlipAccumulator()

	var buf [32]byte
	for n := 0; n < trials; n++ {
		if _, err := io.ReadFull(rng, buf[:]); err != nil {
			return AvalancheReport{}, fmt.Errorf("failed to read random input: %w", err)
		}
		var key, pt [16]byte
		copy(key[:], buf[:16])
		copy(pt[:], buf[16:])

		base := encrypt(pt, key)
		for bit := 0; bit < 128; bit++ {
			k := key
			k[bit/8] ^= 1 << (bit % 8)
			keyAcc.add(hammingDistance(base, encrypt(pt, k)))

			p := pt
			p[bit/8] ^= 1 << (bit % 8)
			ptAcc.add(hammingDistance(base, encrypt(p, key)))
		}
	}

	return AvalancheReport{
		Trials:    trials,
		Key:       keyAcc.stats(),
		Plaintext: ptAcc.stats(),
	}, nil
}

func hammingDistance(a, b [16]byte) int {
	return uint128.FromBytes(a[:]).Xor(uint128.FromBytes(b[:])).OnesCount()
}

type flipAccumulator struct {
	n, sum, above int
	min, max      int
}

func newFlipAccumulator() *flipAccumulator {
	return &flipAccumulator{min: math.MaxInt}
}

func (f *flipAccumulator) add(d int) {
	f.n++
	f.sum += d
	if d > 64 {
		f.above++
	}
	f.min = min(f.min, d)
	f.max = max(f.max, d)
}

func (f *flipAccumulator) stats() FlipStats {
	return FlipStats{
		Flips:     f.n,
		Mean:      float64(f.sum) / float64(f.n),
		Min:       f.min,
		Max:       f.max,
		AboveHalf: float64(f.above) / float64(f.n),
	}
}
