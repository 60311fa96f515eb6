package aes128

import (
	"math/bits"
	"sync"

	"github.com/Davincible/aestiming/pkg/crypto/gf256"
)

// Tables holds the lookup tables used by the table-driven cipher. A Tables
// value is never modified after GenerateTables returns it.
type Tables struct {
	SBox    [256]byte
	InvSBox [256]byte
	// Rcon[i] is 2^(i-1) in GF(2^8); Rcon[0] is unused and zero.
	Rcon  [256]byte
	Mul2  [256]byte
	Mul3  [256]byte
	Mul9  [256]byte
	Mul11 [256]byte
	Mul13 [256]byte
	Mul14 [256]byte
}

var defaultTables = sync.OnceValue(GenerateTables)

// DefaultTables returns the process-wide tables, generating them on first
// use. It is safe to call from multiple goroutines.
func DefaultTables() *Tables {
	return defaultTables()
}

// GenerateTables computes every table from the field arithmetic of package
// gf256. The result is identical on every call.
func GenerateTables() *Tables {
	t := new(Tables)

	for i := 0; i < 256; i++ {
		x := byte(i)
		s := affine(gf256.Inverse(x))
		t.SBox[i] = s
		t.InvSBox[s] = x

		t.Mul2[i] = gf256.Mul(x, 2)
		t.Mul3[i] = gf256.Mul(x, 3)
		t.Mul9[i] = gf256.Mul(x, 9)
		t.Mul11[i] = gf256.Mul(x, 11)
		t.Mul13[i] = gf256.Mul(x, 13)
		t.Mul14[i] = gf256.Mul(x, 14)
	}

	for i := 1; i < 256; i++ {
		t.Rcon[i] = gf256.Pow(2, i-1)
	}

	return t
}

// affine applies the S-box affine transformation of FIPS-197 section 5.1.1.
func affine(b byte) byte {
	return b ^ bits.RotateLeft8(b, 1) ^ bits.RotateLeft8(b, 2) ^ bits.RotateLeft8(b, 3) ^ bits.RotateLeft8(b, 4) ^ 0x63
}
