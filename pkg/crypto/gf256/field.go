// Package gf256 implements arithmetic in GF(2^8) modulo the Rijndael
// irreducible polynomial x^8 + x^4 + x^3 + x + 1 (0x11B), as used by AES.
package gf256

const (
	// Rijndael polynomial: x^8 + x^4 + x^3 + x + 1
	Poly = 0x11B

	// generator of the multiplicative group under Poly
	generator = 3
)

// exp and log tables for exponentiation and inversion
var (
	expTable [256]byte
	logTable [256]byte
)

func init() {
	x := byte(1)
	for i := 0; i < 255; i++ {
		expTable[i] = x
		logTable[x] = byte(i)
		x = Mul(x, generator)
	}
	// Complete the cycle
	expTable[255] = expTable[0]
	// log(0) is undefined
	logTable[0] = 0
}

// Add performs addition in GF(256), which is XOR
func Add(a, b byte) byte {
	return a ^ b
}

// Xtime multiplies by x (2) in GF(256)
func Xtime(a byte) byte {
	if a&0x80 == 0 {
		return a << 1
	}
	return (a << 1) ^ byte(Poly&0xFF)
}

// Mul performs multiplication using the schoolbook method
func Mul(a, b byte) byte {
	result := byte(0)

	for b != 0 {
		if b&1 == 1 {
			result ^= a
		}
		a = Xtime(a)
		b >>= 1
	}

	return result
}

// Pow raises a to the power n in GF(256). Negative exponents are taken
// modulo the group order, so Pow(2, -1) is the inverse of 2.
func Pow(a byte, n int) byte {
	if n == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}

	e := (int(logTable[a]) * (n % 255)) % 255
	if e < 0 {
		e += 255
	}
	return expTable[e]
}

// Inverse finds the multiplicative inverse of a in GF(256).
// Zero has no inverse; it maps to zero as the AES S-box construction requires.
func Inverse(a byte) byte {
	if a == 0 {
		return 0
	}
	return expTable[255-int(logTable[a])]
}
