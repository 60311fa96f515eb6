package aes128

import (
	"math/bits"

	"github.com/Davincible/aestiming/pkg/crypto/gf256"
)

// The constant-time path computes every substitution and mix arithmetically.
// No memory access is indexed by key or state bytes.

func sboxConstantTime(b byte) byte {
	return affine(gf256.InverseConstantTime(b))
}

func invSboxConstantTime(b byte) byte {
	// inverse affine transformation of FIPS-197 section 5.3.2
	x := bits.RotateLeft8(b, 1) ^ bits.RotateLeft8(b, 3) ^ bits.RotateLeft8(b, 6) ^ 0x05
	return gf256.InverseConstantTime(x)
}

func xtimeConstantTime(a byte) byte {
	return (a << 1) ^ (0x1B & -(a >> 7))
}

// ExpandConstantTime is Expand without table lookups.
func ExpandConstantTime(key *Key) ExpandedKey {
	var xk ExpandedKey
	copy(xk[:KeySize], key[:])

	rcon := byte(1)
	var temp [4]byte
	for i := nk; i < expandedWords; i++ {
		copy(temp[:], xk[(i-1)*4:i*4])

		if i%nk == 0 {
			temp[0], temp[1], temp[2], temp[3] = temp[1], temp[2], temp[3], temp[0]
			for j := range temp {
				temp[j] = sboxConstantTime(temp[j])
			}
			temp[0] ^= rcon
			rcon = xtimeConstantTime(rcon)
		}

		prev := xk[(i-nk)*4 : (i-nk+1)*4]
		word := xk[i*4 : (i+1)*4]
		for j := range word {
			word[j] = prev[j] ^ temp[j]
		}
	}

	return xk
}

// EncryptStateConstantTime is EncryptState without table lookups.
func EncryptStateConstantTime(state *Block, xk *ExpandedKey) {
	addRoundKey(state, xk, 0)

	for r := 1; r <= Rounds; r++ {
		for i, b := range state {
			state[i] = sboxConstantTime(b)
		}
		shiftRows(state)
		if r != Rounds {
			mixColumnsConstantTime(state)
		}
		addRoundKey(state, xk, r)
	}
}

// DecryptStateConstantTime is DecryptState without table lookups.
func DecryptStateConstantTime(state *Block, xk *ExpandedKey) {
	addRoundKey(state, xk, Rounds)

	for r := Rounds - 1; r >= 0; r-- {
		invShiftRows(state)
		for i, b := range state {
			state[i] = invSboxConstantTime(b)
		}
		addRoundKey(state, xk, r)
		if r != 0 {
			invMixColumnsConstantTime(state)
		}
	}
}

func mixColumnsConstantTime(s *Block) {
	for c := 0; c < BlockSize; c += 4 {
		c0, c1, c2, c3 := s[c], s[c+1], s[c+2], s[c+3]
		all := c0 ^ c1 ^ c2 ^ c3

		// 2a ^ 3b ^ c ^ d == a ^ all ^ 2(a ^ b)
		s[c] = c0 ^ all ^ xtimeConstantTime(c0^c1)
		s[c+1] = c1 ^ all ^ xtimeConstantTime(c1^c2)
		s[c+2] = c2 ^ all ^ xtimeConstantTime(c2^c3)
		s[c+3] = c3 ^ all ^ xtimeConstantTime(c3^c0)
	}
}

func invMixColumnsConstantTime(s *Block) {
	for c := 0; c < BlockSize; c += 4 {
		c0, c1, c2, c3 := s[c], s[c+1], s[c+2], s[c+3]

		// The inverse matrix factors into MixColumns after multiplying rows
		// 0/2 by 4(c0^c2) and rows 1/3 by 4(c1^c3).
		u := xtimeConstantTime(xtimeConstantTime(c0 ^ c2))
		v := xtimeConstantTime(xtimeConstantTime(c1 ^ c3))
		s[c] = c0 ^ u
		s[c+1] = c1 ^ v
		s[c+2] = c2 ^ u
		s[c+3] = c3 ^ v
	}
	mixColumnsConstantTime(s)
}
