// Package aes128 implements the AES-128 block cipher of FIPS-197 using
// table-driven substitution and GF(2^8) multiplication tables.
//
// The default table mode indexes its lookup tables with secret-dependent
// bytes. Its execution time therefore depends on the key and the data,
// which is the behavior the timing harness in pkg/timing measures. An
// arithmetic implementation without secret-indexed lookups is available
// through ModeConstantTime.
package aes128

const (
	// BlockSize is the AES block size in bytes.
	BlockSize = 16

	// KeySize is the AES-128 cipher key size in bytes.
	KeySize = 16

	// Rounds is the number of AES-128 rounds.
	Rounds = 10

	// ExpandedKeySize is the size of the 11 round keys in bytes.
	ExpandedKeySize = BlockSize * (Rounds + 1)
)

// Block is a cipher state: a 4x4 byte matrix stored column-major, so byte
// i belongs to column i/4 and row i%4.
type Block [BlockSize]byte

// Key is an AES-128 cipher key.
type Key [KeySize]byte

// ExpandedKey holds the 11 round keys derived from a Key, concatenated.
type ExpandedKey [ExpandedKeySize]byte

// RoundKey returns round key r, 0 <= r <= Rounds.
func (xk *ExpandedKey) RoundKey(r int) [BlockSize]byte {
	var rk [BlockSize]byte
	copy(rk[:], xk[r*BlockSize:(r+1)*BlockSize])
	return rk
}

func addRoundKey(state *Block, xk *ExpandedKey, r int) {
	rk := xk[r*BlockSize : (r+1)*BlockSize]
	for i := range state {
		state[i] ^= rk[i]
	}
}

// Encrypt expands key and encrypts one block under it. The key is
// expanded on every call, so the measured duration covers the key schedule
// and the block transform.
func Encrypt(plaintext, key [BlockSize]byte) [BlockSize]byte {
	t := DefaultTables()
	k := Key(key)
	xk := Expand(t, &k)
	state := Block(plaintext)
	EncryptState(t, &state, &xk)
	return state
}

// Decrypt is the inverse of Encrypt.
func Decrypt(ciphertext, key [BlockSize]byte) [BlockSize]byte {
	t := DefaultTables()
	k := Key(key)
	xk := Expand(t, &k)
	state := Block(ciphertext)
	DecryptState(t, &state, &xk)
	return state
}
