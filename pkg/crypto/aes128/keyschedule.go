package aes128

const (
	// words in the cipher key
	nk = KeySize / 4
	// words in the expanded key
	expandedWords = ExpandedKeySize / 4
)

// Expand derives the round keys of key. Round key 0 is key itself.
func Expand(t *Tables, key *Key) ExpandedKey {
	var xk ExpandedKey
	copy(xk[:KeySize], key[:])

	var temp [4]byte
	for i := nk; i < expandedWords; i++ {
		copy(temp[:], xk[(i-1)*4:i*4])

		if i%nk == 0 {
			expandCore(t, &temp, i/nk)
		}

		prev := xk[(i-nk)*4 : (i-nk+1)*4]
		word := xk[i*4 : (i+1)*4]
		for j := range word {
			word[j] = prev[j] ^ temp[j]
		}
	}

	return xk
}

// expandCore applies RotWord, SubWord and the round constant of iteration i.
func expandCore(t *Tables, w *[4]byte, i int) {
	w[0], w[1], w[2], w[3] = w[1], w[2], w[3], w[0]

	for j := range w {
		w[j] = t.SBox[w[j]]
	}

	w[0] ^= t.Rcon[i]
}

// ExpandKey derives the expanded key of a 16 byte cipher key.
func ExpandKey(key []byte) (ExpandedKey, error) {
	if len(key) != KeySize {
		return ExpandedKey{}, keyLengthError(KeySize, len(key))
	}

	var k Key
	copy(k[:], key)
	return Expand(DefaultTables(), &k), nil
}
