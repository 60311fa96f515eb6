package aes128

// EncryptState encrypts state in place with the expanded key xk.
func EncryptState(t *Tables, state *Block, xk *ExpandedKey) {
	addRoundKey(state, xk, 0)

	for r := 1; r < Rounds; r++ {
		subBytes(t, state)
		shiftRows(state)
		mixColumns(t, state)
		addRoundKey(state, xk, r)
	}

	subBytes(t, state)
	shiftRows(state)
	addRoundKey(state, xk, Rounds)
}

// EncryptBlock encrypts a 16 byte plaintext with a 176 byte expanded key.
func EncryptBlock(plaintext, expandedKey []byte) ([BlockSize]byte, error) {
	state, xk, err := loadBlock(plaintext, expandedKey)
	if err != nil {
		return [BlockSize]byte{}, err
	}

	EncryptState(DefaultTables(), &state, &xk)
	return state, nil
}

func loadBlock(block, expandedKey []byte) (Block, ExpandedKey, error) {
	var (
		state Block
		xk    ExpandedKey
	)

	if len(block) != BlockSize {
		return state, xk, blockLengthError(len(block))
	}
	if len(expandedKey) != ExpandedKeySize {
		return state, xk, keyLengthError(ExpandedKeySize, len(expandedKey))
	}

	copy(state[:], block)
	copy(xk[:], expandedKey)
	return state, xk, nil
}

func subBytes(t *Tables, state *Block) {
	for i, b := range state {
		state[i] = t.SBox[b]
	}
}

// shiftRows rotates row r left by r positions.
func shiftRows(s *Block) {
	s[1], s[5], s[9], s[13] = s[5], s[9], s[13], s[1]
	s[2], s[6], s[10], s[14] = s[10], s[14], s[2], s[6]
	s[3], s[7], s[11], s[15] = s[15], s[3], s[7], s[11]
}

func mixColumns(t *Tables, s *Block) {
	for c := 0; c < BlockSize; c += 4 {
		c0, c1, c2, c3 := s[c], s[c+1], s[c+2], s[c+3]

		s[c] = t.Mul2[c0] ^ t.Mul3[c1] ^ c2 ^ c3
		s[c+1] = c0 ^ t.Mul2[c1] ^ t.Mul3[c2] ^ c3
		s[c+2] = c0 ^ c1 ^ t.Mul2[c2] ^ t.Mul3[c3]
		s[c+3] = t.Mul3[c0] ^ c1 ^ c2 ^ t.Mul2[c3]
	}
}
