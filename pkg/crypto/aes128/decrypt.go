package aes128

// DecryptState decrypts state in place with the expanded key xk, using the
// round keys in reverse order.
func DecryptState(t *Tables, state *Block, xk *ExpandedKey) {
	addRoundKey(state, xk, Rounds)

	for r := Rounds - 1; r > 0; r-- {
		invShiftRows(state)
		invSubBytes(t, state)
		addRoundKey(state, xk, r)
		invMixColumns(t, state)
	}

	invShiftRows(state)
	invSubBytes(t, state)
	addRoundKey(state, xk, 0)
}

// DecryptBlock decrypts a 16 byte ciphertext with a 176 byte expanded key.
func DecryptBlock(ciphertext, expandedKey []byte) ([BlockSize]byte, error) {
	state, xk, err := loadBlock(ciphertext, expandedKey)
	if err != nil {
		return [BlockSize]byte{}, err
	}

	DecryptState(DefaultTables(), &state, &xk)
	return state, nil
}

func invSubBytes(t *Tables, state *Block) {
	for i, b := range state {
		state[i] = t.InvSBox[b]
	}
}

// invShiftRows rotates row r right by r positions.
func invShiftRows(s *Block) {
	s[1], s[5], s[9], s[13] = s[13], s[1], s[5], s[9]
	s[2], s[6], s[10], s[14] = s[10], s[14], s[2], s[6]
	s[3], s[7], s[11], s[15] = s[7], s[11], s[15], s[3]
}

func invMixColumns(t *Tables, s *Block) {
	for c := 0; c < BlockSize; c += 4 {
		c0, c1, c2, c3 := s[c], s[c+1], s[c+2], s[c+3]

		s[c] = t.Mul14[c0] ^ t.Mul11[c1] ^ t.Mul13[c2] ^ t.Mul9[c3]
		s[c+1] = t.Mul9[c0] ^ t.Mul14[c1] ^ t.Mul11[c2] ^ t.Mul13[c3]
		s[c+2] = t.Mul13[c0] ^ t.Mul9[c1] ^ t.Mul14[c2] ^ t.Mul11[c3]
		s[c+3] = t.Mul11[c0] ^ t.Mul13[c1] ^ t.Mul9[c2] ^ t.Mul14[c3]
	}
}
