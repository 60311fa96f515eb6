package gf256

// The functions below never branch on or index memory with their operands.

// MulConstantTime multiplies a and b without data-dependent branches.
func MulConstantTime(a, b byte) byte {
	var result byte
	for i := 0; i < 8; i++ {
		// 0xFF when the low bit of b is set, 0x00 otherwise
		mask := -(b & 1)
		result ^= a & mask

		carry := -(a >> 7)
		a = (a << 1) ^ (0x1B & carry)
		b >>= 1
	}
	return result
}

// InverseConstantTime computes a^254, which is the inverse of a for a != 0
// and 0 for a == 0.
func InverseConstantTime(a byte) byte {
	// 254 = 0b11111110: square-and-multiply over a fixed addition chain
	a2 := MulConstantTime(a, a)
	result := a2
	sq := a2
	for i := 0; i < 6; i++ {
		sq = MulConstantTime(sq, sq)
		result = MulConstantTime(result, sq)
	}
	return result
}
