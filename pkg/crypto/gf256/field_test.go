package gf256

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b byte
		want byte
	}{
		// FIPS-197 section 4.2
		{"57 x 83", 0x57, 0x83, 0xc1},
		{"57 x 13", 0x57, 0x13, 0xfe},
		{"57 x 02", 0x57, 0x02, 0xae},
		{"57 x 04", 0x57, 0x04, 0x47},
		{"57 x 08", 0x57, 0x08, 0x8e},
		{"57 x 10", 0x57, 0x10, 0x07},
		{"zero", 0x00, 0xff, 0x00},
		{"identity", 0xab, 0x01, 0xab},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mul(tt.a, tt.b))
			assert.Equal(t, tt.want, Mul(tt.b, tt.a))
			assert.Equal(t, tt.want, MulConstantTime(tt.a, tt.b))
		})
	}
}

func TestXtime(t *testing.T) {
	assert.Equal(t, byte(0xae), Xtime(0x57))
	assert.Equal(t, byte(0x47), Xtime(0xae))
	assert.Equal(t, byte(0x1b), Xtime(0x80))
}

func TestInverse(t *testing.T) {
	assert.Equal(t, byte(0), Inverse(0))
	assert.Equal(t, byte(0), InverseConstantTime(0))

	for a := 1; a < 256; a++ {
		inv := Inverse(byte(a))
		require.Equal(t, byte(1), Mul(byte(a), inv), "a=%#02x", a)
		require.Equal(t, inv, InverseConstantTime(byte(a)), "a=%#02x", a)
	}
}

func TestPow(t *testing.T) {
	assert.Equal(t, byte(1), Pow(0x53, 0))
	assert.Equal(t, byte(0), Pow(0, 5))
	assert.Equal(t, byte(0x80), Pow(2, 7))
	assert.Equal(t, byte(0x1b), Pow(2, 8))
	assert.Equal(t, byte(0x36), Pow(2, 9))
	assert.Equal(t, Inverse(2), Pow(2, -1))
	assert.Equal(t, byte(0x8d), Pow(2, -1))

	x := byte(1)
	for n := 0; n < 300; n++ {
		require.Equal(t, x, Pow(2, n), "n=%d", n)
		x = Xtime(x)
	}
}

func TestMulConstantTimeAgrees(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			if Mul(byte(a), byte(b)) != MulConstantTime(byte(a), byte(b)) {
				t.Fatalf("mismatch for %#02x * %#02x", a, b)
			}
		}
	}
}

func TestAdd(t *testing.T) {
	assert.Equal(t, byte(0xd4), Add(0x57, 0x83))
	assert.Equal(t, byte(0), Add(0x5a, 0x5a))
}

func BenchmarkMul(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Mul(byte(i), 0x0e)
	}
}

func BenchmarkMulConstantTime(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = MulConstantTime(byte(i), 0x0e)
	}
}
