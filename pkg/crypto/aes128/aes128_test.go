package aes128

import (
	"bytes"
	"crypto/aes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	fasthex "github.com/tmthrgd/go-hex"
	"pgregory.net/rapid"
)

func mustHex16(t testing.TB, s string) [16]byte {
	t.Helper()
	b, err := fasthex.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, b, 16)
	var out [16]byte
	copy(out[:], b)
	return out
}

var knownAnswers = []struct {
	name string
	key  string
	pt   string
	ct   string
}{
	{
		name: "FIPS-197 C.1",
		key:  "000102030405060708090a0b0c0d0e0f",
		pt:   "00112233445566778899aabbccddeeff",
		ct:   "69c4e0d86a7b0430d8cdb78070b4c55a",
	},
	{
		name: "all zero",
		key:  "00000000000000000000000000000000",
		pt:   "00000000000000000000000000000000",
		ct:   "66e94bd4ef8a2c3b884cfa59ca342b2e",
	},
	{
		name: "FIPS-197 appendix B",
		key:  "2b7e151628aed2a6abf7158809cf4f3c",
		pt:   "3243f6a8885a308d313198a2e0370734",
		ct:   "3925841d02dc09fbdc118597196a0b32",
	},
	{
		name: "SP 800-38A F.1.1 block 2",
		key:  "2b7e151628aed2a6abf7158809cf4f3c",
		pt:   "ae2d8a571e03ac9c9eb76fac45af8e51",
		ct:   "f5d3d58503b9699de785895a96fdbaaf",
	},
}

func TestKnownAnswers(t *testing.T) {
	for _, tt := range knownAnswers {
		t.Run(tt.name, func(t *testing.T) {
			key := mustHex16(t, tt.key)
			pt := mustHex16(t, tt.pt)
			want := mustHex16(t, tt.ct)

			assert.Equal(t, want, Encrypt(pt, key))
			assert.Equal(t, pt, Decrypt(want, key))
			assert.Equal(t, want, EncryptFunc(ModeConstantTime)(pt, key))

			xk, err := ExpandKey(key[:])
			require.NoError(t, err)

			ct, err := EncryptBlock(pt[:], xk[:])
			require.NoError(t, err)
			assert.Equal(t, want, ct)

			back, err := DecryptBlock(ct[:], xk[:])
			require.NoError(t, err)
			assert.Equal(t, pt, back)
		})
	}
}

func TestExpandKeyFIPS197(t *testing.T) {
	key := mustHex16(t, "2b7e151628aed2a6abf7158809cf4f3c")
	xk, err := ExpandKey(key[:])
	require.NoError(t, err)

	// FIPS-197 appendix A.1
	assert.Equal(t, key, xk.RoundKey(0))
	assert.Equal(t, mustHex16(t, "a0fafe1788542cb123a339392a6c7605"), xk.RoundKey(1))
	assert.Equal(t, mustHex16(t, "f2c295f27a96b9435935807a7359f67f"), xk.RoundKey(2))
	assert.Equal(t, mustHex16(t, "d014f9a8c9ee2589e13f0cc8b6630ca6"), xk.RoundKey(Rounds))

	k := Key(key)
	assert.Equal(t, xk, ExpandConstantTime(&k))
}

func TestExpandKeyDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "key")

		a, err := ExpandKey(key)
		if err != nil {
			t.Fatalf("expand: %v", err)
		}
		b, _ := ExpandKey(key)
		if a != b {
			t.Fatalf("expansion differs between calls")
		}

		rk0 := a.RoundKey(0)
		if !bytes.Equal(rk0[:], key) {
			t.Fatalf("round key 0 %x != key %x", rk0, key)
		}
	})
}

func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var key, pt [16]byte
		copy(key[:], rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, "key"))
		copy(pt[:], rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, "plaintext"))

		ct := Encrypt(pt, key)
		if got := Decrypt(ct, key); got != pt {
			t.Fatalf("decrypt(encrypt(%x)) = %x", pt, got)
		}
	})
}

func TestMatchesStandardLibrary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, "key")
		pt := rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, "plaintext")

		ref, err := aes.NewCipher(key)
		if err != nil {
			t.Fatalf("crypto/aes: %v", err)
		}
		want := make([]byte, 16)
		ref.Encrypt(want, pt)

		for _, mode := range []Mode{ModeTable, ModeConstantTime} {
			c, err := NewCipherWithMode(key, mode)
			if err != nil {
				t.Fatalf("new cipher: %v", err)
			}
			got := make([]byte, 16)
			c.Encrypt(got, pt)
			if !bytes.Equal(got, want) {
				t.Fatalf("%s: got %x, want %x", mode, got, want)
			}

			back := make([]byte, 16)
			c.Decrypt(back, got)
			if !bytes.Equal(back, pt) {
				t.Fatalf("%s: decrypt got %x, want %x", mode, back, pt)
			}
		}
	})
}

func TestLengthErrors(t *testing.T) {
	xk, err := ExpandKey(make([]byte, KeySize))
	require.NoError(t, err)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"expand short key", func() error { _, err := ExpandKey(make([]byte, 15)); return err }, ErrInvalidKeyLength},
		{"expand long key", func() error { _, err := ExpandKey(make([]byte, 17)); return err }, ErrInvalidKeyLength},
		{"expand AES-256 key", func() error { _, err := ExpandKey(make([]byte, 32)); return err }, ErrInvalidKeyLength},
		{"expand nil key", func() error { _, err := ExpandKey(nil); return err }, ErrInvalidKeyLength},
		{"encrypt short block", func() error { _, err := EncryptBlock(make([]byte, 15), xk[:]); return err }, ErrInvalidBlockLength},
		{"encrypt long block", func() error { _, err := EncryptBlock(make([]byte, 32), xk[:]); return err }, ErrInvalidBlockLength},
		{"encrypt short expanded key", func() error { _, err := EncryptBlock(make([]byte, 16), xk[:175]); return err }, ErrInvalidKeyLength},
		{"encrypt cipher key as expanded key", func() error { _, err := EncryptBlock(make([]byte, 16), make([]byte, 16)); return err }, ErrInvalidKeyLength},
		{"decrypt short block", func() error { _, err := DecryptBlock(make([]byte, 0), xk[:]); return err }, ErrInvalidBlockLength},
		{"decrypt long expanded key", func() error { _, err := DecryptBlock(make([]byte, 16), make([]byte, 177)); return err }, ErrInvalidKeyLength},
		{"cipher short key", func() error { _, err := NewCipher(make([]byte, 8)); return err }, ErrInvalidKeyLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCipherBlock(t *testing.T) {
	key := mustHex16(t, "000102030405060708090a0b0c0d0e0f")
	pt := mustHex16(t, "00112233445566778899aabbccddeeff")

	c, err := NewCipher(key[:])
	require.NoError(t, err)
	assert.Equal(t, BlockSize, c.BlockSize())
	assert.Equal(t, ModeTable, c.Mode())

	dst := make([]byte, 16)
	c.Encrypt(dst, pt[:])
	assert.Equal(t, "69c4e0d86a7b0430d8cdb78070b4c55a", fasthex.EncodeToString(dst))

	// in place
	buf := pt
	c.Encrypt(buf[:], buf[:])
	assert.Equal(t, dst, buf[:])

	assert.Panics(t, func() { c.Encrypt(make([]byte, 15), pt[:]) })
	assert.Panics(t, func() { c.Decrypt(dst, pt[:8]) })

	c.Reset()
	assert.Equal(t, ExpandedKey{}, c.ExpandedKey())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"table", ModeTable, false},
		{"", ModeTable, false},
		{"constant-time", ModeConstantTime, false},
		{"CT", ModeConstantTime, false},
		{"bitsliced", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
			assert.Equal(t, tt.want, must(ParseMode(m.String())))
		})
	}

	assert.Equal(t, "Mode(7)", Mode(7).String())
	_, err := NewCipherWithMode(make([]byte, 16), Mode(7))
	assert.Error(t, err)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestDefaultTablesConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	got := make([]*Tables, 32)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = DefaultTables()
		}(i)
	}
	wg.Wait()

	for _, tbl := range got {
		assert.Same(t, got[0], tbl)
	}
}

func BenchmarkEncrypt(b *testing.B) {
	var key, pt [16]byte
	for i := 0; i < b.N; i++ {
		pt = Encrypt(pt, key)
	}
}

func BenchmarkEncryptState(b *testing.B) {
	t := DefaultTables()
	var key Key
	xk := Expand(t, &key)
	var state Block

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncryptState(t, &state, &xk)
	}
}

func BenchmarkEncryptStateConstantTime(b *testing.B) {
	var key Key
	xk := ExpandConstantTime(&key)
	var state Block

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncryptStateConstantTime(&state, &xk)
	}
}

func BenchmarkDecryptState(b *testing.B) {
	t := DefaultTables()
	var key Key
	xk := Expand(t, &key)
	var state Block

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DecryptState(t, &state, &xk)
	}
}
