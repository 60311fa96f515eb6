package aes128

import (
	"crypto/cipher"
	"fmt"

	"github.com/Davincible/aestiming/pkg/secure"
)

var _ cipher.Block = (*Cipher)(nil)

// Cipher is an AES-128 instance bound to one expanded key. It implements
// cipher.Block and is safe for concurrent use as long as Reset is not
// called concurrently.
type Cipher struct {
	mode   Mode
	tables *Tables
	xk     ExpandedKey
}

// NewCipher creates a table-mode Cipher for a 16 byte key.
func NewCipher(key []byte) (*Cipher, error) {
	return NewCipherWithMode(key, ModeTable)
}

// NewCipherWithMode creates a Cipher for a 16 byte key using mode.
func NewCipherWithMode(key []byte, mode Mode) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, keyLengthError(KeySize, len(key))
	}

	var k Key
	copy(k[:], key)
	defer secure.Zero(k[:])

	c := &Cipher{mode: mode}
	switch mode {
	case ModeTable:
		c.tables = DefaultTables()
		c.xk = Expand(c.tables, &k)
	case ModeConstantTime:
		c.xk = ExpandConstantTime(&k)
	default:
		return nil, fmt.Errorf("unsupported mode %s", mode)
	}

	return c, nil
}

// Mode reports the implementation used by c.
func (c *Cipher) Mode() Mode {
	return c.mode
}

// ExpandedKey returns a copy of the round keys.
func (c *Cipher) ExpandedKey() ExpandedKey {
	return c.xk
}

func (c *Cipher) BlockSize() int {
	return BlockSize
}

// Encrypt encrypts the first block of src into dst. Like every
// cipher.Block, it panics if either buffer is shorter than a block.
func (c *Cipher) Encrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("aes128: input not full block")
	}
	if len(dst) < BlockSize {
		panic("aes128: output not full block")
	}

	var state Block
	copy(state[:], src)
	if c.mode == ModeConstantTime {
		EncryptStateConstantTime(&state, &c.xk)
	} else {
		EncryptState(c.tables, &state, &c.xk)
	}
	copy(dst, state[:])
}

// Decrypt decrypts the first block of src into dst.
func (c *Cipher) Decrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("aes128: input not full block")
	}
	if len(dst) < BlockSize {
		panic("aes128: output not full block")
	}

	var state Block
	copy(state[:], src)
	if c.mode == ModeConstantTime {
		DecryptStateConstantTime(&state, &c.xk)
	} else {
		DecryptState(c.tables, &state, &c.xk)
	}
	copy(dst, state[:])
}

// Reset wipes the round keys. The Cipher must not be used afterwards.
func (c *Cipher) Reset() {
	secure.Zero(c.xk[:])
}
