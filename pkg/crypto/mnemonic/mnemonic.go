// Package mnemonic encodes AES-128 keys as 12-word BIP-39 phrases and
// derives keys from passphrases.
package mnemonic

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/Davincible/aestiming/pkg/crypto/aes128"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// EntropyBits is the entropy of one AES-128 key phrase.
	EntropyBits = aes128.KeySize * 8

	// WordCount is the number of words in an AES-128 key phrase.
	WordCount = 12

	// DefaultIterations is the PBKDF2 iteration count of DeriveKey.
	DefaultIterations = 100000
)

type Mnemonic struct {
	words []string
}

// NewMnemonic generates a phrase for a fresh random key.
func NewMnemonic() (*Mnemonic, error) {
	entropy, err := bip39.NewEntropy(EntropyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}

	return FromEntropy(entropy)
}

// FromKey encodes key as a phrase.
func FromKey(key aes128.Key) (*Mnemonic, error) {
	return FromEntropy(key[:])
}

func FromEntropy(entropy []byte) (*Mnemonic, error) {
	if len(entropy) != aes128.KeySize {
		return nil, fmt.Errorf("entropy must be %d bytes, got %d", aes128.KeySize, len(entropy))
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic from entropy: %w", err)
	}

	return &Mnemonic{
		words: strings.Split(mnemonic, " "),
	}, nil
}

// FromWords parses a 12-word phrase, validating its checksum.
func FromWords(words string) (*Mnemonic, error) {
	list := strings.Fields(words)
	if len(list) != WordCount {
		return nil, fmt.Errorf("key phrase must have %d words (got %d)", WordCount, len(list))
	}

	joined := strings.Join(list, " ")
	if !bip39.IsMnemonicValid(joined) {
		return nil, fmt.Errorf("invalid mnemonic phrase")
	}

	return &Mnemonic{words: list}, nil
}

func (m *Mnemonic) Words() string {
	return strings.Join(m.words, " ")
}

func (m *Mnemonic) WordCount() int {
	return len(m.words)
}

// Key decodes the phrase back into the key it encodes.
func (m *Mnemonic) Key() (aes128.Key, error) {
	entropy, err := bip39.EntropyFromMnemonic(m.Words())
	if err != nil {
		return aes128.Key{}, fmt.Errorf("failed to get entropy from mnemonic: %w", err)
	}

	var key aes128.Key
	if len(entropy) != len(key) {
		return key, fmt.Errorf("mnemonic encodes %d bytes, expected %d", len(entropy), len(key))
	}
	copy(key[:], entropy)
	return key, nil
}

// DeriveKey stretches a passphrase into a key with PBKDF2-HMAC-SHA256. A
// non-positive iteration count selects DefaultIterations.
func DeriveKey(passphrase, salt []byte, iterations int) aes128.Key {
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	var key aes128.Key
	copy(key[:], pbkdf2.Key(passphrase, salt, iterations, aes128.KeySize, sha256.New))
	return key
}
