package storage

import (
	"crypto/cipher"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Davincible/aestiming/pkg/crypto/aes128"
	"github.com/Davincible/aestiming/pkg/crypto/mnemonic"
	"github.com/Davincible/aestiming/pkg/secure"
	"github.com/goccy/go-json"
)

const (
	SaltSize   = 32
	NonceSize  = 12
	Iterations = mnemonic.DefaultIterations

	keyFileVersion = 1
)

// KeyFile stores an AES-128 key sealed with AES-128-GCM under a
// passphrase-derived key. Sealing uses the constant-time cipher.
type KeyFile struct {
	filepath string
}

type sealedKey struct {
	Version    int    `json:"version"`
	Iterations int    `json:"iterations"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

func NewKeyFile(filepath string) *KeyFile {
	return &KeyFile{
		filepath: filepath,
	}
}

func (k *KeyFile) Path() string {
	return k.filepath
}

func (k *KeyFile) Save(key aes128.Key, passphrase []byte) error {
	return k.save(key, passphrase, Iterations)
}

func (k *KeyFile) save(key aes128.Key, passphrase []byte, iterations int) error {
	if len(passphrase) == 0 {
		return fmt.Errorf("passphrase cannot be empty")
	}

	salt, err := secure.Random(SaltSize)
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt, iterations)
	if err != nil {
		return err
	}

	nonce, err := secure.Random(NonceSize)
	if err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := sealedKey{
		Version:    keyFileVersion,
		Iterations: iterations,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, key[:], nil),
	}

	jsonData, err := json.Marshal(sealed)
	if err != nil {
		return fmt.Errorf("failed to marshal key file: %w", err)
	}

	dir := filepath.Dir(k.filepath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(k.filepath, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (k *KeyFile) Load(passphrase []byte) (aes128.Key, error) {
	var key aes128.Key
	if len(passphrase) == 0 {
		return key, fmt.Errorf("passphrase cannot be empty")
	}

	jsonData, err := os.ReadFile(k.filepath)
	if err != nil {
		return key, fmt.Errorf("failed to read file: %w", err)
	}

	var sealed sealedKey
	if err := json.Unmarshal(jsonData, &sealed); err != nil {
		return key, fmt.Errorf("failed to unmarshal key file: %w", err)
	}
	if sealed.Version != keyFileVersion {
		return key, fmt.Errorf("unsupported key file version %d", sealed.Version)
	}
	if len(sealed.Nonce) != NonceSize {
		return key, fmt.Errorf("invalid nonce length %d", len(sealed.Nonce))
	}

	gcm, err := newGCM(passphrase, sealed.Salt, sealed.Iterations)
	if err != nil {
		return key, err
	}

	plaintext, err := gcm.Open(nil, sealed.Nonce, sealed.Ciphertext, nil)
	if err != nil {
		return key, fmt.Errorf("failed to decrypt: %w", err)
	}
	defer secure.Zero(plaintext)

	if len(plaintext) != len(key) {
		return key, fmt.Errorf("key file holds %d bytes, expected %d", len(plaintext), len(key))
	}
	copy(key[:], plaintext)
	return key, nil
}

func (k *KeyFile) Exists() bool {
	_, err := os.Stat(k.filepath)
	return err == nil
}

// Delete overwrites the file with random bytes before removing it.
func (k *KeyFile) Delete() error {
	if !k.Exists() {
		return nil
	}

	data, err := os.ReadFile(k.filepath)
	if err != nil {
		return fmt.Errorf("failed to read file for secure deletion: %w", err)
	}

	noise, err := secure.Random(len(data))
	if err != nil {
		return fmt.Errorf("failed to overwrite file: %w", err)
	}

	if err := os.WriteFile(k.filepath, noise, 0600); err != nil {
		return fmt.Errorf("failed to overwrite file: %w", err)
	}

	return os.Remove(k.filepath)
}

func newGCM(passphrase, salt []byte, iterations int) (cipher.AEAD, error) {
	kek := mnemonic.DeriveKey(passphrase, salt, iterations)
	defer secure.Zero(kek[:])

	block, err := aes128.NewCipherWithMode(kek[:], aes128.ModeConstantTime)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
