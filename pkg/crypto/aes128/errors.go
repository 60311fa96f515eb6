package aes128

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyLength is returned when a cipher key is not KeySize bytes
	// or an expanded key is not ExpandedKeySize bytes.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrInvalidBlockLength is returned when a block is not BlockSize bytes.
	ErrInvalidBlockLength = errors.New("invalid block length")
)

func keyLengthError(want, got int) error {
	return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeyLength, want, got)
}

func blockLengthError(got int) error {
	return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidBlockLength, BlockSize, got)
}
