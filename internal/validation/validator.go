package validation

import (
	"fmt"
	"regexp"
	"strings"

	fasthex "github.com/tmthrgd/go-hex"
)

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

func ValidateHex(input string) error {
	input = strings.TrimSpace(input)
	if len(input) == 0 {
		return fmt.Errorf("hex string cannot be empty")
	}

	if len(input)%2 != 0 {
		return fmt.Errorf("hex string must have even length")
	}

	if !hexPattern.MatchString(input) {
		return fmt.Errorf("invalid hex characters")
	}

	return nil
}

// DecodeHex decodes input, which may carry a 0x prefix and embedded
// spaces, and requires exactly size bytes.
func DecodeHex(input string, size int) ([]byte, error) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "0x")
	input = strings.ReplaceAll(input, " ", "")

	if err := ValidateHex(input); err != nil {
		return nil, err
	}

	data, err := fasthex.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex: %w", err)
	}

	if len(data) != size {
		return nil, fmt.Errorf("expected %d bytes (%d hex characters), got %d bytes", size, size*2, len(data))
	}

	return data, nil
}

// DecodeBlock decodes a 16 byte hex value.
func DecodeBlock(input string) ([16]byte, error) {
	var out [16]byte
	data, err := DecodeHex(input, len(out))
	if err != nil {
		return out, err
	}
	copy(out[:], data)
	return out, nil
}

func ValidatePassphrase(passphrase string) error {
	if len(passphrase) == 0 {
		return fmt.Errorf("passphrase cannot be empty")
	}

	if len(passphrase) > 256 {
		return fmt.Errorf("passphrase too long (max 256 characters)")
	}

	for i, ch := range passphrase {
		if ch == 0 {
			return fmt.Errorf("passphrase contains null character at position %d", i)
		}
	}

	return nil
}
