package aes128

import (
	"fmt"
	"strings"
)

// Mode selects the implementation behind a Cipher or an EncryptFunc.
type Mode int

const (
	// ModeTable uses the lookup tables indexed by secret bytes.
	ModeTable Mode = iota

	// ModeConstantTime computes S-box and MixColumns arithmetically.
	ModeConstantTime
)

func (m Mode) String() string {
	switch m {
	case ModeTable:
		return "table"
	case ModeConstantTime:
		return "constant-time"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses the String form of a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return ModeTable, nil
	case "constant-time", "ct":
		return ModeConstantTime, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (expected table or constant-time)", s)
	}
}

// EncryptFunc returns the single-call encryption entry point of mode: the
// key is expanded and the block encrypted on every call.
func EncryptFunc(mode Mode) func(plaintext, key [BlockSize]byte) [BlockSize]byte {
	if mode == ModeConstantTime {
		return encryptConstantTime
	}
	return Encrypt
}

func encryptConstantTime(plaintext, key [BlockSize]byte) [BlockSize]byte {
	k := Key(key)
	xk := ExpandConstantTime(&k)
	state := Block(plaintext)
	EncryptStateConstantTime(&state, &xk)
	return state
}
