package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHex(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{"valid lower", "00ff", false},
		{"valid upper", "ABCD", false},
		{"empty", "", true},
		{"odd length", "abc", true},
		{"non hex", "zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHex(tt.input)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeBlock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"plain", "000102030405060708090a0b0c0d0e0f", ""},
		{"prefixed", "0x000102030405060708090a0b0c0d0e0f", ""},
		{"spaced", "00010203 04050607 08090a0b 0c0d0e0f", ""},
		{"short", "0001020304050607", "expected 16 bytes"},
		{"long", strings.Repeat("00", 17), "expected 16 bytes"},
		{"bad chars", strings.Repeat("g0", 16), "invalid hex characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBlock(tt.input)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for i, b := range got {
				assert.Equal(t, byte(i), b)
			}
		})
	}
}

func TestValidatePassphrase(t *testing.T) {
	assert.NoError(t, ValidatePassphrase("my_secure_password"))
	assert.Error(t, ValidatePassphrase(""))
	assert.Error(t, ValidatePassphrase(strings.Repeat("a", 257)))
	assert.Error(t, ValidatePassphrase("nul\x00byte"))
}
