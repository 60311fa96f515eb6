package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/Davincible/aestiming/internal/validation"
	"github.com/Davincible/aestiming/pkg/crypto/aes128"
	"github.com/Davincible/aestiming/pkg/crypto/mnemonic"
	"github.com/Davincible/aestiming/pkg/secure"
	"github.com/Davincible/aestiming/pkg/storage"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var stdinReader = bufio.NewReader(os.Stdin)

// readPassphrase reads a passphrase from the terminal
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		passBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(passBytes), nil
	}

	// Fallback for non-terminal
	pass, err := stdinReader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(pass), nil
}

// keySource collects the mutually exclusive ways to supply a key.
type keySource struct {
	hex     string
	words   string
	keyfile string
}

func (ks *keySource) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ks.hex, "key", "k", "", "Key as 32 hex characters")
	cmd.Flags().StringVar(&ks.words, "mnemonic", "", "Key as a 12-word mnemonic")
	cmd.Flags().StringVar(&ks.keyfile, "keyfile", "", "Passphrase-protected key file written by keygen --save")
}

func (ks *keySource) resolve() (aes128.Key, error) {
	set := 0
	for _, v := range []string{ks.hex, ks.words, ks.keyfile} {
		if v != "" {
			set++
		}
	}

	switch {
	case set > 1:
		return aes128.Key{}, fmt.Errorf("use only one of --key, --mnemonic or --keyfile")
	case ks.words != "":
		m, err := mnemonic.FromWords(ks.words)
		if err != nil {
			return aes128.Key{}, fmt.Errorf("invalid mnemonic: %w", err)
		}
		return m.Key()
	case ks.keyfile != "":
		passphrase, err := readPassphrase("Enter key file passphrase: ")
		if err != nil {
			return aes128.Key{}, fmt.Errorf("failed to read passphrase: %w", err)
		}
		pass := []byte(passphrase)
		defer secure.Zero(pass)
		return storage.NewKeyFile(ks.keyfile).Load(pass)
	case ks.hex != "":
		b, err := validation.DecodeBlock(ks.hex)
		if err != nil {
			return aes128.Key{}, fmt.Errorf("invalid key: %w", err)
		}
		return aes128.Key(b), nil
	default:
		return aes128.Key{}, fmt.Errorf("a key is required (--key, --mnemonic or --keyfile)")
	}
}

func jsonOutput(cmd *cobra.Command) bool {
	outputJSON, _ := cmd.Flags().GetBool("json")
	return outputJSON
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
