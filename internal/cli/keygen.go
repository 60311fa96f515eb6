package cli

import (
	"fmt"

	"github.com/Davincible/aestiming/internal/validation"
	"github.com/Davincible/aestiming/pkg/crypto/aes128"
	"github.com/Davincible/aestiming/pkg/crypto/mnemonic"
	"github.com/Davincible/aestiming/pkg/secure"
	"github.com/Davincible/aestiming/pkg/storage"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	fasthex "github.com/tmthrgd/go-hex"
)

type keygenResult struct {
	Key        string `json:"key"`
	Mnemonic   string `json:"mnemonic"`
	Salt       string `json:"salt,omitempty"`
	Iterations int    `json:"iterations,omitempty"`
	Source     string `json:"source"`
	KeyFile    string `json:"key_file,omitempty"`
}

func NewKeygenCommand() *cobra.Command {
	var (
		usePassphrase bool
		saltHex       string
		iterations    int
		words         string
		savePath      string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an AES-128 key and its 12-word phrase",
		Long: `Generate a random 128-bit key, derive one from a passphrase with
PBKDF2-SHA256, or recover one from an existing 12-word phrase.

Examples:
  aestiming keygen
  aestiming keygen --passphrase --salt 000102030405060708090a0b0c0d0e0f
  aestiming keygen --mnemonic "abandon abandon ... about"
  aestiming keygen --save ~/.config/aestiming/key.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				key aes128.Key
				res keygenResult
			)

			switch {
			case words != "" && usePassphrase:
				return fmt.Errorf("use either --passphrase or --mnemonic, not both")

			case words != "":
				m, err := mnemonic.FromWords(words)
				if err != nil {
					return fmt.Errorf("invalid mnemonic: %w", err)
				}
				if key, err = m.Key(); err != nil {
					return err
				}
				res.Source = "mnemonic"

			case usePassphrase:
				passphrase, err := readPassphrase("Enter passphrase: ")
				if err != nil {
					return fmt.Errorf("failed to read passphrase: %w", err)
				}
				if err := validation.ValidatePassphrase(passphrase); err != nil {
					return err
				}

				salt, err := resolveSalt(saltHex)
				if err != nil {
					return err
				}

				pass := []byte(passphrase)
				key = mnemonic.DeriveKey(pass, salt, iterations)
				secure.Zero(pass)

				res.Salt = fasthex.EncodeToString(salt)
				res.Iterations = iterations
				res.Source = "passphrase"

			default:
				raw, err := secure.Random(aes128.KeySize)
				if err != nil {
					return fmt.Errorf("failed to generate key: %w", err)
				}
				copy(key[:], raw)
				secure.Zero(raw)
				res.Source = "random"
			}

			m, err := mnemonic.FromKey(key)
			if err != nil {
				return err
			}
			res.Key = fasthex.EncodeToString(key[:])
			res.Mnemonic = m.Words()

			if savePath != "" {
				if err := saveKeyFile(savePath, key); err != nil {
					secure.Zero(key[:])
					return err
				}
				res.KeyFile = savePath
			}
			secure.Zero(key[:])

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return writeJSON(out, res)
			}

			green := color.New(color.FgGreen, color.Bold)
			yellow := color.New(color.FgYellow)

			green.Fprintln(out, "✓ Key generated")
			fmt.Fprintf(out, "  Key:      %s\n", res.Key)
			fmt.Fprintf(out, "  Mnemonic: %s\n", res.Mnemonic)
			if res.Salt != "" {
				fmt.Fprintf(out, "  Salt:     %s\n", res.Salt)
				fmt.Fprintf(out, "  PBKDF2:   %d iterations\n", res.Iterations)
			}
			if res.KeyFile != "" {
				fmt.Fprintf(out, "  Saved to: %s\n", res.KeyFile)
			}
			fmt.Fprintln(out)
			yellow.Fprintln(out, "Keep the key and phrase private.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&usePassphrase, "passphrase", "p", false, "Derive the key from a passphrase read from the terminal")
	cmd.Flags().StringVar(&saltHex, "salt", "", "PBKDF2 salt as hex (random when empty)")
	cmd.Flags().IntVar(&iterations, "iterations", mnemonic.DefaultIterations, "PBKDF2 iteration count")
	cmd.Flags().StringVar(&words, "mnemonic", "", "Recover the key from a 12-word phrase")
	cmd.Flags().StringVar(&savePath, "save", "", "Seal the key into a passphrase-protected key file")

	return cmd
}

func resolveSalt(saltHex string) ([]byte, error) {
	if saltHex == "" {
		return secure.Random(16)
	}
	if err := validation.ValidateHex(saltHex); err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}
	return fasthex.DecodeString(saltHex)
}

func saveKeyFile(path string, key aes128.Key) error {
	passphrase, err := readPassphrase("Enter key file passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}
	if err := validation.ValidatePassphrase(passphrase); err != nil {
		return err
	}

	confirm, err := readPassphrase("Confirm key file passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}
	if passphrase != confirm {
		return fmt.Errorf("passphrases do not match")
	}

	pass := []byte(passphrase)
	defer secure.Zero(pass)

	if err := storage.NewKeyFile(path).Save(key, pass); err != nil {
		return fmt.Errorf("failed to save key file: %w", err)
	}
	return nil
}
