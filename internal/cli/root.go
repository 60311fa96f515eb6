package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the aestiming command tree.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aestiming",
		Short: "Table-driven AES-128 and a cache-timing measurement harness",
		Long: `aestiming implements AES-128 (FIPS-197) with lookup tables for the
S-box and GF(2^8) multiplication, and measures how encryption time depends
on plaintext bytes to recover key bytes from cache-line timing.

Features:
- Key expansion, block encryption and decryption
- Table mode (secret-indexed lookups) and an explicit constant-time mode
- Known-answer self test against FIPS-197 and crypto/aes
- Timing harness writing timings.csv and key_predictions.txt
- Offline correlation analysis of collected timings`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
		},
	}

	rootCmd.AddCommand(
		NewExpandCommand(),
		NewEncryptCommand(),
		NewDecryptCommand(),
		NewKeygenCommand(),
		NewVerifyCommand(),
		NewMeasureCommand(),
		NewAnalyzeCommand(),
	)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")

	return rootCmd
}
