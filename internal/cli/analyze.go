package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/Davincible/aestiming/pkg/timing"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type analyzeGroup struct {
	Correlation float64  `json:"correlation"`
	KeyBytes    []string `json:"key_bytes"`
}

type analyzeResult struct {
	Measurements int                `json:"measurements"`
	ByteValues   int                `json:"byte_values"`
	Stats        []timing.ByteStats `json:"stats,omitempty"`
	Candidates   []analyzeGroup     `json:"candidates"`
}

func NewAnalyzeCommand() *cobra.Command {
	var (
		input     string
		top       int
		showStats bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Correlate collected timings with key byte guesses",
		Long: `Load a timings CSV written by measure, compute per-byte timing
statistics, and rank all 256 key byte guesses by the absolute correlation
between predicted cache line and mean timing.

Guesses sharing a high nibble touch the same cache lines and tie.

Examples:
  aestiming analyze --input timings.csv
  aestiming analyze --input timings.csv --top 10 --stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open timings: %w", err)
			}
			defer f.Close()

			ms, err := timing.LoadCSV(f)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", input, err)
			}

			stats := timing.Summarize(ms)
			groups := timing.RankCandidates(timing.CorrelateKeyGuesses(stats), top)

			res := analyzeResult{
				Measurements: len(ms),
				ByteValues:   len(stats),
			}
			if showStats {
				res.Stats = stats
			}
			for _, g := range groups {
				ag := analyzeGroup{Correlation: g.Correlation}
				for _, k := range g.KeyBytes {
					ag.KeyBytes = append(ag.KeyBytes, fmt.Sprintf("0x%02x", k))
				}
				res.Candidates = append(res.Candidates, ag)
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return writeJSON(out, res)
			}

			bold := color.New(color.Bold)

			fmt.Fprintf(out, "Loaded %d timing measurements over %d byte values\n\n", res.Measurements, res.ByteValues)

			if showStats {
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.SetStyle(table.StyleLight)
				tw.AppendHeader(table.Row{"Byte", "Count", "Mean", "StdDev", "Target"})
				for _, s := range stats {
					tw.AppendRow(table.Row{
						fmt.Sprintf("0x%02x", s.ByteVal), s.Count,
						fmt.Sprintf("%.1f", s.Mean), fmt.Sprintf("%.1f", s.StdDev), s.IsTarget,
					})
				}
				tw.Render()
				fmt.Fprintln(out)
			}

			bold.Fprintln(out, "Top key byte candidates:")
			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"#", "Correlation", "Key bytes"})
			for i, g := range res.Candidates {
				tw.AppendRow(table.Row{i + 1, fmt.Sprintf("%.4f", g.Correlation), summarizeKeys(g.KeyBytes)})
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "timings.csv", "Timings CSV to analyze")
	cmd.Flags().IntVarP(&top, "top", "t", 5, "Number of correlation groups to show")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Print per-byte timing statistics")

	return cmd
}

func summarizeKeys(keys []string) string {
	const shown = 4
	if len(keys) <= shown {
		return strings.Join(keys, " ")
	}
	return fmt.Sprintf("%s (and %d more)", strings.Join(keys[:shown], " "), len(keys)-shown)
}
