package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/Davincible/aestiming/pkg/config"
	"github.com/Davincible/aestiming/pkg/crypto/aes128"
	"github.com/Davincible/aestiming/pkg/keycache"
	"github.com/Davincible/aestiming/pkg/timing"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type measureReport struct {
	Platform        timing.Platform     `json:"platform"`
	Mode            string              `json:"mode"`
	CacheSchedule   bool                `json:"cache_schedule"`
	Config          timing.Config       `json:"config"`
	Predictions     []timing.Prediction `json:"predictions"`
	FinalPrediction string              `json:"final_prediction"`
	ActualKeyByte   string              `json:"actual_key_byte"`
	Correct         bool                `json:"correct"`
	ElapsedMS       int64               `json:"elapsed_ms"`
	CacheHits       uint64              `json:"cache_hits,omitempty"`
	CacheMisses     uint64              `json:"cache_misses,omitempty"`
}

func NewMeasureCommand() *cobra.Command {
	var (
		configPath  string
		samples     int
		experiments int
		position    int
		warmup      int
		modeName    string
		cacheSched  bool
		timingsPath string
		predictPath string
		reportPath  string
		noProgress  bool
	)

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Collect encryption timings and predict a key byte",
		Long: `Measure encryption time for every value of one plaintext byte under a
target key and a reference key, writing one CSV row per experiment and a
key byte prediction every 16 measurements.

Settings are read from the configuration file and overridden by flags.

Examples:
  aestiming measure
  aestiming measure --samples 500 --experiments 4 --position 3
  aestiming measure --mode constant-time --report report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cm  *config.ConfigManager
				err error
			)
			if configPath != "" {
				cm, err = config.NewConfigManagerAt(configPath)
			} else {
				cm, err = config.NewConfigManager()
			}
			if err != nil {
				return err
			}
			cfg := cm.GetConfig()

			flags := cmd.Flags()
			if flags.Changed("samples") {
				cfg.Harness.SamplesPerByte = samples
			}
			if flags.Changed("experiments") {
				cfg.Harness.Experiments = experiments
			}
			if flags.Changed("position") {
				cfg.Harness.TargetBytePos = position
			}
			if flags.Changed("warmup") {
				cfg.Harness.Warmup = warmup
			}
			if flags.Changed("mode") {
				cfg.Harness.Mode = modeName
			}
			if flags.Changed("cache-schedule") {
				cfg.Harness.CacheSchedule = cacheSched
			}
			if flags.Changed("output") {
				cfg.Output.TimingsPath = timingsPath
			}
			if flags.Changed("predictions") {
				cfg.Output.PredictionsPath = predictPath
			}
			if flags.Changed("report") {
				cfg.Output.ReportPath = reportPath
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			tcfg, err := cfg.Harness.TimingConfig()
			if err != nil {
				return err
			}
			mode, err := aes128.ParseMode(cfg.Harness.Mode)
			if err != nil {
				return err
			}

			var (
				encrypt timing.EncryptFunc = aes128.EncryptFunc(mode)
				cache   *keycache.Cache
			)
			if cfg.Harness.CacheSchedule {
				if mode != aes128.ModeTable {
					return fmt.Errorf("cache_schedule requires table mode, got %s", mode)
				}
				cache = keycache.New(keycache.DefaultSize)
				encrypt = cache.EncryptFunc()
			}

			timingsFile, err := os.Create(cfg.Output.TimingsPath)
			if err != nil {
				return fmt.Errorf("failed to create timings file: %w", err)
			}
			defer timingsFile.Close()

			predictFile, err := os.Create(cfg.Output.PredictionsPath)
			if err != nil {
				return fmt.Errorf("failed to create predictions file: %w", err)
			}
			defer predictFile.Close()

			opts := []timing.Option{
				timing.WithLogger(slog.Default()),
				timing.WithSink(timing.NewCSVWriter(timingsFile)),
				timing.WithSink(timing.NewPredictionWriter(predictFile)),
			}

			showProgress := cfg.UI.ProgressBar && !noProgress && !jsonOutput(cmd) &&
				term.IsTerminal(int(os.Stderr.Fd()))
			if showProgress {
				opts = append(opts, timing.WithProgress(func(p timing.Progress) {
					fmt.Fprintf(os.Stderr, "\rProgress: %3d%% - Current key prediction: 0x%02x", p.Percent, p.Prediction)
				}))
			}

			harness, err := timing.NewHarness(tcfg, encrypt, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			slog.Debug("Starting measurement", "mode", mode.String(), "position", tcfg.TargetBytePos,
				"samples", tcfg.SamplesPerByte, "experiments", tcfg.Experiments)

			result, err := harness.Run(ctx)
			if showProgress {
				fmt.Fprintln(os.Stderr)
			}
			if err != nil {
				return fmt.Errorf("measurement failed: %w", err)
			}

			actual := tcfg.TargetKey[tcfg.TargetBytePos]
			report := measureReport{
				Platform:        timing.DetectPlatform(),
				Mode:            mode.String(),
				CacheSchedule:   cfg.Harness.CacheSchedule,
				Config:          tcfg,
				Predictions:     result.Predictions,
				FinalPrediction: fmt.Sprintf("0x%02x", result.FinalPrediction),
				ActualKeyByte:   fmt.Sprintf("0x%02x", actual),
				Correct:         result.FinalPrediction>>4 == actual>>4,
				ElapsedMS:       result.Elapsed.Milliseconds(),
			}
			if cache != nil {
				report.CacheHits, report.CacheMisses = cache.Stats()
			}

			if cfg.Output.ReportPath != "" {
				f, err := os.Create(cfg.Output.ReportPath)
				if err != nil {
					return fmt.Errorf("failed to create report file: %w", err)
				}
				err = writeJSON(f, report)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return writeJSON(out, report)
			}

			bold := color.New(color.Bold)
			green := color.New(color.FgGreen, color.Bold)
			red := color.New(color.FgRed, color.Bold)

			bold.Fprintf(out, "Final key byte prediction: %s\n", report.FinalPrediction)
			fmt.Fprintf(out, "Actual key byte:           %s\n", report.ActualKeyByte)
			if report.Correct {
				green.Fprintln(out, "✓ Cache line recovered")
			} else {
				red.Fprintln(out, "✗ Cache line not recovered")
			}
			fmt.Fprintf(out, "Measurements: %d in %s\n", len(result.Measurements), result.Elapsed.Round(time.Millisecond))
			fmt.Fprintf(out, "Timings written to %s\n", cfg.Output.TimingsPath)
			fmt.Fprintf(out, "Predictions written to %s\n", cfg.Output.PredictionsPath)
			return nil
		},
	}

	def := timing.DefaultConfig()
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file (default $AESTIMING_CONFIG or ~/.config/aestiming/config.json)")
	cmd.Flags().IntVarP(&samples, "samples", "n", def.SamplesPerByte, "Encryptions per experiment")
	cmd.Flags().IntVarP(&experiments, "experiments", "e", def.Experiments, "Experiments per byte value")
	cmd.Flags().IntVarP(&position, "position", "p", def.TargetBytePos, "Plaintext byte position to vary (0-15)")
	cmd.Flags().IntVar(&warmup, "warmup", def.Warmup, "Untimed encryptions before each experiment")
	cmd.Flags().StringVarP(&modeName, "mode", "m", "table", "Implementation: table or constant-time")
	cmd.Flags().BoolVar(&cacheSched, "cache-schedule", false, "Reuse expanded keys across encryptions")
	cmd.Flags().StringVarP(&timingsPath, "output", "o", "timings.csv", "Timings CSV path")
	cmd.Flags().StringVar(&predictPath, "predictions", "key_predictions.txt", "Predictions path")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a JSON report to this path")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress line")

	return cmd
}
