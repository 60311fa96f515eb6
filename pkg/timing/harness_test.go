package timing_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Davincible/aestiming/pkg/crypto/aes128"
	"github.com/Davincible/aestiming/pkg/timing"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now uint64
}

func (c *fakeClock) Now() uint64 {
	return c.now
}

// slowLine returns an encrypt function that advances clock by 100 ticks,
// plus 40 when the high nibble of the swept byte equals line. Ciphertexts
// are the plaintext itself so target matches are predictable.
func slowLine(clock *fakeClock, pos int, line byte) timing.EncryptFunc {
	return func(plaintext, key [16]byte) [16]byte {
		clock.now += 100
		if plaintext[pos]>>4 == line {
			clock.now += 40
		}
		return plaintext
	}
}

type failingSink struct{}

func (failingSink) WriteMeasurement(timing.Measurement) error { return errors.New("disk full") }
func (failingSink) WritePrediction(timing.Prediction) error   { return nil }

func smallConfig() timing.Config {
	cfg := timing.DefaultConfig()
	cfg.SamplesPerByte = 3
	cfg.Experiments = 2
	cfg.Warmup = 1
	return cfg
}

func TestHarness(t *testing.T) {
	spec.Run(t, "Harness", func(t *testing.T, when spec.G, it spec.S) {
		var (
			clock *fakeClock
			cfg   timing.Config
		)

		it.Before(func() {
			clock = &fakeClock{}
			cfg = smallConfig()
		})

		when("one cache line is slower", func() {
			it("predicts that cache line", func() {
				h, err := timing.NewHarness(cfg, slowLine(clock, 0, 0x7), timing.WithClock(clock))
				require.NoError(t, err)

				res, err := h.Run(context.Background())
				require.NoError(t, err)

				assert.Len(t, res.Measurements, 256*cfg.Experiments)
				assert.Equal(t, byte(0x70), res.FinalPrediction)

				for _, m := range res.Measurements {
					if m.ByteVal>>4 == 0x7 {
						assert.Equal(t, uint64(140), m.Timing)
					} else {
						assert.Equal(t, uint64(100), m.Timing)
					}
					assert.Equal(t, m.ByteVal == 0, m.IsTarget)
				}
			})

			it("emits a prediction every 16 measurements", func() {
				h, err := timing.NewHarness(cfg, slowLine(clock, 0, 0x7), timing.WithClock(clock))
				require.NoError(t, err)

				res, err := h.Run(context.Background())
				require.NoError(t, err)

				require.Len(t, res.Predictions, 256*cfg.Experiments/16)
				for i, p := range res.Predictions {
					assert.Equal(t, (i+1)*16, p.Measurements)
				}
				// before any byte value of line 7 is measured, line 0 leads
				assert.Equal(t, byte(0x00), res.Predictions[0].KeyByte)
				assert.Equal(t, byte(0x70), res.Predictions[len(res.Predictions)-1].KeyByte)
			})

			it("sweeps the configured byte position", func() {
				cfg.TargetBytePos = 5
				h, err := timing.NewHarness(cfg, slowLine(clock, 5, 0xc), timing.WithClock(clock))
				require.NoError(t, err)

				res, err := h.Run(context.Background())
				require.NoError(t, err)
				assert.Equal(t, byte(0xc0), res.FinalPrediction)
			})
		})

		when("writing results", func() {
			it("writes CSV rows and prediction lines", func() {
				var csvBuf, predBuf bytes.Buffer
				h, err := timing.NewHarness(cfg, slowLine(clock, 0, 0x3),
					timing.WithClock(clock),
					timing.WithSink(timing.NewCSVWriter(&csvBuf)),
					timing.WithSink(timing.NewPredictionWriter(&predBuf)))
				require.NoError(t, err)

				res, err := h.Run(context.Background())
				require.NoError(t, err)

				lines := strings.Split(strings.TrimSpace(csvBuf.String()), "\n")
				require.Len(t, lines, 1+len(res.Measurements))
				assert.Equal(t, "byte_val,timing,is_target,predicted_key", lines[0])
				assert.Equal(t, "0,100,1,0", lines[1])

				predLines := strings.Split(strings.TrimSpace(predBuf.String()), "\n")
				assert.Len(t, predLines, len(res.Predictions))
				assert.Equal(t, "After 512 measurements, predicted key byte: 0x30", predLines[len(predLines)-1])

				loaded, err := timing.LoadCSV(&csvBuf)
				require.NoError(t, err)
				assert.Equal(t, res.Measurements, loaded)
			})

			it("stops on sink errors", func() {
				h, err := timing.NewHarness(cfg, slowLine(clock, 0, 0x3),
					timing.WithClock(clock), timing.WithSink(failingSink{}))
				require.NoError(t, err)

				_, err = h.Run(context.Background())
				assert.ErrorContains(t, err, "disk full")
			})
		})

		when("the context is cancelled", func() {
			it("returns the context error", func() {
				h, err := timing.NewHarness(cfg, slowLine(clock, 0, 0x3), timing.WithClock(clock))
				require.NoError(t, err)

				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				res, err := h.Run(ctx)
				assert.ErrorIs(t, err, context.Canceled)
				assert.Empty(t, res.Measurements)
			})
		})

		when("reporting progress", func() {
			it("reports every 16 byte values", func() {
				var progress []timing.Progress
				h, err := timing.NewHarness(cfg, slowLine(clock, 0, 0x3),
					timing.WithClock(clock),
					timing.WithProgress(func(p timing.Progress) { progress = append(progress, p) }))
				require.NoError(t, err)

				_, err = h.Run(context.Background())
				require.NoError(t, err)

				require.Len(t, progress, 16)
				assert.Equal(t, 0, progress[0].Percent)
				assert.Equal(t, 240, progress[15].ByteVal)
				assert.Equal(t, 93, progress[15].Percent)
				assert.Equal(t, byte(0x30), progress[15].Prediction)
			})
		})

		when("running the real cipher", func() {
			it("records target matches against the target key ciphertext", func() {
				cfg.SamplesPerByte = 1
				cfg.Experiments = 1
				h, err := timing.NewHarness(cfg, aes128.EncryptFunc(aes128.ModeTable))
				require.NoError(t, err)

				res, err := h.Run(context.Background())
				require.NoError(t, err)
				assert.Equal(t, aes128.Encrypt(cfg.Plaintext, cfg.TargetKey), res.TargetCiphertext)
				assert.Len(t, res.Measurements, 256)
			})
		})
	}, spec.Report(report.Terminal{}))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*timing.Config)
		wantErr bool
	}{
		{"default", func(*timing.Config) {}, false},
		{"no samples", func(c *timing.Config) { c.SamplesPerByte = 0 }, true},
		{"no experiments", func(c *timing.Config) { c.Experiments = 0 }, true},
		{"position too large", func(c *timing.Config) { c.TargetBytePos = 16 }, true},
		{"negative position", func(c *timing.Config) { c.TargetBytePos = -1 }, true},
		{"negative warmup", func(c *timing.Config) { c.Warmup = -1 }, true},
		{"negative prediction interval", func(c *timing.Config) { c.PredictEvery = -1 }, true},
		{"predictions disabled", func(c *timing.Config) { c.PredictEvery = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := timing.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := timing.NewHarness(timing.DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestDefaultConfigKeys(t *testing.T) {
	cfg := timing.DefaultConfig()
	assert.Equal(t, bytes.Repeat([]byte{0x42}, 16), cfg.TargetKey[:])
	assert.Equal(t, bytes.Repeat([]byte{0x01}, 16), cfg.ReferenceKey[:])
	assert.Equal(t, 2000, cfg.SamplesPerByte)
	assert.Equal(t, 10, cfg.Experiments)
}

func TestPredictKeyByte(t *testing.T) {
	ms := []timing.Measurement{
		{ByteVal: 0x05, Timing: 10},
		{ByteVal: 0x15, Timing: 12},
		{ByteVal: 0xa0, Timing: 30},
		{ByteVal: 0xaf, Timing: 10},
		{ByteVal: 0xf0, Timing: 19},
	}
	assert.Equal(t, byte(0xa0), timing.PredictKeyByte(ms))
	assert.Equal(t, byte(0x00), timing.PredictKeyByte(nil))
}

func TestMonotonicClock(t *testing.T) {
	c := timing.NewMonotonicClock()
	a := c.Now()
	b := c.Now()
	assert.GreaterOrEqual(t, b, a)
}

func TestDetectPlatform(t *testing.T) {
	p := timing.DetectPlatform()
	assert.NotEmpty(t, p.GOOS)
	assert.NotEmpty(t, p.GOARCH)
	assert.Positive(t, p.NumCPU)
}
