// Package timing measures how long single-block encryptions take as one
// plaintext byte sweeps all 256 values, and predicts the key byte at that
// position from the resulting cache-line timing pattern.
package timing

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// EncryptFunc encrypts one block under a cipher key.
type EncryptFunc func(plaintext, key [16]byte) [16]byte

// Config controls a measurement run.
type Config struct {
	// SamplesPerByte is the number of timed encryptions reduced to one
	// median per experiment.
	SamplesPerByte int `json:"samples_per_byte"`
	// Experiments is the number of medians recorded per byte value.
	Experiments int `json:"experiments"`
	// TargetBytePos is the plaintext position swept through 0..255.
	TargetBytePos int `json:"target_byte_pos"`
	// Warmup is the number of untimed encryptions before measuring.
	Warmup int `json:"warmup"`
	// PredictEvery emits a key prediction whenever the number of
	// measurements is a multiple of it. Zero disables predictions.
	PredictEvery int `json:"predict_every"`

	TargetKey    [16]byte `json:"-"`
	ReferenceKey [16]byte `json:"-"`
	Plaintext    [16]byte `json:"-"`
}

// DefaultConfig returns the parameters of the reference experiment.
func DefaultConfig() Config {
	cfg := Config{
		SamplesPerByte: 2000,
		Experiments:    10,
		TargetBytePos:  0,
		Warmup:         100,
		PredictEvery:   16,
	}
	for i := range cfg.TargetKey {
		cfg.TargetKey[i] = 0x42
		cfg.ReferenceKey[i] = 0x01
	}
	return cfg
}

func (c Config) Validate() error {
	if c.SamplesPerByte < 1 {
		return fmt.Errorf("samples per byte must be at least 1, got %d", c.SamplesPerByte)
	}
	if c.Experiments < 1 {
		return fmt.Errorf("experiments must be at least 1, got %d", c.Experiments)
	}
	if c.TargetBytePos < 0 || c.TargetBytePos >= 16 {
		return fmt.Errorf("target byte position must be in [0, 15], got %d", c.TargetBytePos)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("warmup cannot be negative, got %d", c.Warmup)
	}
	if c.PredictEvery < 0 {
		return fmt.Errorf("prediction interval cannot be negative, got %d", c.PredictEvery)
	}
	return nil
}

// Measurement is the median encryption time of one experiment.
type Measurement struct {
	ByteVal      byte   `json:"byte_val"`
	Timing       uint64 `json:"timing"`
	IsTarget     bool   `json:"is_target"`
	PredictedKey byte   `json:"predicted_key"`
}

// Prediction is the key byte guessed after a number of measurements.
type Prediction struct {
	Measurements int  `json:"measurements"`
	KeyByte      byte `json:"key_byte"`
}

// Progress is reported every 16 byte values.
type Progress struct {
	ByteVal    int
	Percent    int
	Prediction byte
}

// Sink receives measurements and predictions as they are produced.
type Sink interface {
	WriteMeasurement(m Measurement) error
	WritePrediction(p Prediction) error
}

type Result struct {
	Measurements     []Measurement `json:"measurements"`
	Predictions      []Prediction  `json:"predictions"`
	FinalPrediction  byte          `json:"final_prediction"`
	TargetCiphertext [16]byte      `json:"target_ciphertext"`
	Elapsed          time.Duration `json:"elapsed"`
}

type Option func(*Harness)

func WithClock(c Clock) Option {
	return func(h *Harness) { h.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

func WithSink(s Sink) Option {
	return func(h *Harness) { h.sinks = append(h.sinks, s) }
}

func WithProgress(fn func(Progress)) Option {
	return func(h *Harness) { h.progress = fn }
}

// Harness runs the measurement loop against an EncryptFunc.
type Harness struct {
	cfg      Config
	encrypt  EncryptFunc
	clock    Clock
	logger   *slog.Logger
	sinks    []Sink
	progress func(Progress)
}

func NewHarness(cfg Config, encrypt EncryptFunc, opts ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if encrypt == nil {
		return nil, fmt.Errorf("encrypt function cannot be nil")
	}

	h := &Harness{
		cfg:     cfg,
		encrypt: encrypt,
		clock:   NewMonotonicClock(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Run sweeps the target byte through every value and returns all
// measurements. It stops early with ctx.Err() if ctx is cancelled.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	cfg := h.cfg
	res := &Result{
		Measurements: make([]Measurement, 0, 256*cfg.Experiments),
	}

	plaintext := cfg.Plaintext
	res.TargetCiphertext = h.encrypt(plaintext, cfg.TargetKey)

	for i := 0; i < cfg.Warmup; i++ {
		h.encrypt(plaintext, cfg.ReferenceKey)
	}

	h.logger.Debug("Starting timing measurement",
		"samples_per_byte", cfg.SamplesPerByte,
		"experiments", cfg.Experiments,
		"target_byte_pos", cfg.TargetBytePos)

	samples := make([]uint64, cfg.SamplesPerByte)
	var ciphertext [16]byte

	for byteVal := 0; byteVal < 256; byteVal++ {
		plaintext[cfg.TargetBytePos] = byte(byteVal)

		for exp := 0; exp < cfg.Experiments; exp++ {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			for s := range samples {
				t0 := h.clock.Now()
				ciphertext = h.encrypt(plaintext, cfg.ReferenceKey)
				t1 := h.clock.Now()
				samples[s] = t1 - t0
			}

			m := Measurement{
				ByteVal:  byte(byteVal),
				Timing:   median(samples),
				IsTarget: ciphertext[0] == res.TargetCiphertext[0],
			}
			res.Measurements = append(res.Measurements, m)

			if cfg.PredictEvery > 0 && len(res.Measurements)%cfg.PredictEvery == 0 {
				p := Prediction{
					Measurements: len(res.Measurements),
					KeyByte:      PredictKeyByte(res.Measurements),
				}
				res.Predictions = append(res.Predictions, p)
				if err := h.emitPrediction(p); err != nil {
					return res, err
				}
			}

			m.PredictedKey = PredictKeyByte(res.Measurements)
			res.Measurements[len(res.Measurements)-1] = m
			if err := h.emitMeasurement(m); err != nil {
				return res, err
			}
		}

		if byteVal%16 == 0 && h.progress != nil {
			h.progress(Progress{
				ByteVal:    byteVal,
				Percent:    byteVal * 100 / 256,
				Prediction: PredictKeyByte(res.Measurements),
			})
		}
	}

	res.FinalPrediction = PredictKeyByte(res.Measurements)
	res.Elapsed = time.Since(start)

	h.logger.Debug("Timing measurement finished",
		"measurements", len(res.Measurements),
		"prediction", fmt.Sprintf("0x%02x", res.FinalPrediction),
		"elapsed", res.Elapsed)

	return res, nil
}

func (h *Harness) emitMeasurement(m Measurement) error {
	for _, s := range h.sinks {
		if err := s.WriteMeasurement(m); err != nil {
			return fmt.Errorf("failed to write measurement: %w", err)
		}
	}
	return nil
}

func (h *Harness) emitPrediction(p Prediction) error {
	for _, s := range h.sinks {
		if err := s.WritePrediction(p); err != nil {
			return fmt.Errorf("failed to write prediction: %w", err)
		}
	}
	return nil
}

// median sorts samples and returns the element at len/2.
func median(samples []uint64) uint64 {
	slices.Sort(samples)
	return samples[len(samples)/2]
}

// PredictKeyByte groups measurements by the cache line of their byte value
// (the high nibble) and returns the line with the highest mean timing,
// shifted back into a key byte candidate.
func PredictKeyByte(ms []Measurement) byte {
	var lines [16][]float64
	for _, m := range ms {
		line := m.ByteVal >> 4
		lines[line] = append(lines[line], float64(m.Timing))
	}

	var (
		best    byte
		bestAvg float64
	)
	for line, timings := range lines {
		if len(timings) == 0 {
			continue
		}
		if avg := stat.Mean(timings, nil); avg > bestAvg {
			bestAvg = avg
			best = byte(line)
		}
	}

	return best << 4
}
