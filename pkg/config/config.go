// Package config provides configuration management for the aestiming CLI tool
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Davincible/aestiming/pkg/crypto/aes128"
	"github.com/Davincible/aestiming/pkg/timing"
	"github.com/goccy/go-json"
	fasthex "github.com/tmthrgd/go-hex"
)

// Config represents the main configuration structure
type Config struct {
	Version string          `json:"version"`
	Harness HarnessSettings `json:"harness"`
	Output  OutputSettings  `json:"output"`
	UI      UIConfig        `json:"ui"`
}

// HarnessSettings contains the parameters of a measurement run
type HarnessSettings struct {
	SamplesPerByte int    `json:"samples_per_byte"` // Default: 2000
	Experiments    int    `json:"experiments"`      // Default: 10
	TargetBytePos  int    `json:"target_byte_pos"`  // Default: 0
	Warmup         int    `json:"warmup"`           // Default: 100
	PredictEvery   int    `json:"predict_every"`    // Default: 16
	TargetKey      string `json:"target_key"`       // hex, default 42 repeated
	ReferenceKey   string `json:"reference_key"`    // hex, default 01 repeated
	Plaintext      string `json:"plaintext"`        // hex, default all zero
	Mode           string `json:"mode"`             // table or constant-time
	CacheSchedule  bool   `json:"cache_schedule"`   // reuse expanded keys
}

// OutputSettings contains where harness results are written
type OutputSettings struct {
	TimingsPath     string `json:"timings_path"`     // Default: timings.csv
	PredictionsPath string `json:"predictions_path"` // Default: key_predictions.txt
	ReportPath      string `json:"report_path"`      // JSON report, empty to skip
}

// UIConfig contains user interface settings
type UIConfig struct {
	UseColor    bool `json:"use_color"`    // Enable colored output
	ProgressBar bool `json:"progress_bar"` // Show progress indicators
}

// ConfigManager manages configuration loading and saving
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager loads the configuration from the default location,
// falling back to DefaultConfig when no file exists.
func NewConfigManager() (*ConfigManager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewConfigManagerAt(configPath)
}

// NewConfigManagerAt loads the configuration stored at path.
func NewConfigManagerAt(path string) (*ConfigManager, error) {
	cm := &ConfigManager{configPath: path}

	if err := cm.LoadConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cm.config = DefaultConfig()
	}

	return cm, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	d := timing.DefaultConfig()
	return &Config{
		Version: "1.0.0",
		Harness: HarnessSettings{
			SamplesPerByte: d.SamplesPerByte,
			Experiments:    d.Experiments,
			TargetBytePos:  d.TargetBytePos,
			Warmup:         d.Warmup,
			PredictEvery:   d.PredictEvery,
			TargetKey:      fasthex.EncodeToString(d.TargetKey[:]),
			ReferenceKey:   fasthex.EncodeToString(d.ReferenceKey[:]),
			Plaintext:      fasthex.EncodeToString(d.Plaintext[:]),
			Mode:           aes128.ModeTable.String(),
			CacheSchedule:  false,
		},
		Output: OutputSettings{
			TimingsPath:     "timings.csv",
			PredictionsPath: "key_predictions.txt",
		},
		UI: UIConfig{
			UseColor:    true,
			ProgressBar: true,
		},
	}
}

// LoadConfig loads the configuration from disk
func (cm *ConfigManager) LoadConfig() error {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", cm.configPath, err)
	}

	cm.config = config
	return nil
}

// SaveConfig saves the configuration to disk
func (cm *ConfigManager) SaveConfig() error {
	configDir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

// SetConfig updates the configuration
func (cm *ConfigManager) SetConfig(config *Config) {
	cm.config = config
}

// Path returns the configuration file path
func (cm *ConfigManager) Path() string {
	return cm.configPath
}

// Validate checks that the harness settings can be turned into a run
func (c *Config) Validate() error {
	if _, err := c.Harness.TimingConfig(); err != nil {
		return err
	}
	if _, err := aes128.ParseMode(c.Harness.Mode); err != nil {
		return err
	}
	return nil
}

// TimingConfig converts the settings into a harness configuration
func (h *HarnessSettings) TimingConfig() (timing.Config, error) {
	cfg := timing.Config{
		SamplesPerByte: h.SamplesPerByte,
		Experiments:    h.Experiments,
		TargetBytePos:  h.TargetBytePos,
		Warmup:         h.Warmup,
		PredictEvery:   h.PredictEvery,
	}

	fields := []struct {
		name  string
		value string
		dst   *[16]byte
	}{
		{"target_key", h.TargetKey, &cfg.TargetKey},
		{"reference_key", h.ReferenceKey, &cfg.ReferenceKey},
		{"plaintext", h.Plaintext, &cfg.Plaintext},
	}
	for _, f := range fields {
		if err := decodeBlock(f.value, f.dst); err != nil {
			return cfg, fmt.Errorf("%s: %w", f.name, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeBlock(s string, dst *[16]byte) error {
	// an empty value means all zero bytes
	if s == "" {
		*dst = [16]byte{}
		return nil
	}

	b, err := fasthex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(b))
	}
	copy(dst[:], b)
	return nil
}

// getConfigPath returns the configuration file path
func getConfigPath() (string, error) {
	// Check for custom config path
	if customPath := os.Getenv("AESTIMING_CONFIG"); customPath != "" {
		return customPath, nil
	}

	// Use XDG_CONFIG_HOME if set
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "aestiming", "config.json"), nil
	}

	// Default to ~/.config/aestiming/config.json
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "aestiming", "config.json"), nil
}
