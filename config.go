package aligner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ieee0824/aligner-go/acoustic"
	"github.com/ieee0824/aligner-go/align"
)

// Config is the on-disk aligner configuration.
type Config struct {
	Model      ModelConfig   `yaml:"model"`
	Vocabulary string        `yaml:"vocabulary"` // path to the symbol list
	Audio      AudioConfig   `yaml:"audio"`
	Decoder    DecoderConfig `yaml:"decoder"`
	Batch      BatchConfig   `yaml:"batch"`
}

// ModelConfig locates the ONNX acoustic model.
type ModelConfig struct {
	Path    string `yaml:"path"`
	Library string `yaml:"library"` // onnxruntime shared library, "" = default
	Input   string `yaml:"input"`   // input tensor name
	Output  string `yaml:"output"`  // output tensor name
	Threads int    `yaml:"threads"`
}

// AudioConfig describes the framing of the upstream feature extraction,
// from which the seconds-per-frame conversion is derived.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	HopLength  int `yaml:"hop_length"`
}

// FrameDuration returns seconds per frame.
func (a AudioConfig) FrameDuration() float64 {
	if a.SampleRate <= 0 || a.HopLength <= 0 {
		return 0
	}
	return float64(a.HopLength) / float64(a.SampleRate)
}

// DecoderConfig holds decoding and extraction parameters.
type DecoderConfig struct {
	Epsilon     float64 `yaml:"epsilon"`      // probability floor
	BlankPolicy string  `yaml:"blank_policy"` // previous | next | discard
}

// Policy parses the configured blank policy.
func (d DecoderConfig) Policy() (align.BlankPolicy, error) {
	switch d.BlankPolicy {
	case "", "previous":
		return align.AttachPrevious, nil
	case "next":
		return align.AttachNext, nil
	case "discard":
		return align.DiscardBlanks, nil
	}
	return 0, fmt.Errorf("unrecognized blank_policy %q (want previous, next, or discard)", d.BlankPolicy)
}

// BatchConfig holds batch orchestration parameters.
type BatchConfig struct {
	Workers         int  `yaml:"workers"`
	ContinueOnError bool `yaml:"continue_on_error"`
}

// DefaultConfig returns the conventional 22.05 kHz / 256-hop setup.
func DefaultConfig() Config {
	return Config{
		Model: ModelConfig{
			Input:  "mel",
			Output: "logits",
		},
		Audio: AudioConfig{
			SampleRate: 22050,
			HopLength:  256,
		},
		Decoder: DecoderConfig{
			Epsilon:     acoustic.DefaultEpsilon,
			BlankPolicy: "previous",
		},
		Batch: BatchConfig{
			ContinueOnError: true,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.HopLength <= 0 {
		return fmt.Errorf("audio.hop_length must be positive, got %d", c.Audio.HopLength)
	}
	if c.Decoder.Epsilon <= 0 || c.Decoder.Epsilon >= 1 {
		return fmt.Errorf("decoder.epsilon must be in (0, 1), got %g", c.Decoder.Epsilon)
	}
	if _, err := c.Decoder.Policy(); err != nil {
		return err
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	}
	return nil
}
