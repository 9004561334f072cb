// Package config holds the render configuration: output encoding parameters,
// caption tuning, overlay styling and asset resolution. Values come from an
// optional YAML file layered over compiled defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var allowedPresets = map[string]struct{}{
	"ultrafast": {},
	"superfast": {},
	"veryfast":  {},
	"faster":    {},
	"fast":      {},
	"medium":    {},
	"slow":      {},
	"slower":    {},
	"veryslow":  {},
}

// Config captures everything the engine needs beyond the per-render job.
type Config struct {
	Video    VideoConfig   `yaml:"video"`
	Audio    AudioConfig   `yaml:"audio"`
	Captions CaptionConfig `yaml:"captions"`
	Overlay  OverlayConfig `yaml:"overlay"`
	Font     FontConfig    `yaml:"font"`

	// FadeSec is the entry/exit fade applied to every composed segment,
	// video and audio alike. Fades never extend segment duration.
	FadeSec float64 `yaml:"fade_s"`

	// AssetsDir is the directory background audio files are resolved in.
	// Background audio is referenced by basename only; no path traversal.
	AssetsDir string `yaml:"assets_dir"`
}

// VideoConfig contains output encoding parameters.
type VideoConfig struct {
	FPS    int    `yaml:"fps"`
	Codec  string `yaml:"codec"`
	Preset string `yaml:"preset"`
	CRF    int    `yaml:"crf"`
}

// AudioConfig describes output audio encoding.
type AudioConfig struct {
	Codec       string `yaml:"acodec"`
	BitrateKbps int    `yaml:"bitrate_kbps"`
}

// CaptionConfig tunes the fragment merge and cue rendering.
type CaptionConfig struct {
	MaxCueSec float64 `yaml:"max_cue_s"`
	MaxGapSec float64 `yaml:"max_gap_s"`
	MinCueSec float64 `yaml:"min_cue_s"`

	// Terminals is the sentence-terminal character set that ends a cue.
	// Configurable because the upstream transcriber's punctuation mixes
	// full-width and half-width forms.
	Terminals string `yaml:"terminals"`
}

// OverlayConfig styles the persistent corner label.
type OverlayConfig struct {
	LeadInSec float64 `yaml:"lead_in_s"`
	Opacity   float64 `yaml:"opacity"`
	FontSize  int     `yaml:"font_size"`
}

// FontConfig resolves the caption font once at startup instead of probing
// font paths at render time.
type FontConfig struct {
	// File is a .ttf/.ttc path burned into captions and overlays when present.
	File string `yaml:"file"`
	// FallbackFamily is the font family used when File is absent.
	FallbackFamily string `yaml:"fallback_family"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Video: VideoConfig{
			FPS:    30,
			Codec:  "libx264",
			Preset: "medium",
			CRF:    23,
		},
		Audio: AudioConfig{
			Codec:       "aac",
			BitrateKbps: 192,
		},
		Captions: CaptionConfig{
			MaxCueSec: 5.0,
			MaxGapSec: 1.0,
			MinCueSec: 0.1,
			Terminals: "。！？.!?",
		},
		Overlay: OverlayConfig{
			LeadInSec: 3.0,
			Opacity:   0.8,
			FontSize:  40,
		},
		Font: FontConfig{
			File:           "/usr/share/fonts/opentype/noto/NotoSansCJK-Bold.ttc",
			FallbackFamily: "Sans",
		},
		FadeSec:   0.5,
		AssetsDir: "assets/audio",
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills fields the YAML omitted or set to unusable values.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Video.FPS <= 0 {
		c.Video.FPS = defaults.Video.FPS
	}
	if strings.TrimSpace(c.Video.Codec) == "" {
		c.Video.Codec = defaults.Video.Codec
	}
	preset := strings.ToLower(strings.TrimSpace(c.Video.Preset))
	if _, ok := allowedPresets[preset]; !ok {
		preset = defaults.Video.Preset
	}
	c.Video.Preset = preset
	if c.Video.CRF <= 0 || c.Video.CRF > 51 {
		c.Video.CRF = defaults.Video.CRF
	}

	if strings.TrimSpace(c.Audio.Codec) == "" {
		c.Audio.Codec = defaults.Audio.Codec
	}
	if c.Audio.BitrateKbps <= 0 {
		c.Audio.BitrateKbps = defaults.Audio.BitrateKbps
	}

	if c.Captions.MaxCueSec <= 0 {
		c.Captions.MaxCueSec = defaults.Captions.MaxCueSec
	}
	if c.Captions.MaxGapSec <= 0 {
		c.Captions.MaxGapSec = defaults.Captions.MaxGapSec
	}
	if c.Captions.MinCueSec <= 0 {
		c.Captions.MinCueSec = defaults.Captions.MinCueSec
	}
	if strings.TrimSpace(c.Captions.Terminals) == "" {
		c.Captions.Terminals = defaults.Captions.Terminals
	}

	if c.Overlay.LeadInSec <= 0 {
		c.Overlay.LeadInSec = defaults.Overlay.LeadInSec
	}
	if c.Overlay.Opacity <= 0 || c.Overlay.Opacity > 1 {
		c.Overlay.Opacity = defaults.Overlay.Opacity
	}
	if c.Overlay.FontSize <= 0 {
		c.Overlay.FontSize = defaults.Overlay.FontSize
	}

	if strings.TrimSpace(c.Font.FallbackFamily) == "" {
		c.Font.FallbackFamily = defaults.Font.FallbackFamily
	}

	if c.FadeSec <= 0 {
		c.FadeSec = defaults.FadeSec
	}
	if strings.TrimSpace(c.AssetsDir) == "" {
		c.AssetsDir = defaults.AssetsDir
	}
}

// Validate rejects configurations the engine cannot render with.
func (c Config) Validate() error {
	if c.Video.FPS <= 0 {
		return fmt.Errorf("video fps must be > 0")
	}
	if c.Captions.MaxGapSec > c.Captions.MaxCueSec {
		return fmt.Errorf("captions max_gap_s must be <= max_cue_s")
	}
	if strings.TrimSpace(c.Font.File) == "" && strings.TrimSpace(c.Font.FallbackFamily) == "" {
		return fmt.Errorf("font: either file or fallback_family is required")
	}
	return nil
}

// ResolveFont returns the font file to burn with, or "" when the configured
// file is absent; callers then fall back to FallbackFamily by name.
func (c Config) ResolveFont() string {
	if c.Font.File == "" {
		return ""
	}
	if _, err := os.Stat(c.Font.File); err != nil {
		return ""
	}
	return c.Font.File
}

// TerminalRunes returns the sentence-terminal set as runes.
func (c Config) TerminalRunes() []rune {
	return []rune(c.Captions.Terminals)
}
