package config

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
)

// Config holds the tool settings read from the YAML config file.
type Config struct {
	// Timeline
	FrameRate        float64  `yaml:"frame_rate"`
	MaxFrameNo       int      `yaml:"max_frame_no"`
	Loop             bool     `yaml:"loop"`
	UseTangent       bool     `yaml:"use_tangent"`
	DefaultEasing    string   `yaml:"default_easing"`
	DefaultTangent   string   `yaml:"default_tangent"`
	Tolerance        float64  `yaml:"tolerance"`
	RequireBaseFrame bool     `yaml:"require_base_frame"`
	EasingScripts    []string `yaml:"easing_scripts"`

	// Playback
	Speed float64 `yaml:"speed"`

	// Export
	OutputDir     string `yaml:"output_dir"`
	PreviewWidth  int    `yaml:"preview_width"`
	PreviewHeight int    `yaml:"preview_height"`
	Workers       int    `yaml:"workers"`

	ShowStats    bool   `yaml:"show_stats"`
	BuildVersion string `yaml:"-"`
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	FrameRate  float64
	MaxFrameNo int
	Loop       bool
	UseTangent bool
	Easing     string
	Tangent    string
	Tolerance  float64
	Speed      float64
	OutputDir  string
	Workers    int
	ShowStats  bool
}

// Default returns the settings used without a config file.
func Default() Config {
	return Config{
		FrameRate:        layer.DefaultFrameRate,
		DefaultEasing:    easing.Linear.String(),
		DefaultTangent:   layer.TangentSmooth.String(),
		Tolerance:        layer.DefaultTolerance,
		RequireBaseFrame: true,
		Speed:            1,
		OutputDir:        "export",
		PreviewWidth:     640,
		PreviewHeight:    240,
	}
}

// Load reads a YAML config file on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve applies CLI flags, which take priority when non-zero, and fills
// the remaining empty fields with defaults.
func (c *Config) Resolve(flags Flags) {
	if flags.FrameRate > 0 {
		c.FrameRate = flags.FrameRate
	}
	if flags.MaxFrameNo > 0 {
		c.MaxFrameNo = flags.MaxFrameNo
	}
	if flags.Loop {
		c.Loop = true
	}
	if flags.UseTangent {
		c.UseTangent = true
	}
	if flags.Easing != "" {
		c.DefaultEasing = flags.Easing
	}
	if flags.Tangent != "" {
		c.DefaultTangent = flags.Tangent
	}
	if flags.Tolerance > 0 {
		c.Tolerance = flags.Tolerance
	}
	if flags.Speed != 0 {
		c.Speed = flags.Speed
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.ShowStats {
		c.ShowStats = true
	}

	def := Default()
	if c.FrameRate <= 0 {
		c.FrameRate = def.FrameRate
	}
	if c.Tolerance <= 0 {
		c.Tolerance = def.Tolerance
	}
	if c.Speed == 0 {
		c.Speed = def.Speed
	}
	if c.PreviewWidth <= 0 {
		c.PreviewWidth = def.PreviewWidth
	}
	if c.PreviewHeight <= 0 {
		c.PreviewHeight = def.PreviewHeight
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// LoadScripts registers every configured easing script with reg.
func (c *Config) LoadScripts(reg *easing.Registry) error {
	for _, path := range c.EasingScripts {
		if _, err := reg.LoadScriptFile(path); err != nil {
			return fmt.Errorf("config: easing script %s: %w", path, err)
		}
	}
	return nil
}

// LayerOptions maps the settings onto layer options. Easing names are
// resolved through easing.Default, so scripts must be loaded first.
func (c *Config) LayerOptions(logger *log.Logger) (layer.Options, error) {
	opts := layer.DefaultOptions()
	opts.FrameRate = c.FrameRate
	opts.MaxFrameNo = c.MaxFrameNo
	opts.Loop = c.Loop
	opts.UseTangent = c.UseTangent
	opts.Tolerance = c.Tolerance
	opts.RequireBaseFrame = c.RequireBaseFrame
	opts.Logger = logger

	if c.DefaultEasing != "" {
		e, err := easing.Parse(c.DefaultEasing)
		if err != nil {
			return opts, fmt.Errorf("config: %w", err)
		}
		opts.DefaultEasing = e
	}
	if c.DefaultTangent != "" {
		p, err := layer.ParseTangentPreset(c.DefaultTangent)
		if err != nil {
			return opts, fmt.Errorf("config: %w", err)
		}
		opts.DefaultTangent = p
	}
	return opts, nil
}
