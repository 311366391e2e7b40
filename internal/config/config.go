package config

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"strata.dev/internal/coords"
	"strata.dev/internal/region"
	"strata.dev/internal/render"
	"strata.dev/internal/voxel"
)

type Config struct {
	RegionDir string        `yaml:"region_dir"`
	RegionExt string        `yaml:"region_ext"`
	Bounds    coords.Volume `yaml:"bounds"`

	Voxels   VoxelsConfig   `yaml:"voxels"`
	Textures TexturesConfig `yaml:"textures"`
	Render   RenderConfig   `yaml:"render"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

type VoxelsConfig struct {
	Empty  string   `yaml:"empty"`
	Exempt []string `yaml:"exempt"`
}

type TexturesConfig struct {
	Dir     string `yaml:"dir"`
	Aliases string `yaml:"aliases"`
}

type RenderConfig struct {
	Background           string `yaml:"background"`
	GridColor            string `yaml:"grid_color"`
	CoarseDivisions      int    `yaml:"coarse_divisions"`
	FineDivisions        int    `yaml:"fine_divisions"`
	CoarseWidth          int    `yaml:"coarse_width"`
	FineWidth            int    `yaml:"fine_width"`
	NormalizePasteCounts bool   `yaml:"normalize_paste_counts"`
}

type OutputConfig struct {
	DataDir    string `yaml:"data_dir"`
	LegacyJSON bool   `yaml:"legacy_json"`
	IndexDB    string `yaml:"index_db"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads a YAML config on top of Defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Defaults() Config {
	return Config{
		RegionExt: region.DefaultExt,
		Voxels: VoxelsConfig{
			Empty:  "air",
			Exempt: []string{"air", "water", "short_grass"},
		},
		Textures: TexturesConfig{Dir: "textures/block"},
		Render: RenderConfig{
			Background:      "white",
			GridColor:       "#808080",
			CoarseDivisions: 32,
			FineDivisions:   160,
			CoarseWidth:     5,
			FineWidth:       1,
		},
		Output: OutputConfig{
			DataDir:    "data",
			LegacyJSON: true,
		},
		Log: LogConfig{MaxSizeMB: 16, MaxAgeDays: 14},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.RegionExt = strings.TrimPrefix(strings.TrimSpace(c.RegionExt), ".")
	if c.RegionExt == "" {
		c.RegionExt = region.DefaultExt
	}
	c.Voxels.Empty = string(voxel.Parse(c.Voxels.Empty))
	if c.Voxels.Empty == "" {
		c.Voxels.Empty = string(voxel.Air)
	}
	for i, t := range c.Voxels.Exempt {
		c.Voxels.Exempt[i] = string(voxel.Parse(t))
	}
	if c.Render.CoarseWidth <= 0 {
		c.Render.CoarseWidth = 1
	}
	if c.Render.FineWidth <= 0 {
		c.Render.FineWidth = 1
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 16
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.RegionDir) == "" {
		return fmt.Errorf("region_dir must not be empty")
	}
	if err := c.Bounds.Validate(); err != nil {
		return fmt.Errorf("bounds: %w", err)
	}
	if c.Render.CoarseDivisions < 0 || c.Render.FineDivisions < 0 {
		return fmt.Errorf("render divisions must be >= 0")
	}
	if _, err := ParseColor(c.Render.Background); err != nil {
		return fmt.Errorf("render.background: %w", err)
	}
	if _, err := ParseColor(c.Render.GridColor); err != nil {
		return fmt.Errorf("render.grid_color: %w", err)
	}
	if c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log.max_age_days must be >= 0")
	}
	return nil
}

func (c Config) Palette() voxel.Palette {
	exempt := make([]voxel.Type, len(c.Voxels.Exempt))
	for i, t := range c.Voxels.Exempt {
		exempt[i] = voxel.Type(t)
	}
	return voxel.NewPalette(voxel.Type(c.Voxels.Empty), exempt)
}

// RenderOptions assumes Validate passed.
func (c Config) RenderOptions() render.Options {
	o := render.DefaultOptions()
	o.Palette = c.Palette()
	if bg, err := ParseColor(c.Render.Background); err == nil {
		o.Background = bg
	}
	if gc, err := ParseColor(c.Render.GridColor); err == nil {
		o.GridColor = gc
	}
	o.CoarseDivisions = c.Render.CoarseDivisions
	o.FineDivisions = c.Render.FineDivisions
	o.CoarseWidth = c.Render.CoarseWidth
	o.FineWidth = c.Render.FineWidth
	o.NormalizePasteCounts = c.Render.NormalizePasteCounts
	return o
}

// ParseColor accepts SVG colour names ("white", "slategray") and hex ("#808080").
func ParseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("unknown colour %q", s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
