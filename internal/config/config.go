// Package config resolves the session configuration from command-line flags,
// an optional TOML file and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/lumberjack"

	"pixel-labeler/internal/camera"
	"pixel-labeler/internal/labels"
)

// Duration is a time.Duration written as "30s" or "2m" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ViewConfig bounds the camera zoom.
type ViewConfig struct {
	MinZoom float64 `toml:"min_zoom"`
	MaxZoom float64 `toml:"max_zoom"`
}

// BrushConfig sets the initial brush radius and the palette slider range.
type BrushConfig struct {
	Size int `toml:"size"`
	Min  int `toml:"min"`
	Max  int `toml:"max"`
}

// LabelerConfig tunes the render loop.
type LabelerConfig struct {
	Opacity          int      `toml:"opacity"`
	AutosaveInterval Duration `toml:"autosave_interval"`
	FrameInterval    Duration `toml:"frame_interval"`
}

// LogConfig routes log output to a rotating file.
type LogConfig struct {
	Logfile string
	MaxSize int `toml:"max_log_size"`
	MaxAge  int `toml:"max_log_age"`
}

// Session holds the file paths of one labeling session.
type Session struct {
	ImagePath     string
	MetadataPath  string
	PriorMaskPath string
	OutputPath    string
}

// Config is the resolved session configuration.
type Config struct {
	View    ViewConfig    `toml:"view"`
	Brush   BrushConfig   `toml:"brush"`
	Labeler LabelerConfig `toml:"labeler"`
	Logging LogConfig     `toml:"logging"`

	Session Session `toml:"-"`
}

// Flags are the command-line values. Empty strings mean "not given".
type Flags struct {
	Image        string
	Metadata     string
	Segmentation string
	Output       string
	ConfigPath   string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		View:  ViewConfig{MinZoom: camera.DefaultMinZoom, MaxZoom: camera.DefaultMaxZoom},
		Brush: BrushConfig{Size: 5, Min: 5, Max: 50},
		Labeler: LabelerConfig{
			Opacity:       5,
			FrameInterval: Duration{16 * time.Millisecond},
		},
	}
}

// Load decodes a TOML file over the defaults. Relative log file paths are
// taken relative to the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not decode TOML config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		log.Printf("config: ignoring unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Logging.Logfile != "" && !filepath.IsAbs(cfg.Logging.Logfile) {
		cfg.Logging.Logfile = filepath.Join(filepath.Dir(path), cfg.Logging.Logfile)
	}
	return cfg, nil
}

// Resolve merges flags over the config file over the defaults and checks
// the result.
func Resolve(f Flags) (Config, error) {
	cfg := Default()
	if f.ConfigPath != "" {
		var err error
		if cfg, err = Load(f.ConfigPath); err != nil {
			return cfg, err
		}
	}

	cfg.Session = Session{
		ImagePath:     f.Image,
		MetadataPath:  f.Metadata,
		PriorMaskPath: f.Segmentation,
		OutputPath:    f.Output,
	}
	if cfg.Session.OutputPath == "" && f.Image != "" {
		cfg.Session.OutputPath = DefaultOutputPath(f.Image)
	}
	err := cfg.Validate()
	return cfg, err
}

// DefaultOutputPath derives "<dir>/<stem>_labels.png" from the image path.
func DefaultOutputPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + "_labels.png"
}

// Validate checks ranges and required paths.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.ImagePath == "" {
		errs = append(errs, errors.New("an image path is required"))
	}
	if c.Session.MetadataPath == "" {
		errs = append(errs, errors.New("a label metadata path is required"))
	}
	if c.Session.OutputPath != "" {
		if _, err := labels.FormatFor(c.Session.OutputPath); err != nil {
			errs = append(errs, err)
		}
	}
	if c.View.MinZoom <= 0 || c.View.MinZoom >= c.View.MaxZoom {
		errs = append(errs, fmt.Errorf("zoom range [%g, %g] is invalid", c.View.MinZoom, c.View.MaxZoom))
	}
	if c.Brush.Min < 1 || c.Brush.Min > c.Brush.Max {
		errs = append(errs, fmt.Errorf("brush range [%d, %d] is invalid", c.Brush.Min, c.Brush.Max))
	} else {
		c.Brush.Size = min(max(c.Brush.Size, c.Brush.Min), c.Brush.Max)
	}
	if c.Labeler.Opacity < 0 || c.Labeler.Opacity > 9 {
		errs = append(errs, fmt.Errorf("opacity %d is outside 0..9", c.Labeler.Opacity))
	}
	if c.Labeler.FrameInterval.Duration <= 0 {
		c.Labeler.FrameInterval.Duration = Default().Labeler.FrameInterval.Duration
	}
	return errors.Join(errs...)
}

// SetLogger sends the standard logger to a rotating log file. It returns the
// file logger so the caller can close it, or nil when no file is configured.
func (c *LogConfig) SetLogger() *lumberjack.Logger {
	if c == nil || c.Logfile == "" {
		return nil
	}
	log.Printf("Sending log messages to: %s", c.Logfile)
	l := &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize, // megabytes
		MaxAge:   c.MaxAge,  // days
	}
	log.SetOutput(l)
	return l
}
