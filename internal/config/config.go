// Package config loads the vision-mcp settings file.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// Environment variables consulted by Load and the command.
const (
	EnvConfigPath = "VISION_MCP_CONFIG"
	EnvLogLevel   = "VISION_MCP_LOG_LEVEL"
)

// DefaultPath is used when neither --config nor VISION_MCP_CONFIG is set.
const DefaultPath = "vision-mcp.yaml"

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// OCRConfig selects the Tesseract language data.
type OCRConfig struct {
	Language       string `yaml:"language"`
	TessdataPrefix string `yaml:"tessdata_prefix"`
}

// ROISize is the ROI applied by coordinate connections to tools without one.
type ROISize struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PipelineConfig holds executor settings.
type PipelineConfig struct {
	DefaultROI ROISize `yaml:"default_roi"`
}

// OverlayConfig controls the coordinate grid drawn on exported overlays.
type OverlayConfig struct {
	GridSpacing int    `yaml:"grid_spacing"`
	GridColor   string `yaml:"grid_color"`
}

// AppConfig is the whole settings file.
type AppConfig struct {
	LogLevel string         `yaml:"log_level"`
	OCR      OCRConfig      `yaml:"ocr"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Overlay  OverlayConfig  `yaml:"overlay"`
}

func (c *AppConfig) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "eng"
	}
	if c.Pipeline.DefaultROI.Width <= 0 {
		c.Pipeline.DefaultROI.Width = 100
	}
	if c.Pipeline.DefaultROI.Height <= 0 {
		c.Pipeline.DefaultROI.Height = 100
	}
	if c.Overlay.GridSpacing <= 0 {
		c.Overlay.GridSpacing = 50
	}
	if c.Overlay.GridColor == "" {
		c.Overlay.GridColor = "#00FFFF"
	}
}

// Load reads a YAML settings file, expanding ${VAR} references in string
// values. A missing file yields the defaults. VISION_MCP_LOG_LEVEL overrides
// log_level.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	cfg.LogLevel = expandEnvString(cfg.LogLevel)
	cfg.OCR.Language = expandEnvString(cfg.OCR.Language)
	cfg.OCR.TessdataPrefix = expandEnvString(cfg.OCR.TessdataPrefix)
	cfg.Overlay.GridColor = expandEnvString(cfg.Overlay.GridColor)

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	cfg.applyDefaults()

	if _, err := cfg.GridColor(); err != nil {
		return nil, fmt.Errorf("config: overlay.grid_color: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ResolvePath picks the settings file: the flag value, then
// VISION_MCP_CONFIG, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// SlogLevel maps log_level to a slog level. Unknown names mean info.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GridColor parses overlay.grid_color.
func (c *AppConfig) GridColor() (color.RGBA, error) {
	return vimg.ParseHexColor(c.Overlay.GridColor)
}

func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}
