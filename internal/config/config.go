package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/texsketch/texsketch/backend-go/internal/document"
	"github.com/texsketch/texsketch/backend-go/internal/engine"
	"github.com/texsketch/texsketch/backend-go/internal/textbox"
)

// Editor holds the limits every new editor is created with.
type Editor struct {
	MaxHistory       int     `envconfig:"MAX_HISTORY" yaml:"maxHistory" validate:"min=1"`
	NodeHitRadius    float64 `envconfig:"NODE_HIT_RADIUS" yaml:"nodeHitRadius" validate:"gt=0"`
	EdgeHitRadius    float64 `envconfig:"EDGE_HIT_RADIUS" yaml:"edgeHitRadius" validate:"gt=0"`
	DragThreshold    float64 `envconfig:"DRAG_THRESHOLD" yaml:"dragThreshold" validate:"gt=0"`
	MinScale         float64 `envconfig:"MIN_SCALE" yaml:"minScale" validate:"gt=0,lt=1"`
	MinFontSize      float64 `envconfig:"MIN_FONT_SIZE" yaml:"minFontSize" validate:"gt=0"`
	MaxFontSize      float64 `envconfig:"MAX_FONT_SIZE" yaml:"maxFontSize" validate:"gtfield=MinFontSize"`
	DefaultColor     string  `envconfig:"DEFAULT_COLOR" yaml:"defaultColor" validate:"hexcolor"`
	DefaultLineWidth float64 `envconfig:"DEFAULT_LINE_WIDTH" yaml:"defaultLineWidth" validate:"gt=0"`
	DefaultFontSize  float64 `envconfig:"DEFAULT_FONT_SIZE" yaml:"defaultFontSize" validate:"gt=0"`
	FramePadding     float64 `envconfig:"FRAME_PADDING" yaml:"framePadding" validate:"gte=0"`
}

type Config struct {
	Port           int    `envconfig:"PORT" yaml:"port" validate:"min=1,max=65535"`
	LogLevel       string `envconfig:"LOG_LEVEL" yaml:"logLevel" validate:"oneof=debug info warn error"`
	Development    bool   `envconfig:"DEVELOPMENT" yaml:"development"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" yaml:"allowedOrigins"`
	FontFile       string `envconfig:"FONT_FILE" yaml:"fontFile"`
	ConfigFile     string `envconfig:"CONFIG_FILE" yaml:"-"`

	Editor `yaml:"editor"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Port:           8080,
		LogLevel:       "info",
		AllowedOrigins: "localhost:5173,localhost:3000",
		Editor: Editor{
			MaxHistory:       50,
			NodeHitRadius:    8,
			EdgeHitRadius:    5,
			DragThreshold:    5,
			MinScale:         0.05,
			MinFontSize:      textbox.DefaultMinFontSize,
			MaxFontSize:      textbox.DefaultMaxFontSize,
			DefaultColor:     "#000000",
			DefaultLineWidth: 2,
			DefaultFontSize:  textbox.DefaultFontSize,
			FramePadding:     2,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if any, then environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = path
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Origins splits AllowedOrigins into websocket origin patterns.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// EditorOptions turns the editor limits into engine options. Ids, renderer,
// logger and observer are left for the caller.
func (c *Config) EditorOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.MaxHistory = c.MaxHistory
	opts.NodeHitRadius = c.NodeHitRadius
	opts.EdgeHitRadius = c.EdgeHitRadius
	opts.DragThreshold = c.DragThreshold
	opts.MinScale = c.MinScale
	opts.FramePadding = c.FramePadding
	opts.FontLimits = textbox.Limits{MinFontSize: c.MinFontSize, MaxFontSize: c.MaxFontSize}
	opts.Style = document.Style{Color: c.DefaultColor, LineWidth: c.DefaultLineWidth, FontSize: c.DefaultFontSize}
	return opts
}
