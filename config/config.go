// Package config loads the server configuration from a YAML file and the
// PDFTPL_* environment variables.
//
// Precedence, lowest first: built-in defaults, the YAML file, the
// environment. Command-line flags in cmd/ are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

	"github.com/lvillar/pdftemplate/render"
)

// DefaultJWTSecret is the signing secret used when none is configured. It
// is only fit for local development.
const DefaultJWTSecret = "change-me-in-production"

// Config is the complete server configuration.
type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
	Render  Render  `yaml:"render"`
	Log     Log     `yaml:"log"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimit      int           `yaml:"rate_limit"` // render requests per minute, 0 disables
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// Storage configures the data directories. Empty directories are derived
// from DataDir.
type Storage struct {
	DataDir      string `yaml:"data_dir"`
	TemplatesDir string `yaml:"templates_dir"`
	UploadsDir   string `yaml:"uploads_dir"`
	UsersDir     string `yaml:"users_dir"`
	FontsDir     string `yaml:"fonts_dir"`
}

// Auth configures password hashing and tokens.
type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// Render configures the renderer.
type Render struct {
	CheckboxMode string `yaml:"checkbox_mode"` // value, configured
}

// Log configures the zap logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:      120,
			MaxUploadBytes: 50 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   2 * time.Minute,
		},
		Storage: Storage{
			DataDir:  "data",
			FontsDir: "fonts",
		},
		Auth: Auth{
			JWTSecret:  DefaultJWTSecret,
			BcryptCost: 12,
		},
		Render: Render{CheckboxMode: string(render.CheckValue)},
		Log:    Log{Level: "info"},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PDFTPL_ADDR", &c.Server.Addr)
	str("PDFTPL_DATA_DIR", &c.Storage.DataDir)
	str("PDFTPL_FONTS_DIR", &c.Storage.FontsDir)
	str("PDFTPL_JWT_SECRET", &c.Auth.JWTSecret)
	str("PDFTPL_CHECKBOX_MODE", &c.Render.CheckboxMode)
	str("PDFTPL_LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("PDFTPL_ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	if v, ok := lookup("PDFTPL_RATE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PDFTPL_RATE_LIMIT: %w", err)
		}
		c.Server.RateLimit = n
	}
	return nil
}

// fill derives the unset directories from DataDir.
func (c *Config) fill() {
	s := &c.Storage
	if s.TemplatesDir == "" {
		s.TemplatesDir = filepath.Join(s.DataDir, "templates")
	}
	if s.UploadsDir == "" {
		s.UploadsDir = filepath.Join(s.DataDir, "uploads")
	}
	if s.UsersDir == "" {
		s.UsersDir = filepath.Join(s.DataDir, "users")
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is empty")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("config: server.rate_limit must not be negative")
	}
	if c.Storage.DataDir == "" {
		return errors.New("config: storage.data_dir is empty")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is empty")
	}
	if _, err := c.CheckboxMode(); err != nil {
		return fmt.Errorf("config: render.checkbox_mode: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}

// CheckboxMode returns the parsed render.checkbox_mode.
func (c *Config) CheckboxMode() (render.CheckboxMode, error) {
	return render.ParseCheckboxMode(c.Render.CheckboxMode)
}

// Logger builds the configured zap logger.
func (l Log) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
