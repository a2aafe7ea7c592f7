package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Version string        `yaml:"version" default:"1"`
	Site    SiteConfig    `yaml:"site"`
	Server  ServerConfig  `yaml:"server"`
	API     APIConfig     `yaml:"api"`
	Editor  EditorConfig  `yaml:"editor"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"Blockpress"`
	Description string `yaml:"description" default:"Posts composed block by block"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12600"`
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// APIConfig is where the composer finds the backend.
type APIConfig struct {
	BaseURL        string `yaml:"base_url" default:"http://localhost:12600/api/"`
	ChallengeURL   string `yaml:"challenge_url" default:"http://localhost:12600/auth/challenge"`
	TimeoutSeconds int    `yaml:"timeout_seconds" default:"15"`
}

func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type EditorConfig struct {
	Holder          string `yaml:"holder" default:"draft.json"`
	DebounceMS      int    `yaml:"debounce_ms" default:"100"`
	WriteDebounceMS int    `yaml:"write_debounce_ms" default:"150"`
	Autofocus       bool   `yaml:"autofocus" default:"true"`

	// Left empty, both are derived from api.base_url.
	UploadImageURL string `yaml:"upload_image_url" default:""`
	FetchURL       string `yaml:"fetch_url" default:""`
}

func (e EditorConfig) Debounce() time.Duration {
	return time.Duration(e.DebounceMS) * time.Millisecond
}

func (e EditorConfig) WriteDebounce() time.Duration {
	return time.Duration(e.WriteDebounceMS) * time.Millisecond
}

type AuthConfig struct {
	Enabled    bool   `yaml:"enabled" default:"true"`
	Type       string `yaml:"type" default:"ed25519"`
	HeaderName string `yaml:"header_name" default:"Authorization"`
	UserID     string `yaml:"user_id" default:"admin"`
}

type StorageConfig struct {
	DBPath    string   `yaml:"db_path" default:"blockpress.db"`
	CacheSize int      `yaml:"cache_size" default:"256"`
	S3        S3Config `yaml:"s3"`
}

// S3Config enables the post archive. Credentials come from the environment.
type S3Config struct {
	Enabled      bool   `yaml:"enabled" default:"false"`
	Bucket       string `yaml:"bucket" default:""`
	Region       string `yaml:"region" default:"us-east-1"`
	Endpoint     string `yaml:"endpoint" default:""`
	Prefix       string `yaml:"prefix" default:"posts/"`
	UsePathStyle bool   `yaml:"use_path_style" default:"false"`
}

type RenderConfig struct {
	SyntaxTheme string `yaml:"syntax_theme" default:"gruvbox"`
}

var AppConfig *Config

// LoadConfig reads path into AppConfig.
func LoadConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load applies defaults, then overlays the YAML file at path. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		return config, nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects values the composer or server cannot run with.
func (c *Config) Validate() error {
	if c.Editor.DebounceMS < 0 {
		return fmt.Errorf("editor.debounce_ms must not be negative, got %d", c.Editor.DebounceMS)
	}
	if strings.TrimSpace(c.Editor.Holder) == "" {
		return fmt.Errorf("editor.holder must not be empty")
	}
	if _, err := url.Parse(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if c.Storage.S3.Enabled && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when the archive is enabled")
	}
	switch c.Auth.Type {
	case "ed25519", "clerk":
	default:
		return fmt.Errorf("auth.type must be ed25519 or clerk, got %q", c.Auth.Type)
	}
	return nil
}

// ImageEndpoints returns the upload and fetch-by-url endpoints handed to the
// image tool.
func (c *Config) ImageEndpoints(uploadRel, fetchRel string) (string, string) {
	upload, fetch := c.Editor.UploadImageURL, c.Editor.FetchURL
	base := c.API.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if upload == "" {
		upload = base + uploadRel
	}
	if fetch == "" {
		fetch = base + fetchRel
	}
	return upload, fetch
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
