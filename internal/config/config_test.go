package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func TestSetLogger(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.InfoLevel)
	SetLogger(logger)

	// This test mainly ensures the function doesn't panic
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config content: %v", err)
	}
	return path
}

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		if config.Site.Name != "Blockpress" {
			t.Errorf("Expected site name 'Blockpress', got %q", config.Site.Name)
		}
		if config.Server.Addr() != "0.0.0.0:12600" {
			t.Errorf("Expected addr '0.0.0.0:12600', got %q", config.Server.Addr())
		}
		if config.API.BaseURL != "http://localhost:12600/api/" {
			t.Errorf("Expected default api base url, got %q", config.API.BaseURL)
		}
		if config.API.Timeout() != 15*time.Second {
			t.Errorf("Expected 15s timeout, got %v", config.API.Timeout())
		}

		if config.Editor.Holder != "draft.json" {
			t.Errorf("Expected holder 'draft.json', got %q", config.Editor.Holder)
		}
		if config.Editor.Debounce() != 100*time.Millisecond {
			t.Errorf("Expected 100ms debounce, got %v", config.Editor.Debounce())
		}
		if !config.Editor.Autofocus {
			t.Error("Expected autofocus to be enabled by default")
		}

		if !config.Auth.Enabled || config.Auth.Type != "ed25519" {
			t.Errorf("Expected ed25519 auth enabled, got %+v", config.Auth)
		}
		if config.Auth.HeaderName != "Authorization" {
			t.Errorf("Expected Authorization header, got %q", config.Auth.HeaderName)
		}

		if config.Storage.DBPath != "blockpress.db" {
			t.Errorf("Expected db path 'blockpress.db', got %q", config.Storage.DBPath)
		}
		if config.Storage.S3.Enabled {
			t.Error("Expected S3 archive to be disabled by default")
		}
		if config.Storage.S3.Prefix != "posts/" {
			t.Errorf("Expected S3 prefix 'posts/', got %q", config.Storage.S3.Prefix)
		}

		if config.Render.SyntaxTheme != "gruvbox" {
			t.Errorf("Expected syntax theme 'gruvbox', got %q", config.Render.SyntaxTheme)
		}
		if config.Logging.Level != "info" {
			t.Errorf("Expected logging level 'info', got %q", config.Logging.Level)
		}
	})

	t.Run("Custom struct with various field types", func(t *testing.T) {
		type TestStruct struct {
			StringField  string   `default:"test-string"`
			BoolField    bool     `default:"true"`
			IntField     int      `default:"42"`
			Int64Field   int64    `default:"7"`
			Float64Field float64  `default:"3.14"`
			SliceField   []string `default:"a, b ,c"`
			NoDefault    string
		}

		test := &TestStruct{}
		applyDefaults(test)

		if test.StringField != "test-string" {
			t.Errorf("Expected string field 'test-string', got %q", test.StringField)
		}
		if !test.BoolField {
			t.Error("Expected bool field to be true")
		}
		if test.IntField != 42 || test.Int64Field != 7 {
			t.Errorf("Expected int fields 42 and 7, got %d and %d", test.IntField, test.Int64Field)
		}
		if test.Float64Field != 3.14 {
			t.Errorf("Expected float64 field 3.14, got %f", test.Float64Field)
		}
		if !reflect.DeepEqual(test.SliceField, []string{"a", "b", "c"}) {
			t.Errorf("Expected trimmed slice, got %v", test.SliceField)
		}
		if test.NoDefault != "" {
			t.Errorf("Expected no default field to be empty, got %q", test.NoDefault)
		}
	})

	t.Run("Invalid default values", func(t *testing.T) {
		type InvalidStruct struct {
			BadBool  bool    `default:"not-a-bool"`
			BadInt   int     `default:"not-an-int"`
			BadFloat float64 `default:"not-a-float"`
		}

		test := &InvalidStruct{}
		applyDefaults(test)

		if test.BadBool || test.BadInt != 0 || test.BadFloat != 0 {
			t.Errorf("Expected invalid defaults to leave zero values, got %+v", test)
		}
	})

	t.Run("Non-struct input", func(t *testing.T) {
		stringVar := "test"
		applyDefaults(&stringVar)
		applyDefaults(stringVar)
		applyDefaults(42)
		applyDefaults(nil)
	})
}

func TestLoadConfig(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	t.Run("Load non-existent config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		if err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
			t.Errorf("Expected no error for non-existent config file, got %v", err)
		}
		if AppConfig == nil {
			t.Fatal("Expected AppConfig to be set with defaults")
		}
		if AppConfig.Site.Name != "Blockpress" {
			t.Errorf("Expected default site name, got %q", AppConfig.Site.Name)
		}
	})

	t.Run("Load valid config file", func(t *testing.T) {
		path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: "8080"
editor:
  holder: "/tmp/post.json"
  debounce_ms: 250
storage:
  s3:
    enabled: true
    bucket: "archive"
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Expected no error loading valid config, got %v", err)
		}

		if cfg.Server.Addr() != "127.0.0.1:8080" {
			t.Errorf("Expected addr '127.0.0.1:8080', got %q", cfg.Server.Addr())
		}
		if cfg.Editor.Holder != "/tmp/post.json" {
			t.Errorf("Expected holder '/tmp/post.json', got %q", cfg.Editor.Holder)
		}
		if cfg.Editor.Debounce() != 250*time.Millisecond {
			t.Errorf("Expected 250ms debounce, got %v", cfg.Editor.Debounce())
		}
		if !cfg.Storage.S3.Enabled || cfg.Storage.S3.Bucket != "archive" {
			t.Errorf("Expected S3 archive enabled, got %+v", cfg.Storage.S3)
		}

		// Unspecified fields keep their defaults
		if cfg.Storage.S3.Region != "us-east-1" {
			t.Errorf("Expected default region, got %q", cfg.Storage.S3.Region)
		}
		if !cfg.Editor.Autofocus {
			t.Error("Expected default autofocus to survive a partial file")
		}
	})

	t.Run("Load invalid YAML file", func(t *testing.T) {
		path := writeConfig(t, `
site:
  name: "Test Blog"
  invalid yaml syntax [
`)
		_, err := Load(path)
		if err == nil {
			t.Fatal("Expected error loading invalid config file")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected parse error, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errPart string
	}{
		{"negative debounce", "editor:\n  debounce_ms: -1\n", "debounce_ms"},
		{"empty holder", "editor:\n  holder: \" \"\n", "holder"},
		{"s3 without bucket", "storage:\n  s3:\n    enabled: true\n", "bucket"},
		{"unknown auth", "auth:\n  type: basic\n", "auth.type"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tc.errPart) {
				t.Errorf("Expected error mentioning %q, got %v", tc.errPart, err)
			}
		})
	}
}

func TestImageEndpoints(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	upload, fetch := cfg.ImageEndpoints("posts/upload-image/", "posts/fetch-url/")
	if upload != "http://localhost:12600/api/posts/upload-image/" {
		t.Errorf("Unexpected upload endpoint %q", upload)
	}
	if fetch != "http://localhost:12600/api/posts/fetch-url/" {
		t.Errorf("Unexpected fetch endpoint %q", fetch)
	}

	cfg.Editor.UploadImageURL = "https://cdn.example/upload"
	upload, _ = cfg.ImageEndpoints("posts/upload-image/", "posts/fetch-url/")
	if upload != "https://cdn.example/upload" {
		t.Errorf("Expected explicit upload endpoint, got %q", upload)
	}
}

// TestConfigDefaultsGoldenFile keeps testdata/defaults.yaml in step with the
// struct tags.
func TestConfigDefaultsGoldenFile(t *testing.T) {
	goldenData, err := os.ReadFile("testdata/defaults.yaml")
	if err != nil {
		t.Fatalf("Failed to read golden defaults file: %v", err)
	}

	var golden Config
	if err := yaml.Unmarshal(goldenData, &golden); err != nil {
		t.Fatalf("Failed to parse golden config: %v", err)
	}

	cfg := &Config{}
	ApplyDefaults(cfg)

	if !reflect.DeepEqual(*cfg, golden) {
		t.Errorf("Defaults drifted from golden file:\n got %+v\nwant %+v", *cfg, golden)
	}
}
