// Package config loads tspingest settings.
//
// Values are layered from lowest to highest priority:
//  1. defaults in code
//  2. the YAML file (tspingest.yaml unless a path is given)
//  3. TSPINGEST_* environment variables
//
// Command line flags are applied on top by the caller before Validate.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit config path is given and it exists.
const DefaultFile = "tspingest.yaml"

const (
	envDatabase = "TSPINGEST_DATABASE"
	envWorkers  = "TSPINGEST_WORKERS"
	envLogLevel = "TSPINGEST_LOG_LEVEL"
)

// Config holds all tunables for parsing, storage, fetching and logging.
type Config struct {
	Database    string   `yaml:"database" validate:"required"`
	Workers     int      `yaml:"workers" validate:"min=1,max=256"`
	LogLevel    string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	Development bool     `yaml:"development"`
	MetricsFile string   `yaml:"metrics_file"`
	Include     []string `yaml:"include" validate:"min=1,dive,required"`
	Mirror      string   `yaml:"mirror" validate:"required,url"`
	CacheDir    string   `yaml:"cache_dir" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: "./tsplib.db",
		Workers:  4,
		LogLevel: "info",
		Include: []string{
			"*.tsp", "*.atsp", "*.vrp", "*.hcp", "*.sop", "*.tour",
			"*.gz", "*.tar.gz", "*.tgz",
		},
		Mirror:   "http://comopt.ifi.uni-heidelberg.de/software/TSPLIB95",
		CacheDir: "~/.tspingest/cache",
	}
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path reads DefaultFile if present. The result is
// not validated; call Validate after applying flag overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.loadFile(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	if v := os.Getenv(envDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(envWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", envWorkers, v)
		}
		c.Workers = n
	}
	return nil
}

// ExpandedCacheDir resolves a leading ~ in CacheDir against the home directory.
func (c *Config) ExpandedCacheDir() (string, error) {
	if c.CacheDir != "~" && !strings.HasPrefix(c.CacheDir, "~/") {
		return c.CacheDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(c.CacheDir, "~")), nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML key.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field and reports all violations at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fieldMessage(e))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func fieldMessage(e validator.FieldError) string {
	field := e.Namespace()
	if idx := strings.IndexByte(field, '.'); idx != -1 {
		field = field[idx+1:]
	}
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, e.Param(), e.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %v", field, e.Value())
	}
	return fmt.Sprintf("%s failed %s", field, e.Tag())
}
