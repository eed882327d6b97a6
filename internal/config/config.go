// Package config loads the formcheck run configuration.
//
// The configuration is a YAML file, formcheck.yaml by convention. Omitted
// keys keep their defaults, unknown keys are rejected, and relative paths
// resolve against the directory holding the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file name looked up when none is given.
const DefaultFile = "formcheck.yaml"

// Config is the run configuration.
type Config struct {
	// BaseURL is the address of the signup form under test.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Registry is a YAML or CUE field registry file. Empty selects the
	// built-in signup registry.
	Registry string `yaml:"registry,omitempty" json:"registry,omitempty"`

	// Scenarios is the directory of scenario files.
	Scenarios string `yaml:"scenarios" json:"scenarios"`

	// DB is the run-history database. Empty disables history.
	DB string `yaml:"db,omitempty" json:"db,omitempty"`

	Wait    Wait    `yaml:"wait" json:"wait"`
	Browser Browser `yaml:"browser" json:"browser"`
	Signup  Signup  `yaml:"signup" json:"signup"`

	// Root is the directory relative paths resolve against.
	// Set after loading, not from YAML.
	Root string `yaml:"-" json:"-"`
}

// Wait is the bounded wait policy for UI reads.
type Wait struct {
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// Browser configures the headless Chrome session.
type Browser struct {
	Headless bool   `yaml:"headless" json:"headless"`
	ExecPath string `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
	Width    int    `yaml:"width,omitempty" json:"width,omitempty"`
	Height   int    `yaml:"height,omitempty" json:"height,omitempty"`
}

// Signup tunes the built-in signup registry.
type Signup struct {
	LastNameRequired bool `yaml:"last_name_required" json:"last_name_required"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Scenarios: "scenarios",
		DB:        "formcheck.db",
		Wait: Wait{
			Timeout:  5 * time.Second,
			Interval: 100 * time.Millisecond,
		},
		Browser: Browser{Headless: true},
		Signup:  Signup{LastNameRequired: true},
		Root:    ".",
	}
}

// Load reads a configuration file over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return Config{}, err
	}
	cfg.Root = root
	return cfg, nil
}

// LoadOrDefault loads path if it exists. A missing file yields the
// defaults only when path is DefaultFile; a missing explicit file is an
// error.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		path = DefaultFile
	}
	cfg, err := Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) && path == DefaultFile {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes a configuration document over the defaults and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and the base URL.
func (c Config) Validate() error {
	if c.Wait.Timeout <= 0 {
		return fmt.Errorf("wait.timeout must be positive, got %s", c.Wait.Timeout)
	}
	if c.Wait.Interval <= 0 {
		return fmt.Errorf("wait.interval must be positive, got %s", c.Wait.Interval)
	}
	if c.Wait.Interval > c.Wait.Timeout {
		return fmt.Errorf("wait.interval %s exceeds wait.timeout %s", c.Wait.Interval, c.Wait.Timeout)
	}
	if c.Browser.Width < 0 || c.Browser.Height < 0 {
		return fmt.Errorf("browser size must not be negative")
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("base_url: scheme must be http or https, got %q", u.Scheme)
		}
	}
	return nil
}

// Path resolves p against Root. Absolute and empty paths are returned as is.
func (c Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}
