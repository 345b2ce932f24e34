// Package config handles configuration for uiharness, including the layout of
// the application under test.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/uiharness/pkg/registry"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Settle modes.
const (
	SettleSync  = "sync"
	SettleAsync = "async"
)

// Config represents the server configuration (uiharness.yaml).
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Settle  SettleConfig  `yaml:"settle"`
	Layout  Layout        `yaml:"layout"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host      string  `yaml:"host" validate:"required"`
	Port      int     `yaml:"port" validate:"min=0,max=65535"` // 0 picks a free port
	RateLimit float64 `yaml:"rateLimit" validate:"gte=0"`      // Requests per second, 0 = unlimited
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures pkg/logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	File  string `yaml:"file"`
}

// SettleConfig controls when tap effects become visible to queries.
type SettleConfig struct {
	Mode      string        `yaml:"mode" validate:"oneof=sync async"`
	Delay     time.Duration `yaml:"delay" validate:"gte=0"`
	QueueSize int           `yaml:"queueSize" validate:"gte=1"`
}

// Layout declares the elements, counters and scrollable containers.
type Layout struct {
	Elements   []registry.Element `yaml:"elements" validate:"dive"`
	Counters   []CounterSpec      `yaml:"counters" validate:"dive"`
	Containers []ContainerSpec    `yaml:"containers" validate:"dive"`
}

// CounterSpec binds a counter to the element displaying it.
type CounterSpec struct {
	Key     string `yaml:"key" validate:"required"`
	Display string `yaml:"display" validate:"required"`
}

// ContainerSpec declares a vertical list. Items reference list-item
// elements; Generate appends numbered items and their elements.
type ContainerSpec struct {
	Key          string        `yaml:"key" validate:"required"`
	Items        []string      `yaml:"items"`
	Generate     *GenerateSpec `yaml:"generate"`
	ViewportSize int           `yaml:"viewportSize" validate:"min=1"`
	RowHeight    int           `yaml:"rowHeight" validate:"gte=0"`
	Offset       int           `yaml:"offset" validate:"gte=0"`
	Virtualized  bool          `yaml:"virtualized"`
}

// GenerateSpec produces Count items keyed Prefix+i with text fmt(Text, i).
type GenerateSpec struct {
	Prefix string `yaml:"prefix" validate:"required"`
	Count  int    `yaml:"count" validate:"min=1,max=100000"`
	Start  int    `yaml:"start"`
	Text   string `yaml:"text"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: invalid built-in defaults: %v", err))
	}
	return &cfg
}

// Load loads configuration from a file, on top of the defaults. A layout in
// the file replaces the default layout as a whole.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration bytes on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	defaultLayout := cfg.Layout

	var overlay struct {
		Layout *Layout `yaml:"layout"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.Layout = defaultLayout
	if overlay.Layout != nil {
		cfg.Layout = *overlay.Layout
	}
	return cfg, nil
}

// LoadFromDir looks for uiharness.yaml or uiharness.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try uiharness.yaml first
	configPath := filepath.Join(dir, "uiharness.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try uiharness.yml
	configPath = filepath.Join(dir, "uiharness.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return defaults
	return Default(), nil
}
