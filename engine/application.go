package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/hierarchy"
	"github.com/spaghettifunk/strata/engine/systems"
)

var ErrInvalidConfig = errors.New("invalid application config")

type ApplicationConfig struct {
	// The application name used as log prefix and in viewer logs.
	Name string `toml:"name"`
	// Layout file to process (.json, .yaml, .yml or a registered format).
	LayoutPath string `toml:"layout"`
	// Layer stack file (.toml, .yaml, .yml). Empty uses the SKY130 stack.
	LayerStackPath string `toml:"layer_stack"`
	// Emit wireframes instead of solids.
	Lines bool `toml:"lines"`
	// Reference levels flattened into each cell, negative for all.
	Depth int `toml:"depth"`
	// Cells processed in parallel; 0 or 1 is sequential.
	Workers int `toml:"workers"`
	// debug, info, warn, error or fatal.
	LogLevel string `toml:"log_level"`
	// Address the viewer websocket is served on, empty disables it.
	ListenAddr string `toml:"listen"`
	// Re-process when the layout or layer stack changes.
	Watch bool `toml:"watch"`
	// GDS property attribute naming instances, 0 takes the first one.
	InstanceAttribute uint64 `toml:"instance_attribute"`
	// Initial size and growth step of each mesh buffer.
	BufferBytes int `toml:"buffer_bytes"`
	// Frames a viewer may lag behind before being dropped.
	QueueSize int `toml:"queue_size"`
	// Bytes of viewer messages kept for replay to late viewers.
	HistoryBytes int `toml:"history_bytes"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:     "strata",
		LogLevel: "info",
	}
}

// LoadApplicationConfig reads a TOML file over the defaults. Unknown keys
// are rejected.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	config := DefaultApplicationConfig()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.LayoutPath == "" {
		return fmt.Errorf("%w: no layout file given", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.BufferBytes < 0 {
		return fmt.Errorf("%w: buffer_bytes must not be negative, got %d", ErrInvalidConfig, c.BufferBytes)
	}
	if c.HistoryBytes < 0 {
		return fmt.Errorf("%w: history_bytes must not be negative, got %d", ErrInvalidConfig, c.HistoryBytes)
	}
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Namer returns the instance naming strategy the config selects.
func (c *ApplicationConfig) Namer() hierarchy.Namer {
	if c.InstanceAttribute == 0 {
		return hierarchy.FirstGDSProperty
	}
	return hierarchy.Chain(hierarchy.GDSAttribute(c.InstanceAttribute), hierarchy.FirstGDSProperty)
}

func (c *ApplicationConfig) systemManagerConfig() *systems.SystemManagerConfig {
	return &systems.SystemManagerConfig{
		LayerStackPath: c.LayerStackPath,
		Workers:        c.Workers,
		Processor: systems.ProcessorConfig{
			Lines:       c.Lines,
			Depth:       c.Depth,
			BufferBytes: c.BufferBytes,
			Namer:       c.Namer(),
		},
	}
}
