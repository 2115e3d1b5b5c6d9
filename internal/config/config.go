// Package config handles gecko.toml run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const FileName = "gecko.toml"

// DefaultMaxSteps bounds a run when no configuration says otherwise
const DefaultMaxSteps = 10_000_000

// DefaultMaxDepth bounds nested calls when no configuration says otherwise
const DefaultMaxDepth = 512

// Config represents a gecko.toml file.
type Config struct {
	Run    Run    `toml:"run"`
	Output Output `toml:"output"`

	// Path is the file the configuration was read from (empty for defaults).
	Path string `toml:"-"`
	// Unknown lists keys present in the file that no field consumed.
	Unknown []string `toml:"-"`
}

// Run configures the virtual machine.
type Run struct {
	MaxSteps int  `toml:"max_steps"`
	MaxDepth int  `toml:"max_depth"`
	Trace    bool `toml:"trace"`
}

// Output configures what the CLI prints.
type Output struct {
	Color       bool `toml:"color"`
	Disassemble bool `toml:"disassemble"`
}

// Default returns the configuration used when no file is found
func Default() *Config {
	return &Config{
		Run:    Run{MaxSteps: DefaultMaxSteps, MaxDepth: DefaultMaxDepth},
		Output: Output{Color: true},
	}
}

// Load parses the gecko.toml file in dir. Keys missing from the file keep
// their default values.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	return Parse(path, string(data))
}

// Parse decodes configuration text; path is only used in messages
func Parse(path, data string) (*Config, error) {
	c := Default()

	md, err := toml.Decode(data, c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	for _, key := range md.Undecoded() {
		c.Unknown = append(c.Unknown, key.String())
	}

	if c.Run.MaxSteps < 0 {
		return nil, fmt.Errorf("%s: run.max_steps must not be negative, got %d", path, c.Run.MaxSteps)
	}

	if c.Run.MaxDepth <= 0 {
		return nil, fmt.Errorf("%s: run.max_depth must be positive, got %d", path, c.Run.MaxDepth)
	}

	c.Path = path
	return c, nil
}

// FindAndLoad walks up from startDir to find a gecko.toml file and loads
// it. Without a file the defaults are returned.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// String renders the effective configuration as TOML
func (c *Config) String() string {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return err.Error()
	}
	return sb.String()
}
