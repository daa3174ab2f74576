// Package config loads history engine settings from CUE or YAML files.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rewind/internal/undo"
)

//go:embed schema.cue
var schemaCUE string

var (
	// ErrUnsupportedFormat is returned for files that are neither CUE nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrInvalid is returned when settings violate their constraints.
	ErrInvalid = errors.New("invalid config")
)

// MaxDebounceTicks bounds DebounceTicks.
const MaxDebounceTicks = 64

// DefaultTickInterval is the default Run cadence (about 60 frames per second).
const DefaultTickInterval = 16 * time.Millisecond

// Config holds history engine settings.
//
// HistoryCapacity bounds each history stack; 0 means unbounded, so any
// non-negative value is accepted. DebounceTicks must be at least
// undo.MinDebounceTicks.
type Config struct {
	HistoryCapacity int           `yaml:"history_capacity"`
	DebounceTicks   int           `yaml:"debounce_ticks"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	JournalPath     string        `yaml:"journal_path"`
}

// rawConfig mirrors #Config for CUE decoding, which has no duration type.
type rawConfig struct {
	HistoryCapacity int    `json:"history_capacity"`
	DebounceTicks   int    `json:"debounce_ticks"`
	TickInterval    string `json:"tick_interval"`
	JournalPath     string `json:"journal_path"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HistoryCapacity: undo.DefaultCapacity,
		DebounceTicks:   undo.DefaultDebounceTicks,
		TickInterval:    DefaultTickInterval,
	}
}

// Load reads settings from path. The format follows the extension:
// .cue, or .yaml/.yml. Fields left out keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(data, filepath.Base(path))
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ParseCUE unifies data with the embedded #Config schema and decodes the
// result. name is used in error positions.
func ParseCUE(data []byte, name string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return Config{}, fmt.Errorf("compile %s: %w", name, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var raw rawConfig
	if err := unified.Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", name, err)
	}

	interval, err := time.ParseDuration(raw.TickInterval)
	if err != nil {
		return Config{}, fmt.Errorf("%w: tick_interval: %v", ErrInvalid, err)
	}

	cfg := Config{
		HistoryCapacity: raw.HistoryCapacity,
		DebounceTicks:   raw.DebounceTicks,
		TickInterval:    interval,
		JournalPath:     raw.JournalPath,
	}
	return cfg, cfg.Validate()
}

// ParseYAML decodes data over the defaults, rejecting unknown fields.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings' constraints.
func (c Config) Validate() error {
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("%w: history_capacity must be >= 0, got %d", ErrInvalid, c.HistoryCapacity)
	}
	if c.DebounceTicks < undo.MinDebounceTicks || c.DebounceTicks > MaxDebounceTicks {
		return fmt.Errorf("%w: debounce_ticks must be in [%d, %d], got %d",
			ErrInvalid, undo.MinDebounceTicks, MaxDebounceTicks, c.DebounceTicks)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive, got %s", ErrInvalid, c.TickInterval)
	}
	return nil
}

// EngineOptions converts the settings to engine options.
// A HistoryCapacity of 0 means unbounded history.
func (c Config) EngineOptions() []undo.EngineOption {
	return []undo.EngineOption{
		undo.WithCapacity(c.HistoryCapacity),
		undo.WithDebounceTicks(c.DebounceTicks),
	}
}

// Settings returns the settings as a plain map, for session metadata.
func (c Config) Settings() map[string]any {
	return map[string]any{
		"history_capacity": c.HistoryCapacity,
		"debounce_ticks":   c.DebounceTicks,
		"tick_interval":    c.TickInterval.String(),
	}
}
