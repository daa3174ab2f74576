package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/testutil"
	"github.com/roach88/rewind/internal/undo"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 200, cfg.HistoryCapacity)
	assert.Equal(t, 4, cfg.DebounceTicks)
	assert.Equal(t, 16*time.Millisecond, cfg.TickInterval)
	assert.Empty(t, cfg.JournalPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_CUE(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "valid.cue"))
	require.NoError(t, err)
	assert.Equal(t, Config{
		HistoryCapacity: 50,
		DebounceTicks:   2,
		TickInterval:    10 * time.Millisecond,
		JournalPath:     "session.db",
	}, cfg)
}

func TestLoad_CUEDefaultsFillGaps(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "partial.cue"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.DebounceTicks)
	assert.Equal(t, 200, cfg.HistoryCapacity)
	assert.Equal(t, 16*time.Millisecond, cfg.TickInterval)
}

func TestLoad_CUERejectsUnknownField(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "unknown_field.cue"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestLoad_CUERejectsOutOfRange(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "out_of_range.cue"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestParseCUE_RejectsSingleTickDebounce(t *testing.T) {
	_, err := ParseCUE([]byte("debounce_ticks: 1\n"), "short.cue")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestParseCUE_BadDuration(t *testing.T) {
	_, err := ParseCUE([]byte(`tick_interval: "soon"`), "inline.cue")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "valid.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.HistoryCapacity)
	assert.Equal(t, 3, cfg.DebounceTicks)
	assert.Equal(t, 33*time.Millisecond, cfg.TickInterval)
}

func TestLoad_YAMLRejectsUnknownField(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "unknown_field.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debounce")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "config.toml"))
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative capacity", func(c *Config) { c.HistoryCapacity = -1 }},
		{"zero debounce", func(c *Config) { c.DebounceTicks = 0 }},
		{"debounce below minimum", func(c *Config) { c.DebounceTicks = undo.MinDebounceTicks - 1 }},
		{"debounce too large", func(c *Config) { c.DebounceTicks = MaxDebounceTicks + 1 }},
		{"zero interval", func(c *Config) { c.TickInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), ErrInvalid))
		})
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	cfg.HistoryCapacity = 7
	cfg.DebounceTicks = 9

	e := undo.New(testutil.NewWorld(), cfg.EngineOptions()...)
	assert.Equal(t, 7, e.Chain().Capacity())
	assert.Equal(t, 9, e.Ledger().Window())
}

func TestZeroCapacityIsUnbounded(t *testing.T) {
	cfg, err := ParseYAML([]byte("history_capacity: 0\n"))
	require.NoError(t, err)

	e := undo.New(testutil.NewWorld(), cfg.EngineOptions()...)
	assert.Equal(t, 0, e.Chain().Capacity())
	for range undo.DefaultCapacity + 5 {
		e.Record(undo.EntityCreated{ID: e.World().Spawn()})
		e.Tick(t.Context())
	}
	assert.Equal(t, undo.DefaultCapacity+5, e.Chain().Len())
}

func TestSettings(t *testing.T) {
	s := Default().Settings()
	assert.Equal(t, 200, s["history_capacity"])
	assert.Equal(t, "16ms", s["tick_interval"])
}
