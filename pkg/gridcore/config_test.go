package gridcore

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the home directory at an empty temp dir and clears the
// config path override.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvPrefix+"_CONFIG", "")
	return home
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	opts, err := LoadConfig("")
	require.NoError(t, err)

	def := DefaultOptions()
	assert.Equal(t, def.Grid, opts.Grid)
	assert.Equal(t, def.Layout, opts.Layout)
	assert.Equal(t, def.History, opts.History)
	assert.Equal(t, def.Stream, opts.Stream)
	assert.Equal(t, "info", opts.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "gridcore.toml")
	content := `
[grid]
max_rows = 200
max_cols = 20

[layout]
row_height = 24

[history]
depth = 10

[stream]
reveal_delay = "10ms"
recent_window = "1s"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, GridOptions{MaxRows: 200, MaxCols: 20}, opts.Grid)
	assert.Equal(t, 24.0, opts.Layout.RowHeight)
	assert.Equal(t, DefaultOptions().Layout.ColWidth, opts.Layout.ColWidth)
	assert.Equal(t, 10, opts.History.Depth)
	assert.Equal(t, 10*time.Millisecond, opts.Stream.RevealDelay)
	assert.Equal(t, time.Second, opts.Stream.RecentWindow)
	assert.Equal(t, "debug", opts.Log.Level)
}

func TestLoadConfigHomeFile(t *testing.T) {
	home := isolate(t)

	dir := filepath.Join(home, ".config", "gridcore")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[history]\ndepth = 7\n"), 0o644))

	opts, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7, opts.History.Depth)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GRIDCORE_GRID_MAX_ROWS", "500")
	t.Setenv("GRIDCORE_STREAM_REVEAL_DELAY", "5ms")

	opts, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 500, opts.Grid.MaxRows)
	assert.Equal(t, 5*time.Millisecond, opts.Stream.RevealDelay)
}

func TestLoadConfigErrors(t *testing.T) {
	isolate(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[history]\ndepth = 0\n"), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	require.NoError(t, os.WriteFile(path, []byte("[grid]\nmax_rows = 20000\n"), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("GRIDCORE_LOG_LEVEL", "loud")
	_, err = LoadConfig("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
