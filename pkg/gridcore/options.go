// Package gridcore ties the grid, formula, layout, stream and history
// packages into a worksheet session and loads their configuration.
package gridcore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/history"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/layout"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/stream"
)

// Options configures a Session.
type Options struct {
	Grid    GridOptions    `mapstructure:"grid"`
	Layout  LayoutOptions  `mapstructure:"layout"`
	History HistoryOptions `mapstructure:"history"`
	Stream  StreamOptions  `mapstructure:"stream"`
	Log     LogOptions     `mapstructure:"log"`

	// Logger is passed to every component. Nil means the default logger.
	Logger *slog.Logger `mapstructure:"-"`
	// Observer receives stream events.
	Observer stream.Observer `mapstructure:"-"`
	// Now replaces time.Now for the stream's recent-cell window.
	Now func() time.Time `mapstructure:"-"`
}

// GridOptions bounds the cell store.
type GridOptions struct {
	MaxRows int `mapstructure:"max_rows"`
	MaxCols int `mapstructure:"max_cols"`
}

// LayoutOptions holds the default track sizes in display pixels.
type LayoutOptions struct {
	RowHeight float64 `mapstructure:"row_height"`
	ColWidth  float64 `mapstructure:"col_width"`
}

// HistoryOptions configures undo and redo.
type HistoryOptions struct {
	Depth int `mapstructure:"depth"`
}

// StreamOptions configures streaming writes.
type StreamOptions struct {
	// RevealDelay is the wait between revealed characters.
	RevealDelay time.Duration `mapstructure:"reveal_delay"`
	// DefaultDelay is the wait after an entry read from a source that does
	// not carry its own delay.
	DefaultDelay time.Duration `mapstructure:"default_delay"`
	// RecentWindow is how long a committed cell counts as recently written.
	RecentWindow time.Duration `mapstructure:"recent_window"`
}

// LogOptions configures the command-line logger.
type LogOptions struct {
	Level string `mapstructure:"level"`
}

// DefaultOptions returns default session options.
func DefaultOptions() Options {
	st := stream.DefaultOptions()
	return Options{
		Grid: GridOptions{
			MaxRows: grid.DefaultMaxRows,
			MaxCols: grid.DefaultMaxCols,
		},
		Layout: LayoutOptions{
			RowHeight: layout.DefaultRowHeight,
			ColWidth:  layout.DefaultColWidth,
		},
		History: HistoryOptions{Depth: history.DefaultDepth},
		Stream: StreamOptions{
			RevealDelay:  st.RevealDelay,
			DefaultDelay: 100 * time.Millisecond,
			RecentWindow: st.RecentWindow,
		},
		Log: LogOptions{Level: "info"},
	}
}

// Validate checks that every setting is usable.
func (o Options) Validate() error {
	switch {
	case o.Grid.MaxRows <= 0 || o.Grid.MaxCols <= 0:
		return fmt.Errorf("%w: grid must have at least one row and column, got %dx%d", ErrInvalidConfig, o.Grid.MaxRows, o.Grid.MaxCols)
	case o.Grid.MaxRows > grid.RowLimit || o.Grid.MaxCols > grid.ColLimit:
		return fmt.Errorf("%w: grid %dx%d exceeds %dx%d", ErrInvalidConfig, o.Grid.MaxRows, o.Grid.MaxCols, grid.RowLimit, grid.ColLimit)
	case o.Layout.RowHeight <= 0 || o.Layout.ColWidth <= 0:
		return fmt.Errorf("%w: default sizes must be positive", ErrInvalidConfig)
	case o.History.Depth <= 0:
		return fmt.Errorf("%w: history depth must be positive, got %d", ErrInvalidConfig, o.History.Depth)
	case o.Stream.RevealDelay < 0 || o.Stream.DefaultDelay < 0 || o.Stream.RecentWindow < 0:
		return fmt.Errorf("%w: stream delays must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseLevel(o.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name such as "debug" or "warn" to a slog level.
// The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, s)
	}
	return level, nil
}

func (o Options) gridOptions() grid.Options {
	return grid.Options{MaxRows: o.Grid.MaxRows, MaxCols: o.Grid.MaxCols, Logger: o.Logger}
}

func (o Options) layoutOptions() layout.Options {
	return layout.Options{RowHeight: o.Layout.RowHeight, ColWidth: o.Layout.ColWidth}
}

func (o Options) streamOptions() stream.Options {
	return stream.Options{
		RevealDelay:  o.Stream.RevealDelay,
		RecentWindow: o.Stream.RecentWindow,
		Observer:     o.Observer,
		Now:          o.Now,
		Logger:       o.Logger,
	}
}
