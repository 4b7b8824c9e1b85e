package gridcore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GRIDCORE_GRID_MAX_ROWS.
const EnvPrefix = "GRIDCORE"

// LoadConfig reads options from defaults, an optional TOML file and
// GRIDCORE_* environment variables, in increasing precedence. When path is
// empty, $GRIDCORE_CONFIG is used, then ~/.config/gridcore/config.toml if it
// exists.
func LoadConfig(path string) (Options, error) {
	v := viper.New()

	def := DefaultOptions()
	v.SetDefault("grid.max_rows", def.Grid.MaxRows)
	v.SetDefault("grid.max_cols", def.Grid.MaxCols)
	v.SetDefault("layout.row_height", def.Layout.RowHeight)
	v.SetDefault("layout.col_width", def.Layout.ColWidth)
	v.SetDefault("history.depth", def.History.Depth)
	v.SetDefault("stream.reveal_delay", def.Stream.RevealDelay)
	v.SetDefault("stream.default_delay", def.Stream.DefaultDelay)
	v.SetDefault("stream.recent_window", def.Stream.RecentWindow)
	v.SetDefault("log.level", def.Log.Level)

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "gridcore"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicitly named file must exist; the fallback location may not.
		if path != "" || !errors.As(err, &notFound) {
			return Options{}, fmt.Errorf("%w: read config: %v", ErrInvalidConfig, err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("%w: unmarshal config: %v", ErrInvalidConfig, err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
