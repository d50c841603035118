// Package config loads memedit settings from defaults, an optional memedit.yaml,
// MEMEDIT_* environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "MEMEDIT"

type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	Dump    DumpConfig    `mapstructure:"dump"`
	Display DisplayConfig `mapstructure:"display"`
}

type SearchConfig struct {
	ReadableOnly  bool   `mapstructure:"readable_only"`
	MaxRegionSize uint64 `mapstructure:"max_region_size"`
	MaxResults    int    `mapstructure:"max_results"`
}

type DumpConfig struct {
	MaxRegionSize uint64 `mapstructure:"max_region_size"`
}

type DisplayConfig struct {
	BytesPerLine int  `mapstructure:"bytes_per_line"`
	Context      int  `mapstructure:"context"`
	Color        bool `mapstructure:"color"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"readable-only":        "search.readable_only",
	"max-region-size":      "search.max_region_size",
	"max-results":          "search.max_results",
	"dump-max-region-size": "dump.max_region_size",
	"bytes-per-line":       "display.bytes_per_line",
	"context":              "display.context",
	"color":                "display.color",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.readable_only", true)
	v.SetDefault("search.max_region_size", 256<<20)
	v.SetDefault("search.max_results", 0)
	v.SetDefault("dump.max_region_size", 100<<20)
	v.SetDefault("display.bytes_per_line", 16)
	v.SetDefault("display.context", 16)
	v.SetDefault("display.color", false)
}

// RegisterFlags adds the flags Load knows how to bind
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (default: ./memedit.yaml or ~/.config/memedit/memedit.yaml)")
	fs.Bool("readable-only", true, "skip regions without read permission")
	fs.Uint64("max-region-size", 256<<20, "skip regions larger than this many bytes while searching (0 = no limit)")
	fs.Int("max-results", 0, "stop a search after this many matches (0 = no limit)")
	fs.Uint64("dump-max-region-size", 100<<20, "skip regions larger than this many bytes while dumping (0 = no limit)")
	fs.Int("bytes-per-line", 16, "hexdump bytes per line")
	fs.Int("context", 16, "bytes of context shown around a match")
	fs.Bool("color", false, "highlight matches with ANSI colors")
}

// Load resolves the configuration. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var explicit string
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("memedit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "memedit"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
