package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/janekbaraniewski/tokenledger/internal/aggregate"
	"github.com/janekbaraniewski/tokenledger/internal/core"
)

const appName = "tokenledger"

type Config struct {
	Timezone   string  `koanf:"timezone"`
	Locale     string  `koanf:"locale"`
	Offline    bool    `koanf:"offline"`
	Order      string  `koanf:"order"`
	Breakdown  bool    `koanf:"breakdown"`
	Debug      bool    `koanf:"debug"`
	NoCache    bool    `koanf:"no_cache"`
	Workers    int     `koanf:"workers"`
	BlockHours float64 `koanf:"block_hours"`
}

func DefaultConfig() Config {
	return Config{
		Timezone:   "local",
		Locale:     "en-US",
		Order:      string(aggregate.Asc),
		BlockHours: aggregate.DefaultBlockDuration.Hours(),
	}
}

func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// ConfigPath returns the first existing config file, preferring TOML, or the
// TOML path when none exists.
func ConfigPath() string {
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		path := filepath.Join(ConfigDir(), name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads a TOML or YAML config file over the defaults. A missing file
// is not an error.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = TOML()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return cfg, fmt.Errorf("config %s: unsupported format (want .toml or .yaml)", path)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}

// Settings are the validated values the engine consumes.
type Settings struct {
	Location      *time.Location
	Order         aggregate.Order
	BlockDuration time.Duration
	Workers       int
	Locale        string
	Offline       bool
	NoCache       bool
	Breakdown     bool
	Debug         bool
}

func (c Config) Resolve() (Settings, error) {
	loc, err := core.ParseTimezone(c.Timezone)
	if err != nil {
		return Settings{}, err
	}
	order, err := aggregate.ParseOrder(c.Order)
	if err != nil {
		return Settings{}, err
	}
	if c.BlockHours < 0 || c.BlockHours != math.Trunc(c.BlockHours) {
		return Settings{}, fmt.Errorf("block_hours must be a positive whole number of hours, got %v", c.BlockHours)
	}
	if c.Workers < 0 {
		return Settings{}, fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	block := time.Duration(c.BlockHours * float64(time.Hour))
	if block == 0 {
		block = aggregate.DefaultBlockDuration
	}
	return Settings{
		Location:      loc,
		Order:         order,
		BlockDuration: block,
		Workers:       c.Workers,
		Locale:        c.Locale,
		Offline:       c.Offline,
		NoCache:       c.NoCache,
		Breakdown:     c.Breakdown,
		Debug:         c.Debug,
	}, nil
}
