package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the pcs configuration.
//
// Values are layered: defaults, then the YAML config file, then environment variables
// (a .env file is loaded into the environment first), then command line flags.
type Config struct {
	DataDir     string `yaml:"data_dir"`      // users and ledgers
	MarketDir   string `yaml:"market_dir"`    // listings and prices folder, used without an EODHD key
	User        int    `yaml:"user"`          // default user id
	LogLevel    string `yaml:"log_level"`     // debug, info, warn, error
	PrettyLogs  bool   `yaml:"pretty_logs"`   // console writer instead of JSON
	EODHDAPIKey string `yaml:"eodhd_api_key"` // enables the EODHD market
	CacheFile   string `yaml:"cache_file"`    // SQLite price cache in front of EODHD
	Raw         bool   `yaml:"raw"`           // print raw markdown
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		DataDir:   ".pcs",
		MarketDir: ".market",
		User:      1,
		LogLevel:  "warn",
	}
}

// LoadConfig layers the YAML file at path, if it exists, then the environment, over
// the defaults.
func LoadConfig(path string, getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("cannot read config %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("cannot parse config %q: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return cfg, err
	}
	if cfg.CacheFile == "" {
		cfg.CacheFile = filepath.Join(cfg.DataDir, "prices.sqlite")
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PCS_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("PCS_MARKET_DIR"); v != "" {
		c.MarketDir = v
	}
	if v := getenv("PCS_USER"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PCS_USER must be a user id: %w", err)
		}
		c.User = id
	}
	if v := getenv("PCS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("EODHD_API_KEY"); v != "" {
		c.EODHDAPIKey = v
	}
	if v := getenv("PCS_CACHE_FILE"); v != "" {
		c.CacheFile = v
	}
	return nil
}
