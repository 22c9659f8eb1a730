package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all memofeed configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Client   ClientConfig   `toml:"client"`
	Feed     FeedConfig     `toml:"feed"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ClientConfig struct {
	URL string `toml:"url"` // server the feed and list commands talk to
}

// FeedConfig tunes the terminal feed. Distances are in terminal rows and
// widths in cells.
type FeedConfig struct {
	PageSize          int      `toml:"page_size"`
	OrderBy           string   `toml:"order_by"`
	MinColumnWidth    int      `toml:"min_column_width"`
	PlaceholderHeight int      `toml:"placeholder_height"`
	ScrollThreshold   int      `toml:"scroll_threshold"`
	ScrollableMargin  int      `toml:"scrollable_margin"`
	SettleDelay       Duration `toml:"settle_delay"`
	RetryDelay        Duration `toml:"retry_delay"`
	Style             string   `toml:"style"` // glamour style: "auto", "dark", "light", "notty"
}

// Duration is a time.Duration written as a string such as "200ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Client: ClientConfig{
			URL: "", // derived from Server when empty
		},
		Feed: FeedConfig{
			PageSize:          10,
			OrderBy:           "display_time desc",
			MinColumnWidth:    40,
			PlaceholderHeight: 6,
			ScrollThreshold:   10,
			ScrollableMargin:  3,
			SettleDelay:       Duration{200 * time.Millisecond},
			RetryDelay:        Duration{500 * time.Millisecond},
			Style:             "auto",
		},
	}
}

// DefaultPath returns the default config path: ~/.memofeed/config.toml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".memofeed", "config.toml"), nil
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error. MEMOFEED_DB and MEMOFEED_URL override the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				return cfg, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
			}
		}
	}

	if v := os.Getenv("MEMOFEED_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MEMOFEED_URL"); v != "" {
		cfg.Client.URL = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Feed.PageSize <= 0 || c.Feed.PageSize > 100 {
		errs = append(errs, fmt.Errorf("feed.page_size %d must be between 1 and 100", c.Feed.PageSize))
	}
	if c.Feed.MinColumnWidth <= 0 {
		errs = append(errs, errors.New("feed.min_column_width must be positive"))
	}
	if c.Feed.PlaceholderHeight < 0 {
		errs = append(errs, errors.New("feed.placeholder_height must not be negative"))
	}
	if c.Feed.ScrollThreshold < 0 || c.Feed.ScrollableMargin < 0 {
		errs = append(errs, errors.New("feed scroll distances must not be negative"))
	}
	if c.Feed.SettleDelay.Duration < 0 || c.Feed.RetryDelay.Duration < 0 {
		errs = append(errs, errors.New("feed delays must not be negative"))
	}
	switch c.Feed.Style {
	case "auto", "dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night":
	default:
		errs = append(errs, fmt.Errorf("feed.style %q unknown", c.Feed.Style))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// ServerURL returns the URL clients should use: Client.URL when set,
// otherwise the local listen address.
func (c *Config) ServerURL() string {
	if c.Client.URL != "" {
		return c.Client.URL
	}
	bind := c.Server.Bind
	if bind == "" || bind == "0.0.0.0" {
		bind = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", bind, c.Server.Port)
}
