package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// ErrImportMissingKey is returned when an import source name is not in the
// config.
var ErrImportMissingKey = errors.New("import source not found in config")

const (
	DriverHasura = "hasura"
	DriverSQLite = "sqlite"

	defaultTimezone     = "Europe/Bucharest"
	defaultFetchTimeout = 30 * time.Second
	defaultRefreshCron  = "*/30 * * * *"
	defaultListen       = "127.0.0.1:8080"
)

// ImportConfig describes a single ICS feed that can be imported by name.
type ImportConfig struct {
	// Name is the import key; events from this feed are stored under it.
	Name string `yaml:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url"`
}

// StoreConfig selects and configures the event store.
type StoreConfig struct {
	// Driver is "hasura" (GraphQL endpoint) or "sqlite" (local file).
	Driver string `yaml:"driver"`

	// URL and AdminSecret configure the hasura driver. The secret is sent as
	// x-hasura-admin-secret on every request.
	URL         string `yaml:"url,omitempty"`
	AdminSecret string `yaml:"admin_secret,omitempty"`

	// Path is the database file of the sqlite driver.
	Path string `yaml:"path,omitempty"`
}

// FetchConfig controls feed downloads.
type FetchConfig struct {
	// Timeout bounds a single feed request. Zero disables the timeout.
	Timeout time.Duration `yaml:"timeout"`
	// CacheDir enables the conditional-GET cache when non-empty.
	CacheDir string `yaml:"cache_dir,omitempty"`
}

// BasicAuthConfig protects the HTTP API. It is disabled when either field is
// empty.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ServeConfig configures the serve command.
type ServeConfig struct {
	// Listen is the host:port the HTTP API binds to.
	Listen    string           `yaml:"listen"`
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

// Config is the top-level application configuration. It is loaded once per
// invocation and passed explicitly to whatever needs it.
type Config struct {
	// Timezone is the IANA timezone used for day boundaries and display.
	Timezone string `yaml:"timezone"`

	// RefreshCron is the cron schedule used by the watch command.
	RefreshCron string `yaml:"refresh"`

	Store StoreConfig `yaml:"store"`
	Fetch FetchConfig `yaml:"fetch"`
	Serve ServeConfig `yaml:"serve"`

	// Imports is the list of feeds known by name.
	Imports []ImportConfig `yaml:"import"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:    defaultTimezone,
		RefreshCron: defaultRefreshCron,
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   defaultDataPath(),
		},
		Fetch: FetchConfig{
			Timeout: defaultFetchTimeout,
		},
		Serve: ServeConfig{
			Listen: defaultListen,
		},
		Imports: []ImportConfig{},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/hcs/hcs.yaml (or the platform
// equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "hcs.yaml"
	}
	return filepath.Join(dir, "hcs", "hcs.yaml")
}

func defaultDataPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "hcs.db"
	}
	return filepath.Join(dir, "hcs", "hcs.db")
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.Store.Driver == "" {
		if c.Store.URL != "" {
			c.Store.Driver = DriverHasura
		} else {
			c.Store.Driver = DriverSQLite
		}
	}
	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		c.Store.Path = defaultDataPath()
	}
	if c.Fetch.Timeout < 0 {
		c.Fetch.Timeout = defaultFetchTimeout
	}
	if c.Serve.Listen == "" {
		c.Serve.Listen = defaultListen
	}
	if c.Imports == nil {
		c.Imports = []ImportConfig{}
	}
}

// Validate reports configuration that cannot work at all.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case DriverHasura:
		if c.Store.URL == "" {
			return errors.New("store.url is required for the hasura driver")
		}
	case DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	seen := make(map[string]bool, len(c.Imports))
	for _, imp := range c.Imports {
		if imp.Name == "" || imp.URL == "" {
			return fmt.Errorf("import entries need both name and url (got name=%q)", imp.Name)
		}
		if seen[imp.Name] {
			return fmt.Errorf("duplicate import name %q", imp.Name)
		}
		seen[imp.Name] = true
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FindImport returns the import source called name.
func (c *Config) FindImport(name string) (ImportConfig, error) {
	for _, imp := range c.Imports {
		if imp.Name == name {
			return imp, nil
		}
	}
	return ImportConfig{}, fmt.Errorf("%w: %q", ErrImportMissingKey, name)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600, since the file holds the
//     store secret.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".hcs-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
