// Package config provides shared configuration utilities for WarrantyWatch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/BurntSushi/toml"
)

// FindConfigFile searches for a config file in platform-appropriate locations.
// Returns the path and data if found, or an error if not found anywhere.
func FindConfigFile(filename string) (string, []byte, error) {
	searchPaths := GetConfigSearchPaths(filename)

	for _, path := range searchPaths {
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("%s not found in any search path", filename)
}

// GetConfigSearchPaths returns an ordered list of paths to search for config files.
func GetConfigSearchPaths(filename string) []string {
	var searchPaths []string

	// 1. System directory (highest priority for services)
	switch runtime.GOOS {
	case "windows":
		searchPaths = append(searchPaths, filepath.Join(os.Getenv("ProgramData"), "WarrantyWatch", filename))
	case "darwin":
		searchPaths = append(searchPaths, filepath.Join("/Library/Application Support", "WarrantyWatch", filename))
	default: // Linux and other Unix-like
		searchPaths = append(searchPaths, filepath.Join("/etc/warrantywatch", filename))
	}

	// 2. User-specific config directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		switch runtime.GOOS {
		case "windows":
			searchPaths = append(searchPaths, filepath.Join(homeDir, "AppData", "Local", "WarrantyWatch", filename))
		case "darwin":
			searchPaths = append(searchPaths, filepath.Join(homeDir, "Library", "Application Support", "WarrantyWatch", filename))
		default:
			searchPaths = append(searchPaths, filepath.Join(homeDir, ".config", "warrantywatch", filename))
		}
	}

	// 3. Executable directory
	if exePath, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(filepath.Dir(exePath), filename))
	}

	// 4. Current working directory (lowest priority)
	searchPaths = append(searchPaths, filepath.Join(".", filename))

	return searchPaths
}

// GetDataDirectory returns the directory for storing application data.
// Service mode uses the system-wide location, interactive mode the user's.
func GetDataDirectory(isService bool) (string, error) {
	var dataDir string

	if isService {
		switch runtime.GOOS {
		case "windows":
			dataDir = filepath.Join(os.Getenv("ProgramData"), "WarrantyWatch")
		default:
			dataDir = "/var/lib/warrantywatch"
		}
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}

		switch runtime.GOOS {
		case "windows":
			dataDir = filepath.Join(homeDir, "AppData", "Local", "WarrantyWatch")
		case "darwin":
			dataDir = filepath.Join(homeDir, "Library", "Application Support", "WarrantyWatch")
		default:
			dataDir = filepath.Join(homeDir, ".local", "share", "warrantywatch")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}

// GetLogDirectory returns the directory for log files.
func GetLogDirectory(isService bool) (string, error) {
	if isService {
		switch runtime.GOOS {
		case "windows":
			return filepath.Join(os.Getenv("ProgramData"), "WarrantyWatch", "logs"), nil
		default:
			return "/var/log/warrantywatch", nil
		}
	}

	dataDir, err := GetDataDirectory(false)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "logs"), nil
}

// WriteDefaultTOML writes a configuration structure to a TOML file, creating
// the directory if needed.
func WriteDefaultTOML(configPath string, config interface{}) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadTOML loads a TOML configuration file into the provided structure
func LoadTOML(configPath string, config interface{}) error {
	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("config file not found: %w", err)
	}

	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// DatabaseConfig holds database settings for both storage engines.
type DatabaseConfig struct {
	// Driver selects the engine: "sqlite" (default, single-tenant embedded)
	// or "postgres" (multi-tenant relational).
	Driver string `toml:"driver"`

	// Path is the SQLite database file path. Empty means platform default.
	Path string `toml:"path"`

	// DSN, if set, is used verbatim for postgres connections. Otherwise the
	// DSN is assembled from the individual fields below.
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"ssl_mode"`

	MaxOpenConns        int `toml:"max_open_conns"`
	MaxIdleConns        int `toml:"max_idle_conns"`
	ConnMaxLifetimeSecs int `toml:"conn_max_lifetime_secs"`
}

// EffectiveDriver normalizes the configured driver name, defaulting to sqlite.
func (c *DatabaseConfig) EffectiveDriver() string {
	switch c.Driver {
	case "", "sqlite", "sqlite3", "modernc", "modernc-sqlite":
		return "sqlite"
	case "postgres", "postgresql", "pgx":
		return "postgres"
	default:
		return c.Driver
	}
}

// BuildDSN assembles a postgres connection string from the configured fields.
// An explicit DSN wins. Returns "" if there is not enough to connect with.
func (c *DatabaseConfig) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Host == "" || c.Name == "" {
		return ""
	}

	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	dsn := "host=" + c.Host + " port=" + strconv.Itoa(port) + " dbname=" + c.Name + " sslmode=" + sslMode
	if c.User != "" {
		dsn += " user=" + c.User
	}
	if c.Password != "" {
		dsn += " password=" + c.Password
	}
	return dsn
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// ApplyDatabaseEnvOverrides applies common environment variable overrides.
func ApplyDatabaseEnvOverrides(cfg *DatabaseConfig) {
	if val := os.Getenv("DB_DRIVER"); val != "" {
		cfg.Driver = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.Path = val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DSN = val
	}
}

func ApplyLoggingEnvOverrides(cfg *LoggingConfig) {
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Level = val
	}
}
