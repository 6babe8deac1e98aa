// ABOUTME: Civic configuration management with environment overrides
// ABOUTME: Resolves the backend base URL and flags missing or placeholder values

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harper/civic/internal/models"
	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvAPIBaseURL   = "CIVIC_API_BASE_URL"
	EnvEnvironment  = "CIVIC_ENV"
	EnvGeocoder     = "CIVIC_GEOCODER"
	EnvGoogleMaps   = "GOOGLE_MAPS_API_KEY"
	EnvNominatimURL = "CIVIC_NOMINATIM_URL"
	EnvDataDir      = "CIVIC_DATA_DIR"
)

const (
	// GeocoderNominatim searches the public OpenStreetMap geocoder.
	GeocoderNominatim = "nominatim"
	// GeocoderGoogle searches the Google Maps Geocoding API.
	GeocoderGoogle = "google"

	// DefaultNominatimURL is the public Nominatim endpoint.
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
)

// DefaultFallback is the geographic centre of India, used when no
// location can be obtained.
var DefaultFallback = models.Coordinate{Latitude: 20.5937, Longitude: 78.9629}

var (
	// ErrConfigMissing means no backend base URL is configured.
	ErrConfigMissing = errors.New("backend API base URL is not configured")
	// ErrConfigPlaceholder means the base URL still looks like a template value.
	ErrConfigPlaceholder = errors.New("backend API base URL is a placeholder")
)

// placeholderMarkers are substrings that only show up in template values.
var placeholderMarkers = []string{"your-backend", "example.com", "<", "changeme"}

// localMarkers are rejected only in production.
var localMarkers = []string{"localhost", "127.0.0.1"}

// Config stores civic configuration.
type Config struct {
	// APIBaseURL is the REST backend root, e.g. https://civic.example.org/api.
	APIBaseURL string `json:"api_base_url,omitempty"`

	// Environment is "production" or "development" (default).
	Environment string `json:"environment,omitempty"`

	// Geocoder selects the place search provider: "nominatim" (default) or "google".
	Geocoder string `json:"geocoder,omitempty"`

	// GoogleMapsKey is required when Geocoder is "google".
	GoogleMapsKey string `json:"google_maps_key,omitempty"`

	// NominatimURL overrides the Nominatim endpoint.
	NominatimURL string `json:"nominatim_url,omitempty"`

	// Fallback overrides the coordinate used when location is unavailable.
	Fallback *models.Coordinate `json:"fallback,omitempty"`

	// DataDir is the root directory for the local cache.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/civic.
	DataDir string `json:"data_dir,omitempty"`
}

// IsProduction reports whether the production environment is configured.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// GetGeocoder returns the configured geocoder, defaulting to Nominatim.
func (c *Config) GetGeocoder() string {
	if c.Geocoder == "" {
		return GeocoderNominatim
	}
	return strings.ToLower(c.Geocoder)
}

// GetNominatimURL returns the Nominatim endpoint without a trailing slash.
func (c *Config) GetNominatimURL() string {
	if c.NominatimURL == "" {
		return DefaultNominatimURL
	}
	return strings.TrimRight(c.NominatimURL, "/")
}

// GetFallback returns the fallback coordinate.
func (c *Config) GetFallback() models.Coordinate {
	if c.Fallback == nil {
		return DefaultFallback
	}
	return *c.Fallback
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// DBPath returns the path of the local SQLite cache.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "civic.db")
}

// BaseURL returns the normalized backend base URL (trailing slashes
// stripped) and an error when it is missing or looks like a placeholder.
// The URL is returned even alongside ErrConfigPlaceholder so callers can
// still attempt a request.
func (c *Config) BaseURL() (string, error) {
	base := NormalizeBaseURL(c.APIBaseURL)
	if base == "" {
		return "", ErrConfigMissing
	}
	if IsPlaceholder(base, c.IsProduction()) {
		return base, ErrConfigPlaceholder
	}
	return base, nil
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// IsPlaceholder reports whether a base URL looks like a template value.
// Loopback hosts count as placeholders in production only.
func IsPlaceholder(base string, production bool) bool {
	lower := strings.ToLower(base)
	for _, m := range placeholderMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	if production {
		for _, m := range localMarkers {
			if strings.Contains(lower, m) {
				return true
			}
		}
	}
	return false
}

// defaultDataDir returns the default XDG data directory for civic.
func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "civic")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "civic", "config.json")
}

// LoadDotEnv loads KEY=value pairs from the given .env files into the
// process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads config from disk and applies environment overrides.
// A default config file is written on first run.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads config from disk without environment overrides.
func LoadFile() (*Config, error) {
	path := GetConfigPath()
	cfg := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // path is derived from XDG config dir
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if saveErr := cfg.Save(); saveErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save default config: %v\n", saveErr)
		}
	default:
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides config values from environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvAPIBaseURL); ok {
		c.APIBaseURL = v
	}
	if v := os.Getenv(EnvEnvironment); v != "" {
		c.Environment = v
	}
	if v := os.Getenv(EnvGeocoder); v != "" {
		c.Geocoder = v
	}
	if v := os.Getenv(EnvGoogleMaps); v != "" {
		c.GoogleMapsKey = v
	}
	if v := os.Getenv(EnvNominatimURL); v != "" {
		c.NominatimURL = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CIVIC_FALLBACK"); v != "" {
		coord, err := ParseCoordinate(v)
		if err != nil {
			return fmt.Errorf("CIVIC_FALLBACK: %w", err)
		}
		c.Fallback = &coord
	}
	return nil
}

// ParseCoordinate parses "lat,lng".
func ParseCoordinate(s string) (models.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return models.Coordinate{}, fmt.Errorf("expected \"lat,lng\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("invalid longitude: %w", err)
	}
	return models.NewCoordinate(lat, lng)
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// atomicWrite writes data to a temp file in the target directory and
// renames it into place.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
