package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-outfit-service/internal/models"
	"github.com/kjstillabower/weather-outfit-service/internal/validation"
)

// Config holds service configuration loaded from YAML, .env and env.
type Config struct {
	ServerPort string

	ServiceKey     string
	ObservationURL string
	ForecastURL    string
	APITimeout     time.Duration
	PageRows       int

	DefaultGrid models.GridCoordinate

	CacheTTL              time.Duration
	CacheBackend          string // "in_memory" or "memcached"
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS          int // 0 disables rate limiting
	RateLimitBurst        int
	CircuitBreakerEnabled bool
	CircuitFailures       int
	CircuitTimeout        time.Duration
	CoalesceEnabled       bool

	TrackedGrids    []models.GridCoordinate
	WarmingInterval time.Duration

	MessagesFile string

	ShutdownTimeout time.Duration
	InFlightWait    time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	KMA struct {
		ObservationURL string `yaml:"observation_url"`
		ForecastURL    string `yaml:"forecast_url"`
		Timeout        string `yaml:"timeout"`
		Rows           int    `yaml:"rows"`
	} `yaml:"kma"`

	DefaultGrid struct {
		NX int `yaml:"nx"`
		NY int `yaml:"ny"`
	} `yaml:"default_grid"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Warming struct {
			Grids    []string `yaml:"grids"`
			Interval string   `yaml:"interval"`
		} `yaml:"warming"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int   `yaml:"rate_limit_rps"`
		RateLimitBurst int   `yaml:"rate_limit_burst"`
		CoalesceEnable *bool `yaml:"coalesce"`
		CircuitBreaker struct {
			Enabled          bool   `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Messages struct {
		File string `yaml:"file"`
	} `yaml:"messages"`

	Shutdown struct {
		Timeout      string `yaml:"timeout"`
		InFlightWait string `yaml:"in_flight_wait"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`
}

type secretsFile struct {
	ServiceKey string `yaml:"service_key"`
}

// Busan (Haeundae) on the KMA grid.
var defaultGrid = models.GridCoordinate{NX: 98, NY: 76}

// Load reads .env (optional), config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml relative to the working directory. The service key comes
// from KMA_SERVICE_KEY or the secrets file; a missing key is not an error.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom is Load with an explicit project root.
func LoadFrom(root string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(root, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.ServiceKey = strings.TrimSpace(os.Getenv("KMA_SERVICE_KEY"))
	if cfg.ServiceKey == "" {
		key, err := readSecrets(filepath.Join(root, "config", "secrets.yaml"))
		if err != nil {
			return nil, err
		}
		cfg.ServiceKey = key
	}

	cfg.ObservationURL = strings.TrimSpace(fc.KMA.ObservationURL)
	cfg.ForecastURL = strings.TrimSpace(fc.KMA.ForecastURL)
	cfg.APITimeout = parseDurationOrZero(fc.KMA.Timeout, 5*time.Second)
	cfg.PageRows = fc.KMA.Rows
	if cfg.PageRows <= 0 {
		cfg.PageRows = 1000
	}

	cfg.DefaultGrid = defaultGrid
	if fc.DefaultGrid.NX != 0 || fc.DefaultGrid.NY != 0 {
		cfg.DefaultGrid = models.GridCoordinate{NX: fc.DefaultGrid.NX, NY: fc.DefaultGrid.NY}
	}

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 3*time.Minute)
	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.TrackedGrids, err = parseGrids(fc.Cache.Warming.Grids)
	if err != nil {
		return nil, err
	}
	cfg.WarmingInterval = parseDuration(fc.Cache.Warming.Interval, 10*time.Minute)

	// Rate limiting is opt-in; rps 0 leaves /api unlimited.
	cfg.RateLimitRPS = max(fc.Reliability.RateLimitRPS, 0)
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 2 * cfg.RateLimitRPS
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitBurst = 0
	}
	cfg.CoalesceEnabled = true
	if fc.Reliability.CoalesceEnable != nil {
		cfg.CoalesceEnabled = *fc.Reliability.CoalesceEnable
	}
	cfg.CircuitBreakerEnabled = fc.Reliability.CircuitBreaker.Enabled
	cfg.CircuitFailures = fc.Reliability.CircuitBreaker.FailureThreshold
	if cfg.CircuitFailures <= 0 {
		cfg.CircuitFailures = 5
	}
	cfg.CircuitTimeout = parseDuration(fc.Reliability.CircuitBreaker.Timeout, 30*time.Second)

	cfg.MessagesFile = strings.TrimSpace(fc.Messages.File)
	if cfg.MessagesFile != "" && !filepath.IsAbs(cfg.MessagesFile) {
		cfg.MessagesFile = filepath.Join(root, cfg.MessagesFile)
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.InFlightWait = parseDuration(fc.Shutdown.InFlightWait, 10*time.Second)

	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HasServiceKey reports whether upstream calls can be made.
func (c *Config) HasServiceKey() bool {
	return c.ServiceKey != ""
}

// TrackedGridKeys returns the "nx:ny" keys of the tracked grids.
func (c *Config) TrackedGridKeys() []string {
	keys := make([]string, 0, len(c.TrackedGrids))
	for _, g := range c.TrackedGrids {
		keys = append(keys, g.Key())
	}
	return keys
}

func readSecrets(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.ServiceKey), nil
}

// parseGrids parses "nx:ny" entries.
func parseGrids(entries []string) ([]models.GridCoordinate, error) {
	var out []models.GridCoordinate
	for _, e := range entries {
		nxRaw, nyRaw, ok := strings.Cut(strings.TrimSpace(e), ":")
		if !ok {
			return nil, fmt.Errorf("cache.warming.grids: %q is not nx:ny", e)
		}
		nx, errX := strconv.Atoi(strings.TrimSpace(nxRaw))
		ny, errY := strconv.Atoi(strings.TrimSpace(nyRaw))
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("cache.warming.grids: %q is not nx:ny", e)
		}
		g := models.GridCoordinate{NX: nx, NY: ny}
		if err := validation.ValidateGrid(g); err != nil {
			return nil, fmt.Errorf("cache.warming.grids: %w", err)
		}
		out = append(out, g)
	}
	return out, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if cfg.APITimeout <= 0 {
		return fmt.Errorf("kma.timeout must be positive")
	}
	if err := validation.ValidateGrid(cfg.DefaultGrid); err != nil {
		return fmt.Errorf("default_grid: %w", err)
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("lifecycle.degraded_error_pct must be at most 100, got %d", cfg.DegradedErrorPct)
	}
	return nil
}
