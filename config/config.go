package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/suwandre/pairdepth/internal/models"
)

type Config struct {
	AppPort  string
	Exchange string
	// Empty means the adapter's default endpoint.
	BaseURL string

	Samples         int
	SampleInterval  time.Duration
	RetrySamples    int
	RetryAttempts   int
	Concurrency     int
	MinVolumeUSD    float64
	SlippageSizes   []float64
	Bands           []models.BandSpec
	RefreshInterval time.Duration

	HTTPTimeout  time.Duration
	RateLimitRPS float64

	LogLevel string
	LogFile  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool
}

// File is the optional YAML overlay named by CONFIG_FILE.
//
//	bands: ["0.08", "0.10", "full"]
//	slippage_sizes: [10000, 100000]
type File struct {
	Bands         []string  `yaml:"bands"`
	SlippageSizes []float64 `yaml:"slippage_sizes"`
}

// DefaultBandPcts is the band catalog in percent. The full book is appended.
var DefaultBandPcts = []float64{0.08, 0.10, 0.12, 0.15, 0.20, 0.25, 0.30, 0.50, 0.75, 1.00, 5.00}

var DefaultSlippageSizes = []float64{10_000, 100_000, 1_000_000}

// DefaultBands returns a fresh copy of the default catalog.
func DefaultBands() []models.BandSpec {
	bands := make([]models.BandSpec, 0, len(DefaultBandPcts)+1)
	for _, pct := range DefaultBandPcts {
		bands = append(bands, models.Band(pct))
	}
	return append(bands, models.FullBook())
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, reading from environment directly")
	}

	cfg := &Config{
		AppPort:       getEnv("APP_PORT", "3000"),
		Exchange:      getEnv("EXCHANGE", "dydx"),
		BaseURL:       getEnv("BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		Bands:         DefaultBands(),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	cfg.Samples, err = getEnvInt("SAMPLES", 12)
	collect(err)
	cfg.RetrySamples, err = getEnvInt("RETRY_SAMPLES", 16)
	collect(err)
	cfg.RetryAttempts, err = getEnvInt("RETRY_ATTEMPTS", 2)
	collect(err)
	cfg.Concurrency, err = getEnvInt("CONCURRENCY", 1)
	collect(err)
	cfg.RedisDB, err = getEnvInt("REDIS_DB", 0)
	collect(err)

	intervalMs, err := getEnvInt("SAMPLE_INTERVAL_MS", 400)
	collect(err)
	cfg.SampleInterval = time.Duration(intervalMs) * time.Millisecond

	cfg.MinVolumeUSD, err = getEnvFloat("MIN_VOLUME_USD", 1000)
	collect(err)
	cfg.RateLimitRPS, err = getEnvFloat("RATE_LIMIT_RPS", 0)
	collect(err)

	cfg.RefreshInterval, err = getEnvDuration("REFRESH_INTERVAL", 0)
	collect(err)
	cfg.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	collect(err)

	cfg.RedisTLS, err = getEnvBool("REDIS_TLS", false)
	collect(err)

	cfg.SlippageSizes = slices.Clone(DefaultSlippageSizes)
	if raw, ok := os.LookupEnv("SLIPPAGE_SIZES"); ok && strings.TrimSpace(raw) != "" {
		sizes, err := ParseSizes(raw)
		if err != nil {
			collect(fmt.Errorf("SLIPPAGE_SIZES: %w", err))
		} else {
			cfg.SlippageSizes = sizes
		}
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		collect(cfg.applyFile(path))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays the YAML file at path. Keys left out keep their value.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if len(f.Bands) > 0 {
		bands, err := ParseBands(f.Bands)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		c.Bands = bands
	}
	if len(f.SlippageSizes) > 0 {
		c.SlippageSizes = f.SlippageSizes
	}
	return nil
}

// Validate rejects settings the sampling pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Samples < 1 {
		errs = append(errs, fmt.Errorf("SAMPLES must be positive, got %d", c.Samples))
	}
	if c.RetrySamples < 1 {
		errs = append(errs, fmt.Errorf("RETRY_SAMPLES must be positive, got %d", c.RetrySamples))
	}
	if c.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("RETRY_ATTEMPTS must not be negative, got %d", c.RetryAttempts))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("CONCURRENCY must be positive, got %d", c.Concurrency))
	}
	if c.SampleInterval < 0 {
		errs = append(errs, errors.New("SAMPLE_INTERVAL_MS must not be negative"))
	}
	if c.RefreshInterval < 0 {
		errs = append(errs, errors.New("REFRESH_INTERVAL must not be negative"))
	}
	if len(c.SlippageSizes) == 0 {
		errs = append(errs, errors.New("at least one slippage size is required"))
	}
	for _, s := range c.SlippageSizes {
		if s <= 0 {
			errs = append(errs, fmt.Errorf("slippage size must be positive, got %v", s))
		}
	}
	if err := validateBands(c.Bands); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// validateBands requires a non-empty catalog with unique keys, ascending
// percentages and at most one full-book band, placed last. Keys are rounded
// to hundredths of a percent, so 0.08 and 0.081 collide.
func validateBands(bands []models.BandSpec) error {
	if len(bands) == 0 {
		return errors.New("band catalog is empty")
	}

	last := -1.0
	seen := make(map[models.BandKey]bool, len(bands))
	for i, b := range bands {
		if seen[b.Key] {
			return fmt.Errorf("band %s: duplicate band key", b.Key)
		}
		seen[b.Key] = true

		if b.IsFull() {
			if i != len(bands)-1 {
				return errors.New("full book band must be last")
			}
			continue
		}
		if *b.Pct <= 0 {
			return fmt.Errorf("band %s: percentage must be positive", b.Key)
		}
		if *b.Pct <= last {
			return fmt.Errorf("band %s: bands must be strictly ascending", b.Key)
		}
		last = *b.Pct
	}
	return nil
}

// ParseBands reads band labels such as "0.08" or "full".
func ParseBands(labels []string) ([]models.BandSpec, error) {
	bands := make([]models.BandSpec, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if strings.EqualFold(label, "full") {
			bands = append(bands, models.FullBook())
			continue
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(label, "%"), 64)
		if err != nil || math.IsNaN(pct) || math.IsInf(pct, 0) {
			return nil, fmt.Errorf("invalid band %q", label)
		}
		bands = append(bands, models.Band(pct))
	}
	return bands, nil
}

// ParseSizes reads a comma separated list of positive USD sizes.
func ParseSizes(raw string) ([]float64, error) {
	var sizes []float64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid size %q", part)
		}
		sizes = append(sizes, v)
	}
	if len(sizes) == 0 {
		return nil, errors.New("no sizes given")
	}
	return sizes, nil
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid number %q", key, value)
	}
	return f, nil
}

// getEnvDuration accepts Go durations ("30s", "5m") and bare seconds.
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	value = strings.TrimSpace(value)
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}
