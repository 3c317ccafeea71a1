// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Record store. When empty the server runs on an in-memory store.
	DatabaseURL string `koanf:"database_url"`

	// Redis backs the shared rate limiter and the facet catalog cache. Optional.
	RedisURL string `koanf:"redis_url"`

	// JWT Authentication
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTPreviousSecret string        `koanf:"jwt_previous_secret"` // accepted during key rotation
	JWTLeeway         time.Duration `koanf:"jwt_leeway"`

	// R2 (Cloudflare Object Storage) for profile pictures
	R2BucketName      string        `koanf:"r2_bucket_name"`
	R2AccessKeyID     string        `koanf:"r2_access_key_id"`
	R2SecretAccessKey string        `koanf:"r2_secret_access_key"`
	R2Endpoint        string        `koanf:"r2_endpoint"`
	R2URLExpiry       time.Duration `koanf:"r2_url_expiry"`

	// Facet catalog
	FacetRefreshInterval time.Duration `koanf:"facet_refresh_interval"`
	CatalogCacheTTL      time.Duration `koanf:"catalog_cache_ttl"`

	// Filter limits
	MaxSearchTermLength int `koanf:"max_search_term_length"`
	MaxLanguages        int `koanf:"max_languages"`
	MaxExpertise        int `koanf:"max_expertise"`
	MaxMemberships      int `koanf:"max_memberships"`

	// Search rate limit
	SearchRateLimit  int           `koanf:"search_rate_limit"`
	SearchRateWindow time.Duration `koanf:"search_rate_window"`

	// Browser origins allowed to call the API. Empty disables CORS.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Tracing (OpenTelemetry)
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporter     string  `koanf:"tracing_exporter"`
	TracingEndpoint     string  `koanf:"tracing_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSecret         = errors.New("JWT_SECRET is required")
	ErrJWTSecretTooShort        = errors.New("JWT_SECRET must be at least 32 bytes")
	ErrMissingR2BucketName      = errors.New("R2_BUCKET_NAME is required")
	ErrMissingR2AccessKeyID     = errors.New("R2_ACCESS_KEY_ID is required")
	ErrMissingR2SecretAccessKey = errors.New("R2_SECRET_ACCESS_KEY is required")
	ErrMissingR2Endpoint        = errors.New("R2_ENDPOINT is required")
	ErrInvalidPort              = errors.New("PORT must be a valid integer")
	ErrPortOutOfRange           = errors.New("PORT must be between 1 and 65535")
	ErrInvalidInteger           = errors.New("must be a valid integer")
	ErrInvalidDuration          = errors.New("must be a valid duration")
	ErrInvalidLimit             = errors.New("must be greater than zero")
	ErrInvalidSamplingRate      = errors.New("TRACING_SAMPLING_RATE must be between 0 and 1")
	ErrInvalidTracingExporter   = errors.New("TRACING_EXPORTER must be otlp-http or otlp-grpc")
	ErrInvalidCORSOrigin        = errors.New("CORS_ALLOWED_ORIGINS entries must be http(s) origins without wildcards")
)

// MinJWTSecretLength is the shortest accepted HMAC signing secret.
const MinJWTSecretLength = 32

// Default values for non-secret configuration.
const (
	DefaultPort                 = 8080
	DefaultEnv                  = "development"
	DefaultJWTLeeway            = 30 * time.Second
	DefaultR2URLExpiry          = 15 * time.Minute
	DefaultFacetRefreshInterval = 10 * time.Minute
	DefaultCatalogCacheTTL      = 5 * time.Minute
	DefaultMaxSearchTermLength  = 100
	DefaultMaxLanguages         = 15
	DefaultMaxExpertise         = 10
	DefaultMaxMemberships       = 10
	DefaultSearchRateLimit      = 30
	DefaultSearchRateWindow     = time.Minute
	DefaultTracingExporter      = "otlp-http"
	DefaultTracingSamplingRate  = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	collect := func(err error) {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	// Try TALENTDIR_PORT first, then PORT for platform compatibility
	port, err := getEnvIntOrDefaultMulti([]string{"TALENTDIR_PORT", "PORT"}, k.Int("port"), DefaultPort)
	collect(err)

	maxTerm, err := getEnvIntOrDefault("MAX_SEARCH_TERM_LENGTH", k.Int("max_search_term_length"), DefaultMaxSearchTermLength)
	collect(err)
	maxLanguages, err := getEnvIntOrDefault("MAX_LANGUAGES", k.Int("max_languages"), DefaultMaxLanguages)
	collect(err)
	maxExpertise, err := getEnvIntOrDefault("MAX_EXPERTISE", k.Int("max_expertise"), DefaultMaxExpertise)
	collect(err)
	maxMemberships, err := getEnvIntOrDefault("MAX_MEMBERSHIPS", k.Int("max_memberships"), DefaultMaxMemberships)
	collect(err)
	searchRateLimit, err := getEnvIntOrDefault("SEARCH_RATE_LIMIT", k.Int("search_rate_limit"), DefaultSearchRateLimit)
	collect(err)

	jwtLeeway, err := getEnvDurationOrDefault("JWT_LEEWAY", k.Duration("jwt_leeway"), DefaultJWTLeeway)
	collect(err)
	urlExpiry, err := getEnvDurationOrDefault("R2_URL_EXPIRY", k.Duration("r2_url_expiry"), DefaultR2URLExpiry)
	collect(err)
	refreshInterval, err := getEnvDurationOrDefault("FACET_REFRESH_INTERVAL", k.Duration("facet_refresh_interval"), DefaultFacetRefreshInterval)
	collect(err)
	cacheTTL, err := getEnvDurationOrDefault("CATALOG_CACHE_TTL", k.Duration("catalog_cache_ttl"), DefaultCatalogCacheTTL)
	collect(err)
	searchRateWindow, err := getEnvDurationOrDefault("SEARCH_RATE_WINDOW", k.Duration("search_rate_window"), DefaultSearchRateWindow)
	collect(err)

	samplingRate := DefaultTracingSamplingRate
	if k.Exists("tracing_sampling_rate") {
		samplingRate = k.Float64("tracing_sampling_rate")
	}
	samplingRate, err = getEnvFloatOrDefault("TRACING_SAMPLING_RATE", samplingRate)
	collect(err)

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                 port,
		Env:                  getEnvOrDefaultMulti([]string{"TALENTDIR_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:          getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:             getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:            getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret:    getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),
		JWTLeeway:            jwtLeeway,
		R2BucketName:         getEnvOrKoanf("R2_BUCKET_NAME", k, "r2_bucket_name"),
		R2AccessKeyID:        getEnvOrKoanf("R2_ACCESS_KEY_ID", k, "r2_access_key_id"),
		R2SecretAccessKey:    getEnvOrKoanf("R2_SECRET_ACCESS_KEY", k, "r2_secret_access_key"),
		R2Endpoint:           getEnvOrKoanf("R2_ENDPOINT", k, "r2_endpoint"),
		R2URLExpiry:          urlExpiry,
		FacetRefreshInterval: refreshInterval,
		CatalogCacheTTL:      cacheTTL,
		MaxSearchTermLength:  maxTerm,
		MaxLanguages:         maxLanguages,
		MaxExpertise:         maxExpertise,
		MaxMemberships:       maxMemberships,
		SearchRateLimit:      searchRateLimit,
		SearchRateWindow:     searchRateWindow,
		CORSAllowedOrigins:   getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		TracingEnabled:       getEnvBoolOrDefault("TRACING_ENABLED", k.Bool("tracing_enabled")),
		TracingExporter:      getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		TracingEndpoint:      getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingSamplingRate:  samplingRate,
		TracingInsecure:      getEnvBoolOrDefault("TRACING_INSECURE", k.Bool("tracing_insecure")),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvListOrKoanf reads a comma-separated env var, falling back to a koanf list.
// Blank entries are dropped.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	var raw []string
	if val := os.Getenv(envKey); val != "" {
		raw = strings.Split(val, ",")
	} else {
		raw = k.Strings(koanfKey)
	}
	var out []string
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
// A zero value from a YAML file falls back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s %w", envKey, ErrInvalidInteger)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault parses a Go duration ("90s", "10m") from the environment,
// otherwise returns the koanf value, or default.
func getEnvDurationOrDefault(envKey string, koanfVal time.Duration, defaultVal time.Duration) (time.Duration, error) {
	if val := os.Getenv(envKey); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("%s %w: %v", envKey, ErrInvalidDuration, err)
		}
		return d, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise fallback.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, fallback float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	return fallback, nil
}

// getEnvBoolOrDefault reads a boolean flag. Unrecognized values keep the koanf value.
func getEnvBoolOrDefault(envKey string, koanfVal bool) bool {
	switch strings.ToLower(os.Getenv(envKey)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return koanfVal
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ErrPortOutOfRange)
	}

	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	} else if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, ErrJWTSecretTooShort)
	}

	// R2 configuration is optional. Only validate fields if any R2 value is set.
	if c.R2Configured() {
		if c.R2BucketName == "" {
			errs = append(errs, ErrMissingR2BucketName)
		}
		if c.R2AccessKeyID == "" {
			errs = append(errs, ErrMissingR2AccessKeyID)
		}
		if c.R2SecretAccessKey == "" {
			errs = append(errs, ErrMissingR2SecretAccessKey)
		}
		if c.R2Endpoint == "" {
			errs = append(errs, ErrMissingR2Endpoint)
		}
	}

	for name, v := range map[string]int{
		"MAX_SEARCH_TERM_LENGTH": c.MaxSearchTermLength,
		"MAX_LANGUAGES":          c.MaxLanguages,
		"MAX_EXPERTISE":          c.MaxExpertise,
		"MAX_MEMBERSHIPS":        c.MaxMemberships,
		"SEARCH_RATE_LIMIT":      c.SearchRateLimit,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s %w (got %d)", name, ErrInvalidLimit, v))
		}
	}
	for name, v := range map[string]time.Duration{
		"FACET_REFRESH_INTERVAL": c.FacetRefreshInterval,
		"SEARCH_RATE_WINDOW":     c.SearchRateWindow,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s %w (got %s)", name, ErrInvalidLimit, v))
		}
	}

	if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
		errs = append(errs, ErrInvalidSamplingRate)
	}
	if c.TracingEnabled && c.TracingExporter != "otlp-http" && c.TracingExporter != "otlp-grpc" {
		errs = append(errs, ErrInvalidTracingExporter)
	}

	for _, origin := range c.CORSAllowedOrigins {
		if strings.Contains(origin, "*") ||
			!(strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://")) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidCORSOrigin, origin))
		}
	}

	return errs
}

// R2Configured reports whether any R2 setting is present.
func (c *Config) R2Configured() bool {
	return c.R2BucketName != "" || c.R2AccessKeyID != "" || c.R2SecretAccessKey != "" || c.R2Endpoint != ""
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                   strconv.Itoa(c.Port),
		"env":                    c.Env,
		"database_url":           maskDatabaseURL(c.DatabaseURL),
		"redis_url":              maskDatabaseURL(c.RedisURL),
		"jwt_secret":             maskSecret(c.JWTSecret),
		"jwt_previous_secret":    maskSecret(c.JWTPreviousSecret),
		"r2_bucket_name":         c.R2BucketName,
		"r2_access_key_id":       maskSecret(c.R2AccessKeyID),
		"r2_secret_access_key":   maskSecret(c.R2SecretAccessKey),
		"r2_endpoint":            c.R2Endpoint,
		"r2_url_expiry":          c.R2URLExpiry.String(),
		"facet_refresh_interval": c.FacetRefreshInterval.String(),
		"catalog_cache_ttl":      c.CatalogCacheTTL.String(),
		"max_search_term_length": strconv.Itoa(c.MaxSearchTermLength),
		"max_languages":          strconv.Itoa(c.MaxLanguages),
		"max_expertise":          strconv.Itoa(c.MaxExpertise),
		"max_memberships":        strconv.Itoa(c.MaxMemberships),
		"search_rate_limit":      fmt.Sprintf("%d/%s", c.SearchRateLimit, c.SearchRateWindow),
		"cors_allowed_origins":   strings.Join(c.CORSAllowedOrigins, ","),
		"tracing_enabled":        strconv.FormatBool(c.TracingEnabled),
		"tracing_exporter":       c.TracingExporter,
		"tracing_endpoint":       c.TracingEndpoint,
		"tracing_sampling_rate":  strconv.FormatFloat(c.TracingSamplingRate, 'f', -1, 64),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
// Works for postgres://, postgresql:// and redis:// alike.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
