// Package config loads server configuration from flags, environment variables and a .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Pixiv     PixivConfig
	Feed      FeedConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level      string
	File       string // Optional rotating log file, written alongside stdout
	MaxSizeMB  int    // Rotate after this many megabytes (default: 100)
	MaxBackups int    // Rotated files to keep (default: 3)
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        // Server port (default: 8080)
	ReadTimeout        time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout       time.Duration // HTTP write timeout (default: 60s)
	IdleTimeout        time.Duration // HTTP idle timeout (default: 60s)
	CORSAllowedOrigins []string      // Origins allowed to fetch feeds from a browser (default: *)
}

// RateLimitConfig holds inbound per-client rate limiting.
type RateLimitConfig struct {
	RequestsPerMinute int // 0 disables inbound limiting
	Burst             int
}

// PixivConfig holds upstream pixiv settings.
type PixivConfig struct {
	BaseURL          string
	EmbedURL         string
	UserAgent        string
	RequestTimeout   time.Duration // Deadline for building one feed (default: 30s)
	RPS              float64       // Outbound requests per second per host (default: 5)
	Burst            int
	ProbeConcurrency int  // Concurrent enclosure probes per feed, 0 is unbounded (default: 8)
	StrictEnclosures bool // Fail the feed when a probe fails (default: true)
}

// FeedConfig holds feed rendering settings.
type FeedConfig struct {
	// BuildDate selects the item whose update time becomes lastBuildDate:
	// "oldest" (default) or "newest".
	BuildDate string
}

// Build date policies.
const (
	BuildDateOldest = "oldest"
	BuildDateNewest = "newest"
)

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("pixivrss", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Rotating log file path (default: stdout only)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins (default: *)")

	// Pixiv flags
	pixivBaseURL := fs.String("pixiv-base-url", "", "pixiv ajax API base URL")
	pixivEmbedURL := fs.String("pixiv-embed-url", "", "pixiv embed preview base URL")
	requestTimeout := fs.String("request-timeout", "", "Deadline for building one feed (default: 30s)")
	probeConcurrency := fs.String("probe-concurrency", "", "Concurrent enclosure probes per feed (default: 8)")
	strictEnclosures := fs.String("strict-enclosures", "", "Fail the feed when an enclosure probe fails (default: true)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:      getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			File:       getConfigValue(*logFile, "LOG_FILE", ""),
			MaxSizeMB:  getIntConfigValue("", "LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntConfigValue("", "LOG_MAX_BACKUPS", 3),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSAllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "*")),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntConfigValue("", "RATE_LIMIT_RPM", 60),
			Burst:             getIntConfigValue("", "RATE_LIMIT_BURST", 20),
		},
		Pixiv: PixivConfig{
			BaseURL:          strings.TrimRight(getConfigValue(*pixivBaseURL, "PIXIV_BASE_URL", "https://www.pixiv.net"), "/"),
			EmbedURL:         strings.TrimRight(getConfigValue(*pixivEmbedURL, "PIXIV_EMBED_URL", "https://embed.pixiv.net"), "/"),
			UserAgent:        getConfigValue("", "PIXIV_USER_AGENT", "pixivrss/1.0"),
			RPS:              getFloatConfigValue("", "PIXIV_RPS", 5),
			Burst:            getIntConfigValue("", "PIXIV_BURST", 20),
			ProbeConcurrency: getIntConfigValue(*probeConcurrency, "PIXIV_PROBE_CONCURRENCY", 8),
			StrictEnclosures: getBoolConfigValue(*strictEnclosures, "PIXIV_STRICT_ENCLOSURES", true),
		},
		Feed: FeedConfig{
			BuildDate: strings.ToLower(getConfigValue("", "FEED_BUILD_DATE", BuildDateOldest)),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Pixiv.RequestTimeout, err = getDurationConfigValue(*requestTimeout, "PIXIV_REQUEST_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Server.Port == "" {
		return errors.New("server port cannot be empty")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}

	for name, raw := range map[string]string{"PIXIV_BASE_URL": c.Pixiv.BaseURL, "PIXIV_EMBED_URL": c.Pixiv.EmbedURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid %s: %q (must be an absolute http(s) URL)", name, raw)
		}
	}

	if c.Pixiv.RPS <= 0 {
		return fmt.Errorf("invalid PIXIV_RPS: %v (must be positive)", c.Pixiv.RPS)
	}
	if c.Pixiv.Burst < 1 {
		return fmt.Errorf("invalid PIXIV_BURST: %d (must be at least 1)", c.Pixiv.Burst)
	}
	if c.Pixiv.ProbeConcurrency < 0 {
		return fmt.Errorf("invalid PIXIV_PROBE_CONCURRENCY: %d (must not be negative)", c.Pixiv.ProbeConcurrency)
	}
	if c.Pixiv.RequestTimeout < 0 {
		return errors.New("PIXIV_REQUEST_TIMEOUT must not be negative")
	}
	if c.Server.WriteTimeout > 0 && c.Pixiv.RequestTimeout > c.Server.WriteTimeout {
		return fmt.Errorf("PIXIV_REQUEST_TIMEOUT (%s) exceeds SERVER_WRITE_TIMEOUT (%s)", c.Pixiv.RequestTimeout, c.Server.WriteTimeout)
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("invalid RATE_LIMIT_RPM: %d", c.RateLimit.RequestsPerMinute)
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("invalid RATE_LIMIT_BURST: %d (must be at least 1)", c.RateLimit.Burst)
	}

	if c.Feed.BuildDate != BuildDateOldest && c.Feed.BuildDate != BuildDateNewest {
		return fmt.Errorf("invalid FEED_BUILD_DATE: %s (must be oldest or newest)", c.Feed.BuildDate)
	}

	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strings.TrimSpace(strValue), 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Env vars take precedence over the .env file.
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}

	return scanner.Err()
}
