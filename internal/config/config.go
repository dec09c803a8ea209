// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// HTTP transport, logging, the user directory database, the upstream problem
// catalog, the daily schedule, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "cptrainer")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// CatalogConfig configures the upstream problem catalog / submission history API.
type CatalogConfig struct {
	BaseURL        string        // CATALOG_BASE_URL
	ProblemURLBase string        // PROBLEM_URL_BASE, used to render links
	Timeout        time.Duration // CATALOG_TIMEOUT per request
	RPS            float64       // CATALOG_RPS outbound call budget (0 = unlimited)
	CacheTTL       time.Duration // CATALOG_CACHE_TTL (0 disables caching)
}

// BotConfig configures the chat transport.
type BotConfig struct {
	APIURL        string // BOT_API_URL
	Token         string // BOT_TOKEN; empty means notifications are only logged
	WebhookSecret string // WEBHOOK_SECRET, checked against X-Telegram-Bot-Api-Secret-Token
	AdminToken    string // ADMIN_TOKEN; empty disables the admin endpoints
	Username      string // BOT_USERNAME, commands addressed "@other" are ignored
}

// ScheduleConfig holds the local wall-clock triggers of the daily jobs.
type ScheduleConfig struct {
	Timezone    string   // TIMEZONE (IANA name)
	ReconcileAt string   // RECONCILE_AT "HH:MM"
	RotateAt    string   // ROTATE_AT "HH:MM"
	RemindAt    []string // REMIND_AT CSV of "HH:MM"
}

// TrainingConfig tunes problem selection and verification.
type TrainingConfig struct {
	VerificationTTL time.Duration // VERIFICATION_TTL
	FloorRating     int           // FLOOR_RATING
	HardOffset      int           // HARD_OFFSET
	TopK            int           // SELECT_TOP_K
	ExcludedTag     string        // EXCLUDED_TAG
	LeaderboardSize int           // LEADERBOARD_SIZE
	JobConcurrency  int           // JOB_CONCURRENCY
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s, verification calls the upstream API
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Database
	DBDriver string // sqlite|postgres
	DBPath   string // SQLite path
	DBDSN    string // Postgres DSN

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Transport redelivery dedupe
	UpdateDedupeTTL time.Duration

	Catalog  CatalogConfig
	Bot      BotConfig
	Schedule ScheduleConfig
	Training TrainingConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Database
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:   getenv("DB_PATH", "cptrainer.db"),
		DBDSN:    getenv("DB_DSN", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		UpdateDedupeTTL: getdur("UPDATE_DEDUPE_TTL", 24*time.Hour),

		Catalog: CatalogConfig{
			BaseURL:        strings.TrimRight(getenv("CATALOG_BASE_URL", "https://codeforces.com/api"), "/"),
			ProblemURLBase: strings.TrimRight(getenv("PROBLEM_URL_BASE", "https://codeforces.com/problemset/problem"), "/"),
			Timeout:        getdur("CATALOG_TIMEOUT", 30*time.Second),
			RPS:            getfloat("CATALOG_RPS", 0.5),
			CacheTTL:       getdur("CATALOG_CACHE_TTL", 10*time.Minute),
		},

		Bot: BotConfig{
			APIURL:        strings.TrimRight(getenv("BOT_API_URL", "https://api.telegram.org"), "/"),
			Token:         getenv("BOT_TOKEN", ""),
			WebhookSecret: getenv("WEBHOOK_SECRET", ""),
			AdminToken:    getenv("ADMIN_TOKEN", ""),
			Username:      getenv("BOT_USERNAME", ""),
		},

		Schedule: ScheduleConfig{
			Timezone:    getenv("TIMEZONE", "Asia/Kolkata"),
			ReconcileAt: getenv("RECONCILE_AT", "23:50"),
			RotateAt:    getenv("ROTATE_AT", "00:00"),
			RemindAt:    splitCSV(getenv("REMIND_AT", "06:00,09:00,12:00,15:00,18:00,21:00,22:30")),
		},

		Training: TrainingConfig{
			VerificationTTL: getdur("VERIFICATION_TTL", 5*time.Minute),
			FloorRating:     getint("FLOOR_RATING", 800),
			HardOffset:      getint("HARD_OFFSET", 200),
			TopK:            getint("SELECT_TOP_K", 31),
			ExcludedTag:     getenv("EXCLUDED_TAG", "*special"),
			LeaderboardSize: getint("LEADERBOARD_SIZE", 10),
			JobConcurrency:  getint("JOB_CONCURRENCY", 4),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "cptrainer"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DBDSN) == "" {
			return cfg, errors.New("DB_DSN must not be empty when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.UpdateDedupeTTL <= 0 {
		return cfg, errors.New("UPDATE_DEDUPE_TTL must be > 0")
	}
	if cfg.Catalog.BaseURL == "" {
		return cfg, errors.New("CATALOG_BASE_URL must not be empty")
	}
	if cfg.Catalog.Timeout <= 0 {
		return cfg, errors.New("CATALOG_TIMEOUT must be > 0")
	}
	if cfg.Catalog.RPS < 0 {
		return cfg, errors.New("CATALOG_RPS must be >= 0")
	}
	if cfg.Catalog.CacheTTL < 0 {
		return cfg, errors.New("CATALOG_CACHE_TTL must be >= 0")
	}
	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return cfg, fmt.Errorf("TIMEZONE is not a valid IANA zone: %w", err)
	}
	for _, at := range append([]string{cfg.Schedule.ReconcileAt, cfg.Schedule.RotateAt}, cfg.Schedule.RemindAt...) {
		if !validClock(at) {
			return cfg, fmt.Errorf("schedule time %q must be HH:MM", at)
		}
	}
	if cfg.Schedule.ReconcileAt == cfg.Schedule.RotateAt {
		return cfg, errors.New("RECONCILE_AT must differ from ROTATE_AT")
	}
	if cfg.Training.VerificationTTL <= 0 {
		return cfg, errors.New("VERIFICATION_TTL must be > 0")
	}
	if cfg.Training.FloorRating < 0 || cfg.Training.HardOffset < 0 {
		return cfg, errors.New("FLOOR_RATING and HARD_OFFSET must be >= 0")
	}
	if cfg.Training.TopK < 1 {
		return cfg, errors.New("SELECT_TOP_K must be >= 1")
	}
	if cfg.Training.LeaderboardSize < 1 {
		return cfg, errors.New("LEADERBOARD_SIZE must be >= 1")
	}
	if cfg.Training.JobConcurrency < 1 {
		return cfg, errors.New("JOB_CONCURRENCY must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// Location resolves the configured schedule timezone. Load has already
// validated it, so failures fall back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// validClock reports whether s is a 24h "HH:MM" wall-clock time.
func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
