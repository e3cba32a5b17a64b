package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	RedisAddr      string
	ClickHouseDSN  string
	PostgresDSN    string
	GeoIPDB        string
	DebugTrace     bool
	ReloadInterval time.Duration
	ServiceName    string
	LogFile        string
	// AnalyticsEnabled turns on ClickHouse event recording.
	AnalyticsEnabled bool
	Session          SessionConfig
	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// SessionConfig names the visitor session storage. LastViewKey and
// PermanentKey are the names of the two viewing history mappings.
type SessionConfig struct {
	LastViewKey  string
	PermanentKey string
	CookieName   string
	// Secret signs the session cookie. An empty secret disables signing.
	Secret string
	TTL    time.Duration
}

// Default session mapping names.
const (
	DefaultLastViewKey  = "banners_last_view"
	DefaultPermanentKey = "banners_permanent_viewed"
)

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8787")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 10*time.Second)
	cfg.RequestTimeout = envDuration("REQUEST_TIMEOUT", 2*time.Second)
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000/default?async_insert=1&wait_for_async_insert=1")
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")
	cfg.GeoIPDB = getenv("GEOIP_DB", "")
	cfg.DebugTrace = envBool("DEBUG_TRACE", false)
	// default to 30 seconds between automatic reloads
	cfg.ReloadInterval = envDuration("RELOAD_INTERVAL", 30*time.Second)
	cfg.ServiceName = getenv("SERVICE_NAME", "bannerrotator")
	cfg.LogFile = getenv("LOG_FILE", "")
	cfg.AnalyticsEnabled = envBool("ANALYTICS_ENABLED", false)

	cfg.Session = SessionConfig{
		LastViewKey:  getenv("SESSION_LAST_VIEW_KEY", DefaultLastViewKey),
		PermanentKey: getenv("SESSION_PERMANENT_KEY", DefaultPermanentKey),
		CookieName:   getenv("SESSION_COOKIE", "rotator_session"),
		Secret:       getenv("SESSION_SECRET", ""),
		TTL:          envDuration("SESSION_TTL", 14*24*time.Hour),
	}

	// Database connection pooling configuration
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0) // Default to 100% sampling for dev

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}
