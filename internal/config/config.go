package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration-valued settings
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for
// timeouts and cache TTLs.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	// Database selection.  DBMode forces a backend ("sqlite" or "postgres");
	// when empty the backend is derived from DatabaseURL's scheme, falling
	// back to the embedded sqlite file.  DBStrict forbids the sqlite
	// fallback when a postgres target is configured but unreachable; it is
	// implied by Env == "prod".
	DBMode      string // forced backend kind, empty for auto-detect
	DatabaseURL string // postgres connection string (optional)
	SQLitePath  string // path of the embedded database file
	DBStrict    bool   // fail fast instead of falling back to sqlite

	JWTSecret    string // secret used to sign JWTs
	AccessTTLMin int    // access token time-to-live in minutes

	// OAuth identity provider.  The service never sees a password; it only
	// consumes the (external_id, email, name, picture) tuple from the
	// provider's userinfo endpoint after the code exchange.
	OAuthClientID     string        // client id registered with the provider
	OAuthClientSecret string        // client secret
	OAuthRedirectURL  string        // callback URL of this service
	OAuthAuthURL      string        // provider authorization endpoint
	OAuthTokenURL     string        // provider token endpoint
	OAuthUserInfoURL  string        // provider userinfo endpoint
	OAuthTimeout      time.Duration // timeout for provider HTTP calls

	// Role gate access codes.  A signed-in user presents one of these to be
	// elevated to the matching role.  Values may be bcrypt hashes or plain
	// strings; see utils.VerifyAccessCode.
	HostCode    string // host role access code
	ModCode     string // mod role access code
	CoOwnerCode string // co_owner role access code
	OwnerCode   string // owner role access code

	Maintenance bool // serve 503 to non-admins when set

	BanCacheTTL        time.Duration // TTL of the ban-status cache
	VerseCacheTTL      time.Duration // TTL of the per-user verse snapshot cache
	VerseSourceTimeout time.Duration // timeout for external verse source calls
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),  // environment (dev/test/prod)
		Port: must("APP_PORT"), // port to bind the HTTP server

		DBMode:      os.Getenv("DB_MODE"),                       // optional forced backend
		DatabaseURL: os.Getenv("DATABASE_URL"),                  // optional postgres target
		SQLitePath:  getenv("SQLITE_PATH", "data/versefeed.db"), // embedded database file
		DBStrict:    envBool("DB_STRICT", false),                // strict backend selection

		JWTSecret:    must("JWT_SECRET"),                 // secret used for signing JWTs
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60), // TTL for access tokens in minutes

		OAuthClientID:     must("OAUTH_CLIENT_ID"),     // provider client id
		OAuthClientSecret: must("OAUTH_CLIENT_SECRET"), // provider client secret
		OAuthRedirectURL:  must("OAUTH_REDIRECT_URL"),  // our callback URL
		OAuthAuthURL:      getenv("OAUTH_AUTH_URL", "https://accounts.google.com/o/oauth2/auth"),
		OAuthTokenURL:     getenv("OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		OAuthUserInfoURL:  getenv("OAUTH_USERINFO_URL", "https://www.googleapis.com/oauth2/v2/userinfo"),
		OAuthTimeout:      envDur("OAUTH_TIMEOUT", 10*time.Second),

		HostCode:    os.Getenv("HOST_ACCESS_CODE"),     // host elevation code
		ModCode:     os.Getenv("MOD_ACCESS_CODE"),      // mod elevation code
		CoOwnerCode: os.Getenv("CO_OWNER_ACCESS_CODE"), // co_owner elevation code
		OwnerCode:   os.Getenv("OWNER_ACCESS_CODE"),    // owner elevation code

		Maintenance: envBool("MAINTENANCE_MODE", false), // maintenance flag

		BanCacheTTL:        envDur("BAN_CACHE_TTL", 3*time.Second),
		VerseCacheTTL:      envDur("VERSE_CACHE_TTL", 2*time.Second),
		VerseSourceTimeout: envDur("VERSE_SOURCE_TIMEOUT", 8*time.Second),
	}
}

// Strict reports whether backend selection runs in fail-fast mode.  A hosted
// production environment must never silently fall back to the embedded file
// database, so "prod" implies strict regardless of DB_STRICT.
func (c Config) Strict() bool {
	return c.DBStrict || c.Env == "prod"
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// Helper functions shared with cache.go and ratelimit.go.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
