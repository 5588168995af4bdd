package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"

    "github.com/joho/godotenv" // optional .env file for local development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for costs and
// counts, durations for timeouts.
type Config struct {
    Env             string        // application environment (e.g. "dev", "prod")
    Port            string        // HTTP port to listen on
    DBUser          string        // database username
    DBPass          string        // database password (optional)
    DBHost          string        // database host address
    DBPort          string        // database port number
    DBName          string        // database name
    DBLockWaitSec   int           // innodb_lock_wait_timeout applied per connection
    TxTimeout       time.Duration // upper bound for a booking unit of work
    JWTSecret       string        // secret used to sign JWTs
    AccessTTLMin    int           // access token time‑to‑live in minutes
    BcryptCost      int           // bcrypt cost for password hashing
    UploadDir       string        // root directory for proofs and QR artifacts
    PublicBaseURL   string        // prefix used to build media URLs in responses
    CodeMaxAttempts int           // retry bound for booking/QR code generation
    LogLevel        string        // zap level: debug, info, warn, error
    RabbitURL       string        // AMQP URL for booking events (optional)
    EventsEnabled   bool          // publish booking events when true
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    _ = godotenv.Load()
    return Config{
        Env:             must("APP_ENV"),
        Port:            must("APP_PORT"),
        DBUser:          must("DB_USER"),
        DBPass:          os.Getenv("DB_PASS"), // empty allowed
        DBHost:          must("DB_HOST"),
        DBPort:          must("DB_PORT"),
        DBName:          must("DB_NAME"),
        DBLockWaitSec:   envInt("DB_LOCK_WAIT_SECONDS", 5),
        TxTimeout:       envDur("TX_TIMEOUT", 10*time.Second),
        JWTSecret:       must("JWT_SECRET"),
        AccessTTLMin:    mustInt("ACCESS_TOKEN_TTL_MIN"),
        BcryptCost:      mustInt("BCRYPT_COST"),
        UploadDir:       envStr("UPLOAD_DIR", "uploads"),
        PublicBaseURL:   envStr("PUBLIC_BASE_URL", ""),
        CodeMaxAttempts: envInt("CODE_MAX_ATTEMPTS", 10),
        LogLevel:        envStr("LOG_LEVEL", "info"),
        RabbitURL:       os.Getenv("RABBITMQ_URL"),
        EventsEnabled:   envBool("EVENTS_ENABLED", false),
    }
}

// IsProduction reports whether the service runs with APP_ENV=prod.
func (c Config) IsProduction() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
