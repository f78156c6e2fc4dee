package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings splits list-valued variables
    "time"    // time parses duration-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for costs,
// durations for windows.
type Config struct {
    Env               string        // application environment (e.g. "dev", "prod")
    Port              string        // HTTP port to listen on
    DBUser            string        // database username (empty -> in-memory store)
    DBPass            string        // database password (optional)
    DBHost            string        // database host address
    DBPort            string        // database port number
    DBName            string        // database name
    JWTSecret         string        // secret used to sign JWTs
    AccessTTLMin      int           // access token time-to-live in minutes
    BcryptCost        int           // bcrypt cost for password hashing
    AdminIDs          []int64       // buyer ids allowed through the decision gateway
    AdminPasswordHash string        // bcrypt hash gating admin token issuance (optional)
    ReviewWindowTTL   time.Duration // pending review window; 0 disables expiry
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Database variables
// are optional as a group: when DB_USER is unset the server runs on the
// in-memory store.
func Load() Config {
    cfg := Config{
        Env:               must("APP_ENV"),                 // environment (dev/test/prod)
        Port:              must("APP_PORT"),                // port to bind the HTTP server
        DBUser:            os.Getenv("DB_USER"),            // database user (empty -> memory store)
        DBPass:            os.Getenv("DB_PASS"),            // database password (empty allowed)
        JWTSecret:         must("JWT_SECRET"),              // secret used for signing JWTs
        AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"), // TTL for access tokens in minutes
        BcryptCost:        mustInt("BCRYPT_COST"),          // bcrypt cost factor
        AdminIDs:          parseIDList(os.Getenv("ADMIN_IDS")),
        AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
        ReviewWindowTTL:   parseTTL(os.Getenv("REVIEW_WINDOW_TTL")),
    }
    if cfg.DBUser != "" {
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    }
    return cfg
}

// IsAdmin reports whether the given buyer id is on the admin allowlist.
func (c Config) IsAdmin(id int64) bool {
    for _, a := range c.AdminIDs {
        if a == id {
            return true
        }
    }
    return false
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

// parseIDList splits a comma-separated list of integer ids.  Malformed
// entries are fatal so a typo cannot silently drop an admin.
func parseIDList(s string) []int64 {
    if strings.TrimSpace(s) == "" {
        return nil
    }
    parts := strings.Split(s, ",")
    ids := make([]int64, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p == "" {
            continue
        }
        id, err := strconv.ParseInt(p, 10, 64)
        if err != nil {
            log.Fatalf("invalid id in ADMIN_IDS: %q", p)
        }
        ids = append(ids, id)
    }
    return ids
}

// parseTTL parses a Go duration string; empty disables the window.
func parseTTL(s string) time.Duration {
    if strings.TrimSpace(s) == "" {
        return 0
    }
    d, err := time.ParseDuration(s)
    if err != nil {
        log.Fatalf("invalid duration for REVIEW_WINDOW_TTL: %q", s)
    }
    return d
}
