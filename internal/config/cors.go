package config

import (
    "strings"
    "time"
)

// CORSConfig controls cross-origin access for the browser front end.
type CORSConfig struct {
    AllowOrigins []string
    MaxAge       time.Duration
}

// LoadCORSConfig reads CORS_ALLOWED_ORIGINS (comma separated, default "*")
// and CORS_MAX_AGE (default 24h).
func LoadCORSConfig() CORSConfig {
    return CORSConfig{
        AllowOrigins: parseList(envStr("CORS_ALLOWED_ORIGINS", "*")),
        MaxAge:       envDur("CORS_MAX_AGE", 24*time.Hour),
    }
}

func parseList(s string) []string {
    out := make([]string, 0)
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    if len(out) == 0 {
        out = append(out, "*")
    }
    return out
}
