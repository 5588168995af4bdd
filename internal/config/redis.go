package config

// This file defines a Redis client constructor for the application.  Redis
// backs the ticket catalogue cache and the rate limiters.  If the server
// cannot be reached during startup the constructor returns nil and callers
// degrade to pass-through middleware; quota never lives in Redis, so losing
// it costs only latency.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment.
// Supported variables are:
//   REDIS_URL – redis:// or rediss:// URL; takes precedence over the rest
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand (used when host/port are unset)
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
func RedisOptions() (*redis.Options, error) {
    if u := os.Getenv("REDIS_URL"); u != "" {
        return redis.ParseURL(u)
    }
    host := os.Getenv("REDIS_HOST")
    port := os.Getenv("REDIS_PORT")
    addr := os.Getenv("REDIS_ADDR")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }
    var tlsConf *tls.Config
    if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return &redis.Options{
        Addr:         addr,
        Password:     os.Getenv("REDIS_PASSWORD"),
        DB:           dbNum,
        TLSConfig:    tlsConf,
        DialTimeout:  2 * time.Second,
        ReadTimeout:  time.Second,
        WriteTimeout: time.Second,
    }, nil
}

// NewRedisClient instantiates a Redis client using environment variables.
// The returned client is nil if the options are invalid or a connection
// cannot be established.
func NewRedisClient() *redis.Client {
    opts, err := RedisOptions()
    if err != nil {
        return nil
    }
    client := redis.NewClient(opts)
    // Ping the server with a short timeout.  Return nil on failure.
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
