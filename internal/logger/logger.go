// Package logger builds the process-wide zap logger.
package logger

import (
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a colourised console logger when
// env is "dev".  level is one of debug, info, warn or error; anything else
// falls back to info.
func New(env, level string) (*zap.Logger, error) {
    var cfg zap.Config
    if strings.EqualFold(env, "dev") || strings.EqualFold(env, "development") {
        cfg = zap.NewDevelopmentConfig()
        cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
    } else {
        cfg = zap.NewProductionConfig()
        cfg.EncoderConfig.TimeKey = "ts"
        cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
    }
    lvl, err := zapcore.ParseLevel(level)
    if err != nil {
        lvl = zapcore.InfoLevel
    }
    cfg.Level = zap.NewAtomicLevelAt(lvl)
    return cfg.Build(zap.Fields(zap.String("service", "ticket-booking")))
}

// Nop returns a logger that discards everything.  Tests and optional
// components use it when no logger is supplied.
func Nop() *zap.Logger { return zap.NewNop() }
