package observability

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Level string // DEBUG, INFO, WARN, ERROR; default INFO
	Env   string // ENV_NAME, attached to every entry
}

// NewLogger builds the JSON logger. Sampling is off so per-grid fallback and
// feed-failure lines are never dropped during a burst of cache misses.
func NewLogger(opts LoggerOptions) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = parseLogLevel(opts.Level)
	config.Sampling = nil
	config.InitialFields = map[string]interface{}{"service": "weather-outfit-service"}
	if env := strings.TrimSpace(opts.Env); env != "" {
		config.InitialFields["env"] = env
	}
	return config.Build()
}

// LoggerOr returns the request-scoped logger from ctx, or fallback.
func LoggerOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l := LoggerFrom(ctx); l != nil {
		return l
	}
	return fallback
}

func parseLogLevel(s string) zap.AtomicLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "WARN":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "ERROR":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}
