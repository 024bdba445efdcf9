package utils

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.Must(zap.NewProduction())

// InitLogger rebuilds the package logger at the given level (debug,
// info, warn, error). Anything that logs before main calls this goes
// through the default production logger at info.
func InitLogger(level string) {
	cfg := zap.NewProductionConfig()
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	logger = zap.Must(cfg.Build())
}

func SyncLogger() {
	_ = logger.Sync()
}

func LogInfo(component, message string, args ...interface{}) {
	logger.Info(format(message, args...), zap.String("component", component))
}

func LogSuccess(component, message string, args ...interface{}) {
	logger.Info(format(message, args...), zap.String("component", component), zap.Bool("success", true))
}

func LogWarning(component, message string, args ...interface{}) {
	logger.Warn(format(message, args...), zap.String("component", component))
}

func LogError(component, message string, err error) {
	if err != nil {
		logger.Error(message, zap.String("component", component), zap.Error(err))
		return
	}
	logger.Error(message, zap.String("component", component))
}

func LogDebug(component, message string, args ...interface{}) {
	logger.Debug(format(message, args...), zap.String("component", component))
}

func LogRequest(method, path string, userID int64) {
	logger.Info("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int64("user_id", userID))
}

func LogResponse(path string, statusCode int, duration time.Duration) {
	logger.Info("response",
		zap.String("path", path),
		zap.Int("status", statusCode),
		zap.Duration("duration", duration))
}

func LogDB(operation, query string) {
	logger.Debug("db", zap.String("operation", operation), zap.String("query", query))
}

func format(message string, args ...interface{}) string {
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}
