package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *Logger
	globalMu     sync.RWMutex

	hookMu sync.RWMutex
	hooks  []func(zapcore.Entry)
)

// Logger wraps zap.SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// Init initializes the global logger. Debug mode switches to the
// development encoder with colored levels.
func Init(level string, debug bool) error {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Hooks(dispatchHooks),
	)
	if err != nil {
		return err
	}

	globalMu.Lock()
	globalLogger = &Logger{SugaredLogger: logger.Sugar()}
	globalMu.Unlock()
	return nil
}

// Get returns the global logger, creating a development fallback if
// Init was never called.
func Get() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		logger, _ := zap.NewDevelopment(zap.Hooks(dispatchHooks))
		globalLogger = &Logger{SugaredLogger: logger.Sugar()}
	}
	return globalLogger
}

// With creates a child logger with additional fields.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}

// ForComponent returns a child logger tagged with the component name.
func ForComponent(name string) *Logger {
	return Get().With("component", name)
}

// AddHook registers a function invoked for every log entry. The
// returned function removes the hook. Progress tracking observes
// pipeline log lines through this.
func AddHook(fn func(zapcore.Entry)) func() {
	hookMu.Lock()
	hooks = append(hooks, fn)
	idx := len(hooks) - 1
	hookMu.Unlock()

	return func() {
		hookMu.Lock()
		hooks[idx] = nil
		hookMu.Unlock()
	}
}

func dispatchHooks(entry zapcore.Entry) error {
	hookMu.RLock()
	defer hookMu.RUnlock()
	for _, fn := range hooks {
		if fn != nil {
			fn(entry)
		}
	}
	return nil
}

// Convenience functions using the global logger.
func Debug(args ...interface{})                   { Get().Debug(args...) }
func Debugf(template string, args ...interface{}) { Get().Debugf(template, args...) }
func Info(args ...interface{})                    { Get().Info(args...) }
func Infof(template string, args ...interface{})  { Get().Infof(template, args...) }
func Warn(args ...interface{})                    { Get().Warn(args...) }
func Warnf(template string, args ...interface{})  { Get().Warnf(template, args...) }
func Error(args ...interface{})                   { Get().Error(args...) }
func Errorf(template string, args ...interface{}) { Get().Errorf(template, args...) }

// Sync flushes buffered log entries.
func Sync() error {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger.SugaredLogger.Sync()
	}
	return nil
}
