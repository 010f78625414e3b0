// Package logger provides leveled, subsystem-scoped logging carried on a context.Context, in the
// style used throughout this relay: Info/Warn/Error/Verbose/Fatal calls that take a ctx and a
// printf-style format, with the subsystem (Relay, Relay-Uplink, Relay-Fanout, BTCRPC,
// Validator, ...) resolved from whatever ContextWithLogSubSystem call wraps the call site.
//
// Sample setup:
//
//	logConfig := logger.NewDevelopmentConfig()
//	logConfig.EnableSubSystem(relay.SubSystem)
//	ctx := logger.ContextWithLogConfig(context.Background(), logConfig)
package logger

import (
	"context"
	"fmt"
	"os"
)

type Level int

const (
	LevelVerbose Level = -1
	LevelInfo    Level = 0
	LevelWarn    Level = 1
	LevelError   Level = 2
	LevelFatal   Level = 3 // logs then calls os.Exit(1)
	LevelPanic   Level = 4 // logs then calls panic()
)

// Log entry formatting: which prefix fields to include.
const (
	IncludeDate   = 0x01 // date in the local time zone: 2018/01/01
	IncludeTime   = 0x02 // time in the local time zone: 06:54:32
	IncludeMicro  = 0x04 // microseconds .123123
	IncludeCaller = 0x08 // file name and line number
	IncludeLevel  = 0x10 // level of the log entry
)

type loggerKey int

const (
	configKey    loggerKey = 1
	subSystemKey loggerKey = 2
)

// ContextWithLogConfig returns a context with the logging config attached.
func ContextWithLogConfig(ctx context.Context, config *Config) context.Context {
	return context.WithValue(ctx, configKey, config)
}

// ContextWithNoLogger returns a context that discards every log entry.
func ContextWithNoLogger(ctx context.Context) context.Context {
	return context.WithValue(ctx, configKey, NewEmptyConfig())
}

// ContextWithLogSubSystem returns a context tagged with the named subsystem, e.g. relay.SubSystem.
func ContextWithLogSubSystem(ctx context.Context, subsystem string) context.Context {
	return context.WithValue(ctx, subSystemKey, subsystem)
}

// Verbose adds a verbose level entry to the log.
func Verbose(ctx context.Context, format string, values ...interface{}) {
	logDepth(ctx, LevelVerbose, 1, format, values...)
}

// Info adds an info level entry to the log.
func Info(ctx context.Context, format string, values ...interface{}) {
	logDepth(ctx, LevelInfo, 1, format, values...)
}

// Warn adds a warn level entry to the log.
func Warn(ctx context.Context, format string, values ...interface{}) {
	logDepth(ctx, LevelWarn, 1, format, values...)
}

// Error adds an error level entry to the log.
func Error(ctx context.Context, format string, values ...interface{}) {
	logDepth(ctx, LevelError, 1, format, values...)
}

// Fatal logs a fatal level entry then terminates the process. Used for unrecoverable startup
// failures (bad config, a listener that can't bind) where continuing would just fail again.
func Fatal(ctx context.Context, format string, values ...interface{}) {
	logDepth(ctx, LevelFatal, 1, format, values...)
	os.Exit(1)
}

// Panic logs a panic level entry then panics.
func Panic(ctx context.Context, format string, values ...interface{}) {
	logDepth(ctx, LevelPanic, 1, format, values...)
	panic(fmt.Sprintf(format, values...))
}

func logDepth(ctx context.Context, level Level, depth int, format string, values ...interface{}) {
	config, ok := ctx.Value(configKey).(*Config)
	if !ok || config == nil {
		config = &defaultConfig
	}

	subsystem := ""
	if s, ok := ctx.Value(subSystemKey).(string); ok {
		subsystem = s
	}

	if subsystem != "" {
		if sub, exists := config.SubSystems[subsystem]; exists {
			sub.writeEntry(subsystem, level, depth+1, format, values...)
		}

		if !config.IncludedSubSystems[subsystem] {
			return // not promoted to the main log
		}
	}

	if config.Main != nil {
		config.Main.writeEntry(subsystem, level, depth+1, format, values...)
	}
}
