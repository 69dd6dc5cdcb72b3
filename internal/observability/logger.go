// Package observability owns the process-wide CLI logger.
package observability

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the logger used by command handlers. It writes to stderr so
// stdout stays reserved for upload confirmations.
//
// It starts as a no-op logger; InitCLILogger replaces it.
var CLILogger = zap.NewNop()

var sink io.Writer = os.Stderr

// SetOutput redirects loggers created by later Init calls to w.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	sink = w
}

// InitCLILogger configures CLILogger for the named service.
//
// verbose enables debug output.
func InitCLILogger(service string, verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	CLILogger = newConsoleLogger(service, zap.NewAtomicLevelAt(level))
}

// InitCLILoggerWithLevel configures CLILogger from a textual level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func InitCLILoggerWithLevel(service, level string, verbose bool) {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.SetLevel(zapcore.InfoLevel)
	}
	if verbose {
		lvl.SetLevel(zapcore.DebugLevel)
	}
	CLILogger = newConsoleLogger(service, lvl)
}

func newConsoleLogger(service string, level zap.AtomicLevel) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if f, ok := sink.(*os.File); !ok || !isTerminal(f) {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(sink)),
		level,
	)
	return zap.New(core).Named(service)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = CLILogger.Sync()
}
