// Copyright 2025 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides the structured logger used throughout srvpool. It is a
// thin layer over zap with a key/value calling convention:
//
//	log.Info("Endpoint ejected", "url", ep.URL(), "failures", n)
//
// Setup installs the root logger. Until Setup is called, all logging goes to
// a no-op logger.
package log

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scionproto/srvpool/pkg/private/serrors"
)

const (
	// DefaultConsoleLevel is the default log level for the console.
	DefaultConsoleLevel = "info"
	// DefaultStacktraceLevel is the default log level above which stacktraces
	// are added to log entries.
	DefaultStacktraceLevel = "none"
)

// Level is the log level.
type Level zapcore.Level

// The supported log levels.
const (
	DebugLevel = Level(zapcore.DebugLevel)
	InfoLevel  = Level(zapcore.InfoLevel)
	ErrorLevel = Level(zapcore.ErrorLevel)
)

// Logger describes the logger interface.
type Logger interface {
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Enabled(lvl Level) bool
}

var (
	mu   sync.RWMutex
	root = &logger{logger: zap.NewNop()}
)

// Config is the configuration of the root logger.
type Config struct {
	Console ConsoleConfig `toml:"console,omitempty"`
}

// ConsoleConfig is the configuration of the console logger.
type ConsoleConfig struct {
	// Level of the console logging. Defaults to DefaultConsoleLevel.
	Level string `toml:"level,omitempty"`
	// Format of the console logging, either "human" or "json".
	Format string `toml:"format,omitempty"`
	// StacktraceLevel sets from which level stacktraces are added to log
	// entries. "none" disables stacktraces.
	StacktraceLevel string `toml:"stacktrace_level,omitempty"`
	// DisableCaller stops annotating logs with the calling function's file
	// name and line number.
	DisableCaller bool `toml:"disable_caller,omitempty"`
}

// InitDefaults populates unset fields in cfg to their default values.
func (c *Config) InitDefaults() {
	if c.Console.Level == "" {
		c.Console.Level = DefaultConsoleLevel
	}
	if c.Console.Format == "" {
		c.Console.Format = "human"
	}
	if c.Console.StacktraceLevel == "" {
		c.Console.StacktraceLevel = DefaultStacktraceLevel
	}
}

// Validate checks that the configuration can be used to build a logger.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Console.Level); err != nil {
		return err
	}
	if c.Console.StacktraceLevel != "none" {
		if _, err := parseLevel(c.Console.StacktraceLevel); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.Console.Format) {
	case "human", "json":
		return nil
	default:
		return serrors.New("unsupported log format", "format", c.Console.Format)
	}
}

func parseLevel(lvl string) (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(lvl))); err != nil {
		return l, serrors.Wrap("parsing log level", err, "level", lvl)
	}
	return l, nil
}

// Setup configures the root logger. Setup must be called before any other
// goroutine starts logging.
func Setup(cfg Config, opts ...Option) error {
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	o := applyOptions(opts)
	lvl, _ := parseLevel(cfg.Console.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if strings.ToLower(cfg.Console.Format) == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	zapOpts := o.zapOptions()
	if !cfg.Console.DisableCaller {
		zapOpts = append(zapOpts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if cfg.Console.StacktraceLevel != "none" {
		st, _ := parseLevel(cfg.Console.StacktraceLevel)
		zapOpts = append(zapOpts, zap.AddStacktrace(st))
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(lvl))

	mu.Lock()
	defer mu.Unlock()
	root = &logger{logger: zap.New(core, zapOpts...)}
	zap.ReplaceGlobals(root.logger)
	return nil
}

// Root returns the root logger. It is a logger without any context.
func Root() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// New creates a logger with the given context.
func New(ctx ...any) Logger {
	return Root().New(ctx...)
}

// Debug logs at debug level.
func Debug(msg string, ctx ...any) {
	Root().(*logger).logger.Debug(msg, convertCtx(ctx)...)
}

// Info logs at info level.
func Info(msg string, ctx ...any) {
	Root().(*logger).logger.Info(msg, convertCtx(ctx)...)
}

// Error logs at error level.
func Error(msg string, ctx ...any) {
	Root().(*logger).logger.Error(msg, convertCtx(ctx)...)
}

// Flush writes the logs to the underlying buffer.
func Flush() {
	_ = Root().(*logger).logger.Sync()
}

// HandlePanic catches panics and logs them. It must be deferred at the top of
// every goroutine.
func HandlePanic() {
	if msg := recover(); msg != nil {
		Root().(*logger).logger.Error("Panic", zap.Any("msg", msg),
			zap.String("stack", string(debug.Stack())))
		Flush()
		panic(msg)
	}
}

// WithOptions returns a copy of l with the zap options applied. It returns l
// unchanged if it is not backed by zap.
func WithOptions(l Logger, opts ...zap.Option) Logger {
	if zl, ok := l.(*logger); ok {
		return &logger{logger: zl.logger.WithOptions(opts...)}
	}
	return l
}

type logger struct {
	logger *zap.Logger
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{logger: l.logger.With(convertCtx(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.logger.Debug(msg, convertCtx(ctx)...)
}

func (l *logger) Info(msg string, ctx ...any) {
	l.logger.Info(msg, convertCtx(ctx)...)
}

func (l *logger) Error(msg string, ctx ...any) {
	l.logger.Error(msg, convertCtx(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(zapcore.Level(lvl))
}

func convertCtx(ctx []any) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			key = fmt.Sprint(ctx[i])
		}
		fields = append(fields, zap.Any(key, ctx[i+1]))
	}
	return fields
}

// SafeDebug logs at debug level if l is not nil.
func SafeDebug(l Logger, msg string, ctx ...any) {
	if l != nil {
		l.Debug(msg, ctx...)
	}
}

// SafeInfo logs at info level if l is not nil.
func SafeInfo(l Logger, msg string, ctx ...any) {
	if l != nil {
		l.Info(msg, ctx...)
	}
}

// SafeError logs at error level if l is not nil.
func SafeError(l Logger, msg string, ctx ...any) {
	if l != nil {
		l.Error(msg, ctx...)
	}
}
