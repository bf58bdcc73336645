package hlog

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger è il logger di processo; logr.Discard() finché Init non viene chiamato.
var Logger = logr.Discard()

// Options controlla il backend zerolog dietro a Logger.
type Options struct {
	Verbose bool   // --verbose: livello info
	Debug   bool   // --debug: livello debug, abilita V(1)
	File    string // se valorizzato, log ruotati su file (lumberjack) invece che su stderr
}

func Init(opts Options) logr.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"

	w := writer(opts.File)
	zl := zerolog.New(w)
	if opts.File == "" && IsTerminal() {
		zl = zl.Output(zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !isColorTerminal(),
			TimeFormat: time.RFC3339,
		})
	}

	level := parseLogLevel(opts.Verbose, opts.Debug)
	zerolog.SetGlobalLevel(level)
	zl = zl.Level(level).With().Caller().Timestamp().Logger()

	Logger = zerologr.New(&zl)
	Logger.V(1).Info("Initialized", "level", level.String(), "verbose", opts.Verbose, "debug", opts.Debug)
	return Logger
}

func parseLogLevel(verbose, debug bool) zerolog.Level {
	switch {
	case debug:
		return zerolog.DebugLevel
	case verbose:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}

func writer(file string) io.Writer {
	if file == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
}

func IsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func isColorTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if term := os.Getenv("TERM"); strings.HasSuffix(term, "-256color") || strings.HasPrefix(term, "xterm") {
		return true
	}
	return IsTerminal()
}

// IsContextCancellation checks if an error is due to context cancellation
func IsContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ErrorIfNotCanceled logs an error only if it's not due to context cancellation
func ErrorIfNotCanceled(log logr.Logger, err error, msg string, keysAndValues ...any) {
	if err != nil && !IsContextCancellation(err) {
		log.Error(err, msg, keysAndValues...)
	}
}
