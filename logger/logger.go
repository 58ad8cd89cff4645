// Package logger configures the process-wide zerolog logger and adapts it for gorm.
package logger

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Setup points the global logger at stdout.
// format "human" forces console output, "json" forces JSON; empty picks console for debug mode.
func Setup(mode, format string) {
	Configure(os.Stdout, mode, format)
}

// Configure is Setup with an explicit writer
func Configure(w io.Writer, mode, format string) {
	output := w
	if format == "human" || (format == "" && mode != "release") {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// Gorm routes gorm's logging into zerolog. Queries are logged at debug level,
// failed queries at error level except record-not-found.
type Gorm struct {
	Logger zerolog.Logger
}

// NewGorm returns a gorm logger writing through the global zerolog logger
func NewGorm() *Gorm {
	return &Gorm{Logger: log.Logger}
}

func (l *Gorm) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (l *Gorm) Info(_ context.Context, s string, args ...interface{}) {
	l.Logger.Info().Msgf(s, args...)
}

func (l *Gorm) Warn(_ context.Context, s string, args ...interface{}) {
	l.Logger.Warn().Msgf(s, args...)
}

func (l *Gorm) Error(_ context.Context, s string, args ...interface{}) {
	l.Logger.Error().Msgf(s, args...)
}

func (l *Gorm) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Logger.Error().Err(err).Str("sql", sql).Dur("duration", elapsed).Msg("[GORM] query error")
		return
	}

	l.Logger.Debug().Str("sql", sql).Int64("rows", rows).Dur("duration", elapsed).Msg("[GORM] query")
}
