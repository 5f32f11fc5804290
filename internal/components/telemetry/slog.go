package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// SlogAPI implements API on a slog logger, the default logger when Logger is
// nil.
//
// Params are logged as attributes: an error becomes "err", a string followed by
// another param becomes the key of that param and anything else is logged
// positionally as "params.<n>".
type SlogAPI struct {
	Logger *slog.Logger
}

func (s SlogAPI) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func attrs(params []any) []any {
	out := make([]any, 0, len(params)*2)
	for i := 0; i < len(params); i++ {
		switch p := params[i].(type) {
		case error:
			out = append(out, slog.String("err", p.Error()))
			continue
		case string:
			if i+1 < len(params) {
				out = append(out, slog.Any(p, params[i+1]))
				i++
				continue
			}
		}
		out = append(out, slog.Any(fmt.Sprintf("params.%d", i), params[i]))
	}
	return out
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.logger().Error("broken component", append([]any{"id", id}, attrs(params)...)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.logger().Warn("warning", append([]any{"id", id}, attrs(params)...)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	s.logger().Debug(message, attrs(params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.logger().Info("count", "id", id, "n", count)
}

// NewTintHandler creates the colored handler used by the CLI.
func NewTintHandler(w io.Writer, verbose bool) slog.Handler {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})
}

// InitSlog replaces the default slog logger with a tint handler writing to stderr.
func InitSlog(verbose bool) {
	slog.SetDefault(slog.New(NewTintHandler(os.Stderr, verbose)))
}
