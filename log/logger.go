// Package log builds the process-wide zerolog logger. Loggers are passed
// explicitly; there is no package-level global here.
package log

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// New returns the root logger. Unknown level strings fall back to info.
// When pretty is set, output goes through the console writer instead of
// raw JSON.
func New(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out = os.Stderr
	logger := zerolog.New(out)
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return logger.
		Level(lvl).
		Hook(TraceHook{}).
		With().
		Timestamp().
		Logger()
}

// TraceHook copies the active span's trace and span IDs onto every event so
// log lines can be correlated with traces. Events logged without a context,
// or outside a recording span, are left untouched.
type TraceHook struct{}

func (TraceHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	sc := trace.SpanFromContext(e.GetCtx()).SpanContext()
	if !sc.IsValid() {
		return
	}
	e.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
}
