package logger

import (
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Setup builds the service logger writing to w. Production output is JSON at
// info level; dev switches to a console writer at debug level with call sites.
func Setup(w io.Writer, dev bool) zerolog.Logger {
	if !dev {
		return zerolog.New(w).Level(zerolog.InfoLevel).With().
			Timestamp().
			Str("service", "socialhub").
			Logger()
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(console).Level(zerolog.DebugLevel).With().
		Timestamp().
		Caller().
		Logger()
}

// Requests returns the middleware chain that attaches logger to each request context,
// tags it with a request id and writes one access line per request.
func Requests(logger zerolog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(logger),
		hlog.RequestIDHandler("req_id", "X-Request-ID"),
		hlog.RemoteAddrHandler("ip"),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			event := hlog.FromRequest(r).Info()
			if status >= http.StatusInternalServerError {
				event = hlog.FromRequest(r).Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		}),
	}
}
