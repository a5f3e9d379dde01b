package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs one line per HTTP request. Websocket upgrades are
// logged when the connection ends.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		logEvent := log.Info()
		if status >= http.StatusInternalServerError {
			logEvent = log.Error()
		} else if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			logEvent = log.Debug()
		}

		logEvent.
			Str("requestId", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Str("remoteAddr", r.RemoteAddr).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
