package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"signage-studio/internal/gateway"
	"signage-studio/internal/model"
)

const requestIDHeader = "X-Request-ID"

// routeParams are the path ids copied onto the request log line.
var routeParams = []string{"campaign_id", "timeline_id", "block_id"}

// Logging writes one line per request. Client errors log at warn with the
// envelope's error code, server errors at error.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		started := time.Now()
		rec := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(started).Milliseconds(),
			"client_ip", r.RemoteAddr,
		}
		attrs = append(attrs, routeAttrs(r)...)

		if v := r.Header.Get(gateway.HeaderWriteVersion); v != "" {
			attrs = append(attrs, "write_version", v)
		}
		if rec.status >= 400 {
			attrs = append(attrs, rec.errorAttrs()...)
		}

		switch {
		case rec.status >= 500:
			slog.Error("request", attrs...)
		case rec.status >= 400:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	})
}

// routeAttrs reads the matched chi pattern and its ids. The route context is
// filled in by the time the handler chain returns.
func routeAttrs(r *http.Request) []any {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}

	var attrs []any
	if pattern := rctx.RoutePattern(); pattern != "" {
		attrs = append(attrs, "route", pattern)
	}
	for _, name := range routeParams {
		if v := rctx.URLParam(name); v != "" {
			attrs = append(attrs, name, v)
		}
	}
	return attrs
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.status = statusCode
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Write keeps a copy of error bodies only.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status >= 400 {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) errorAttrs() []any {
	if rw.body.Len() == 0 {
		return nil
	}

	var envelope model.APIResponse
	if err := json.Unmarshal(rw.body.Bytes(), &envelope); err != nil || envelope.Error == nil {
		return nil
	}
	attrs := []any{"error_code", envelope.Error.Code, "error_message", envelope.Error.Message}
	if envelope.Error.Details != "" {
		attrs = append(attrs, "error_details", envelope.Error.Details)
	}
	return attrs
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	// Upgraded connections never write a status.
	rw.status = http.StatusSwitchingProtocols
	rw.wroteHeader = true
	return hijacker.Hijack()
}
