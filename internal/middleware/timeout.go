package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds API handlers. The connection is released with a
// REQUEST_TIMEOUT envelope when the handler overruns.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	message, _ := json.Marshal(errorEnvelope("REQUEST_TIMEOUT", "request timed out"))

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(message))
	}
}
