package handler

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"signage-studio/internal/gateway"
	"signage-studio/pkg/apierror"
)

func pathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.New("BAD_REQUEST", name+" must be a positive integer", raw, http.StatusBadRequest)
	}
	return id, nil
}

// writeVersion reads the X-Write-Version header. Writes without one are
// stamped with the current time.
func writeVersion(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(r.Header.Get(gateway.HeaderWriteVersion))
	if raw == "" {
		return uint64(time.Now().UnixNano()), nil
	}
	// Versions are stored as BIGINT.
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 || v > math.MaxInt64 {
		return 0, apierror.New("BAD_REQUEST", "invalid write version", raw, http.StatusBadRequest)
	}
	return v, nil
}
